package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-survey/internal/filter"
)

const households = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [101.44, 0.53]},
     "properties": {"FID": 0, "id_rumah": "R-001", "ventilasi_": "Kurang", "jenis_baha": "Kayu Bakar", "jumlah_pen": 3}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [101.45, 0.54]},
     "properties": {"FID": 1, "id_rumah": "R-002", "ventilasi_": "cukup"}},
    {"type": "Feature", "id": "loose", "geometry": {"type": "Point", "coordinates": [101.46, 0.55]},
     "properties": {}}
  ]
}`

func writeSource(t *testing.T, dir, name, body string) {
	t.Helper()
	sources := filepath.Join(dir, "sources")
	require.NoError(t, os.MkdirAll(sources, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sources, name), []byte(body), 0644))
}

func TestDecode(t *testing.T) {
	records, err := Decode([]byte(households))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "0", records[0].ID)
	assert.Equal(t, "Kurang", records[0].Attr(filter.FieldVentilation))
	n, ok := records[0].Number(filter.FieldOccupants)
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)

	assert.Equal(t, "", records[1].Attr(filter.FieldFuel))
	assert.Equal(t, "loose", records[2].ID)
	assert.NotNil(t, records[2].Geometry)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte(`{"type": "Feature"`))
	assert.Error(t, err)
}

func TestService_ListAndLoad(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir)

	files, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, files, "missing sources dir is an empty list")

	writeSource(t, dir, "penduduk2.json", households)
	writeSource(t, dir, "notes.txt", "ignored")

	files, err = svc.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "penduduk2.json", files[0].Name)
	assert.Equal(t, "GeoJSON", files[0].FileType)

	records, err := svc.Load("penduduk2.json")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestService_PathRejectsTraversal(t *testing.T) {
	svc := NewService(t.TempDir())

	for _, name := range []string{"../secret.json", "a/b.json", "data.csv"} {
		_, err := svc.Path(name)
		assert.Error(t, err, name)
	}
}

func TestService_LoadAsync(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "penduduk2.json", households)
	svc := NewService(dir)

	done := make(chan int, 1)
	svc.LoadAsync(context.Background(), "penduduk2.json", func(records []filter.Record, err error) {
		assert.NoError(t, err)
		done <- len(records)
	})

	select {
	case n := <-done:
		assert.Equal(t, 3, n)
	case <-time.After(5 * time.Second):
		t.Fatal("load did not complete")
	}
}

func TestService_LoadAsyncMissingFile(t *testing.T) {
	svc := NewService(t.TempDir())

	errs := make(chan error, 1)
	svc.LoadAsync(context.Background(), "buffer.json", func(_ []filter.Record, err error) {
		errs <- err
	})

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("load did not complete")
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2<<20))
}
