// Package source reads survey GeoJSON files into filter records.
package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-survey/internal/filter"
)

// SourceFile represents a GeoJSON file in the sources directory.
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"penduduk2.json"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON"`
}

// Service lists and loads source data files.
type Service struct {
	sourcesDir string
}

// NewService creates a source service rooted at dataDir/sources.
func NewService(dataDir string) *Service {
	return &Service{
		sourcesDir: filepath.Join(dataDir, "sources"),
	}
}

// SourcesDir returns the path to the sources directory.
func (s *Service) SourcesDir() string {
	return s.sourcesDir
}

// List returns all GeoJSON files in the sources directory.
func (s *Service) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, eris.Wrap(err, "source: read dir")
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() || !isGeoJSON(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, SourceFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: "GeoJSON",
		})
	}
	return files, nil
}

// Path resolves a file name inside the sources directory.
func (s *Service) Path(name string) (string, error) {
	if strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return "", eris.Errorf("source: invalid filename %q", name)
	}
	if !isGeoJSON(name) {
		return "", eris.Errorf("source: unsupported file type %q", filepath.Ext(name))
	}
	return filepath.Join(s.sourcesDir, name), nil
}

// Load reads a named source file.
func (s *Service) Load(name string) ([]filter.Record, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadAsync reads a named source file on its own goroutine and reports the
// result through done. done is not called if ctx is cancelled first.
func (s *Service) LoadAsync(ctx context.Context, name string, done func([]filter.Record, error)) {
	go func() {
		records, err := s.Load(name)
		if ctx.Err() != nil {
			zap.L().Debug("source load abandoned", zap.String("file", name))
			return
		}
		done(records, err)
	}()
}

// LoadFile reads a GeoJSON FeatureCollection from path.
func LoadFile(path string) ([]filter.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", path)
	}
	records, err := Decode(data)
	if err != nil {
		return nil, eris.Wrapf(err, "source: decode %s", path)
	}
	zap.L().Debug("source loaded", zap.String("path", path), zap.Int("records", len(records)))
	return records, nil
}

// Decode parses a GeoJSON FeatureCollection. Features without geometry are
// kept; the filter only looks at properties.
func Decode(data []byte) ([]filter.Record, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrap(err, "source: unmarshal feature collection")
	}
	records := make([]filter.Record, 0, len(fc.Features))
	for i, f := range fc.Features {
		records = append(records, filter.NewRecord(f, i))
	}
	return records, nil
}

func isGeoJSON(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".geojson", ".json":
		return true
	}
	return false
}
