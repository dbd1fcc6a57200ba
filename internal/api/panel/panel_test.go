package panel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-survey/internal/filter"
	"github.com/joeblew999/plat-survey/internal/session"
)

func TestParseSignals(t *testing.T) {
	signals, err := ParseSignals([]byte(`{"ventilasi":"kurang","bb":"all","showBuffer":false,"totalPoints":3}`))
	require.NoError(t, err)
	assert.Equal(t, "kurang", signals.String("ventilasi"))
	assert.Equal(t, "", signals.String("totalPoints"))

	v, ok := signals.Bool("showBuffer")
	assert.True(t, ok)
	assert.False(t, v)
	_, ok = signals.Bool("showPoints")
	assert.False(t, ok)

	empty, err := ParseSignals(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseSignals([]byte(`{`))
	assert.Error(t, err)
}

func TestCriteriaFromSignals(t *testing.T) {
	current := filter.Criteria{Ventilation: "cukup", Fuel: filter.All}

	got := CriteriaFromSignals(Signals{"bb": "lpg"}, current)
	assert.Equal(t, filter.Criteria{Ventilation: "cukup", Fuel: "lpg"}, got)

	got = CriteriaFromSignals(Signals{"ventilasi": "all", "bb": "kayu"}, current)
	assert.Equal(t, filter.Criteria{Ventilation: filter.All, Fuel: "kayu"}, got)

	assert.Equal(t, current, CriteriaFromSignals(Signals{}, current))
}

func TestSnapshot(t *testing.T) {
	ctrl := session.New(session.Config{})
	snap := Snapshot(ctrl)
	assert.Equal(t, 0, snap[SignalTotal])
	assert.Equal(t, "loading", snap[SignalPhase])
	assert.Equal(t, true, snap[SignalShowPolygon])

	f := geojson.NewFeature(orb.Point{101.4, 0.5})
	f.Properties[filter.FieldVentilation] = "kurang"
	f.Properties[filter.FieldFuel] = "lpg"
	require.NoError(t, ctrl.OnLoadComplete([]filter.Record{filter.NewRecord(f, 0)}))
	require.NoError(t, ctrl.SetLayerVisible(session.LayerBuffer, false))

	snap = Snapshot(ctrl)
	assert.Equal(t, 1, snap[SignalTotal])
	assert.Equal(t, "ready", snap[SignalPhase])
	assert.Equal(t, false, snap[SignalShowBuffer])
	assert.Equal(t, filter.All, snap["bb"])
}

func households(t *testing.T) *session.Controller {
	t.Helper()
	ctrl := session.New(session.Config{})
	rows := []struct{ vent, fuel string }{
		{"kurang", "kayu bakar"},
		{"kurang", "lpg"},
		{"cukup", "lpg"},
		{"baik", "minyak tanah"},
	}
	records := make([]filter.Record, len(rows))
	for i, row := range rows {
		f := geojson.NewFeature(orb.Point{101.4, 0.5})
		f.Properties[filter.FieldFID] = i
		f.Properties[filter.FieldVentilation] = row.vent
		f.Properties[filter.FieldFuel] = row.fuel
		records[i] = filter.NewRecord(f, i)
	}
	require.NoError(t, ctrl.OnLoadComplete(records))
	return ctrl
}

func newPanelAPI(t *testing.T, ctrl *session.Controller) (*http.ServeMux, humatest.TestAPI) {
	t.Helper()
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("panel", "1.0.0"))
	NewHandler(ctrl).RegisterRoutes(api)
	return mux, humatest.Wrap(t, api)
}

func TestFilter_PatchesCount(t *testing.T) {
	ctrl := households(t)
	_, api := newPanelAPI(t, ctrl)

	resp := api.Post("/api/v1/panel/filter", map[string]any{"ventilasi": "buruk"})
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, "datastar-patch-signals")
	assert.Contains(t, body, `"totalPoints":2`)
	assert.Equal(t, "buruk", ctrl.Criteria().Ventilation)
	assert.Equal(t, filter.All, ctrl.Criteria().Fuel)

	resp = api.Post("/api/v1/panel/filter", map[string]any{"bb": "lpg"})
	assert.Contains(t, resp.Body.String(), `"totalPoints":1`)
}

func TestFilter_BadSignalsPatchError(t *testing.T) {
	ctrl := households(t)
	_, api := newPanelAPI(t, ctrl)

	resp := api.Post("/api/v1/panel/filter", strings.NewReader("not json"))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"error":"Invalid signals`)
	assert.Equal(t, filter.DefaultCriteria(), ctrl.Criteria())
}

func TestReset_RestoresAll(t *testing.T) {
	ctrl := households(t)
	_, api := newPanelAPI(t, ctrl)
	_, err := ctrl.SetCriteria(filter.SelectorFuel, "kayu")
	require.NoError(t, err)

	resp := api.Post("/api/v1/panel/reset")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `"bb":"all"`)
	assert.Contains(t, body, `"ventilasi":"all"`)
	assert.Contains(t, body, `"totalPoints":4`)
	assert.Equal(t, filter.DefaultCriteria(), ctrl.Criteria())
}

func TestLayers_TogglesSentCheckboxes(t *testing.T) {
	ctrl := households(t)
	_, api := newPanelAPI(t, ctrl)

	resp := api.Post("/api/v1/panel/layers", map[string]any{"showBuffer": false})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, ctrl.LayerVisible(session.LayerBuffer))
	assert.True(t, ctrl.LayerVisible(session.LayerPoints))
	assert.True(t, ctrl.LayerVisible(session.LayerBoundary))
	assert.Contains(t, resp.Body.String(), `"showBuffer":false`)
	assert.Equal(t, 4, ctrl.VisibleCount())
}

// streamRecorder lets the test read a response while the handler is still
// writing it.
type streamRecorder struct {
	mu  sync.Mutex
	rec *httptest.ResponseRecorder
}

func (s *streamRecorder) Header() http.Header { return s.rec.Header() }

func (s *streamRecorder) WriteHeader(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.WriteHeader(code)
}

func (s *streamRecorder) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Write(b)
}

func (s *streamRecorder) Flush() {}

func (s *streamRecorder) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Body.String()
}

func TestEvents_StreamsSnapshots(t *testing.T) {
	ctrl := households(t)
	mux, _ := newPanelAPI(t, ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &streamRecorder{rec: httptest.NewRecorder()}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/panel/events", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		mux.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool {
		return ctrl.Bus().Subscribers() == 1 && strings.Contains(rec.String(), `"totalPoints":4`)
	}, 5*time.Second, 10*time.Millisecond)

	_, err := ctrl.SetCriteria(filter.SelectorFuel, "lpg")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		body := rec.String()
		return strings.Contains(body, `"totalPoints":2`) && strings.Contains(body, "resource-changed")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event stream did not stop")
	}
	assert.Zero(t, ctrl.Bus().Subscribers())
}
