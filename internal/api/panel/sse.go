// Package panel serves the map control panel over Datastar SSE.
//
// Every handler answers with signal patches: the panel binds its selects and
// checkboxes to signals and reads totalPoints back for the counter.
package panel

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

// SSE wraps a Datastar generator for one streamed response.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Stream returns a Huma StreamResponse that calls fn with a ready SSE helper.
func Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// Signals patches signals on the client.
func (s SSE) Signals(signals map[string]any) {
	if err := s.MarshalAndPatchSignals(signals); err != nil {
		zap.L().Debug("panel: patch signals", zap.Error(err))
	}
}

// Error sends an error signal to the panel.
func (s SSE) Error(msg string) {
	s.Signals(map[string]any{"error": msg})
}

// Signals is the flat JSON object Datastar posts with each action.
type Signals map[string]any

// ParseSignals parses Datastar signals from a raw request body. An empty body
// yields no signals.
func ParseSignals(body []byte) (Signals, error) {
	signals := Signals{}
	if len(body) == 0 {
		return signals, nil
	}
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns a string signal, or "" when absent or not a string.
func (s Signals) String(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns a bool signal and whether it was sent as a bool.
func (s Signals) Bool(key string) (bool, bool) {
	v, ok := s[key].(bool)
	return v, ok
}

// SignalsInput captures the raw body so it can be parsed before streaming.
type SignalsInput struct {
	RawBody []byte
}
