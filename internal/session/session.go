// Package session holds the map session state behind the control panel:
// loaded record sets, filter criteria, layer visibility and style caches.
//
// A Controller is the single owner of that state. Every operation takes the
// controller lock for its whole duration, so operations run one at a time and
// each sees the effects of the previous one.
package session

import (
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-survey/internal/filter"
	"github.com/joeblew999/plat-survey/internal/metrics"
	"github.com/joeblew999/plat-survey/internal/style"
)

var (
	ErrAlreadyLoaded = eris.New("session: households already loaded")
	ErrUnknownLayer  = eris.New("session: unknown layer")
	ErrNotFound      = eris.New("session: record not found")
)

// Phase is the household set lifecycle. The set is frozen once Ready.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseCulled  Phase = "culled"
	PhaseReady   Phase = "ready"
)

// Config configures a controller.
type Config struct {
	// CullThreshold drops households with FID >= CullThreshold after load.
	// Zero disables culling.
	CullThreshold int
}

// Styled pairs a record with its style. Style is nil when the record is
// hidden.
type Styled struct {
	Record filter.Record
	Tier   filter.Tier
	Style  *style.Descriptor
}

// Hidden reports whether the record must not be drawn.
func (s Styled) Hidden() bool {
	return s.Style == nil
}

// Stats is a consistent snapshot of the household counters.
type Stats struct {
	Phase    Phase           `json:"phase" doc:"Household set lifecycle phase" example:"ready"`
	Total    int             `json:"total" doc:"Households in the set" example:"100"`
	Visible  int             `json:"visible" doc:"Households visible under the criteria" example:"42"`
	Criteria filter.Criteria `json:"criteria" doc:"Current criteria"`
	Bounds   []float64       `json:"bounds,omitempty" doc:"Bounding box of visible households [minX, minY, maxX, maxY]"`
}

// ReadyFunc is called, outside the controller lock, once households are Ready.
type ReadyFunc func(records []filter.Record)

// Controller owns the session state.
type Controller struct {
	mu         sync.Mutex
	cfg        Config
	phase      Phase
	households []filter.Record
	boundary   []filter.Record
	buffer     []filter.Record
	criteria   filter.Criteria
	layers     map[Layer]bool
	tiers      *style.Cache[filter.Tier]
	ramp       *style.Cache[int]
	bus        *EventBus
	onReady    []ReadyFunc
}

// New creates a controller in the loading phase with default criteria and
// every layer visible.
func New(cfg Config) *Controller {
	layers := make(map[Layer]bool, len(Layers))
	for _, l := range Layers {
		layers[l] = true
	}
	return &Controller{
		cfg:      cfg,
		phase:    PhaseLoading,
		criteria: filter.DefaultCriteria(),
		layers:   layers,
		tiers:    style.NewTierCache(),
		ramp:     style.NewRampCache(style.BoundaryRamp),
		bus:      NewEventBus(),
	}
}

// Bus returns the controller's event bus.
func (c *Controller) Bus() *EventBus {
	return c.bus
}

// OnReady registers fn to run each time households reach Ready.
func (c *Controller) OnReady(fn ReadyFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReady = append(c.onReady, fn)
}

// Phase returns the household lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// OnLoadComplete moves the household set through Loaded, Culled and Ready.
// It runs once; later calls return ErrAlreadyLoaded and leave the set alone.
func (c *Controller) OnLoadComplete(records []filter.Record) error {
	c.mu.Lock()
	if c.phase != PhaseLoading {
		c.mu.Unlock()
		return ErrAlreadyLoaded
	}

	events := []Event{}
	c.households = records
	c.phase = PhaseLoaded
	events = append(events, Event{Resource: "households", Action: "loaded"})

	if c.cfg.CullThreshold > 0 {
		var removed int
		c.households, removed = filter.Cull(c.households, float64(c.cfg.CullThreshold))
		c.phase = PhaseCulled
		metrics.CulledHouseholdsTotal.Add(float64(removed))
		events = append(events, Event{Resource: "households", Action: "culled"})
		zap.L().Info("households culled",
			zap.Int("threshold", c.cfg.CullThreshold),
			zap.Int("removed", removed),
			zap.Int("kept", len(c.households)),
		)
	}

	c.phase = PhaseReady
	visible := c.recountLocked()
	events = append(events, Event{Resource: "households", Action: "ready"})
	ready := c.households
	hooks := append([]ReadyFunc(nil), c.onReady...)
	c.mu.Unlock()

	zap.L().Info("households ready", zap.Int("total", len(ready)), zap.Int("visible", visible))
	for _, e := range events {
		c.bus.Publish(e)
	}
	for _, fn := range hooks {
		fn(ready)
	}
	return nil
}

// OnLoadFailed records a failed household load. The set stays empty and
// queries keep answering zero.
func (c *Controller) OnLoadFailed(err error) {
	zap.L().Error("household load failed", zap.Error(err))
	c.bus.Publish(Event{Resource: "households", Action: "failed"})
}

// SetBoundary replaces the boundary polygon set.
func (c *Controller) SetBoundary(records []filter.Record) {
	c.mu.Lock()
	c.boundary = records
	c.mu.Unlock()
	c.bus.Publish(Event{Resource: "boundary", Action: "loaded"})
}

// SetBuffer replaces the buffer polygon set.
func (c *Controller) SetBuffer(records []filter.Record) {
	c.mu.Lock()
	c.buffer = records
	c.mu.Unlock()
	c.bus.Publish(Event{Resource: "buffer", Action: "loaded"})
}

// Criteria returns the current criteria.
func (c *Controller) Criteria() filter.Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria
}

// SetCriteria changes one selector and returns the new visible count.
func (c *Controller) SetCriteria(sel filter.Selector, value string) (int, error) {
	c.mu.Lock()
	next, err := c.criteria.With(sel, value)
	if err != nil {
		c.mu.Unlock()
		return 0, err
	}
	c.criteria = next
	visible := c.recountLocked()
	c.mu.Unlock()

	metrics.CriteriaChangesTotal.WithLabelValues(strings.ToLower(string(sel))).Inc()
	c.bus.Publish(Event{Resource: "criteria", Action: "changed", ID: string(sel)})
	return visible, nil
}

// OnFilterChanged replaces both selectors at once and returns the new visible
// count. Empty values are taken as "all".
func (c *Controller) OnFilterChanged(criteria filter.Criteria) int {
	if criteria.Ventilation == "" {
		criteria.Ventilation = filter.All
	}
	if criteria.Fuel == "" {
		criteria.Fuel = filter.All
	}

	c.mu.Lock()
	prev := c.criteria
	c.criteria = criteria
	visible := c.recountLocked()
	c.mu.Unlock()

	for _, sel := range filter.Selectors {
		if prev.Value(sel) != criteria.Value(sel) {
			metrics.CriteriaChangesTotal.WithLabelValues(string(sel)).Inc()
		}
	}
	c.bus.Publish(Event{Resource: "criteria", Action: "changed"})
	return visible
}

// Reset restores both selectors to "all" and returns the visible count.
func (c *Controller) Reset() int {
	c.mu.Lock()
	c.criteria = filter.DefaultCriteria()
	visible := c.recountLocked()
	c.mu.Unlock()

	c.bus.Publish(Event{Resource: "criteria", Action: "reset"})
	return visible
}

// VisibleCount rescans the households under the current criteria. It is
// zero until the set is Ready.
func (c *Controller) VisibleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recountLocked()
}

// Stats returns phase, totals and the bounds of visible households.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Phase: c.phase, Criteria: c.criteria}
	if c.phase != PhaseReady {
		return s
	}
	s.Total = len(c.households)

	var bound orb.Bound
	seen := false
	for i, d := range filter.DecideAll(c.households, c.criteria) {
		if !d.Visible {
			continue
		}
		s.Visible++
		g := c.households[i].Geometry
		if g == nil {
			continue
		}
		if !seen {
			bound = g.Bound()
			seen = true
		} else {
			bound = bound.Union(g.Bound())
		}
	}
	metrics.FilterPassesTotal.Inc()
	metrics.VisibleHouseholds.Set(float64(s.Visible))
	if seen {
		s.Bounds = []float64{bound.Min.X(), bound.Min.Y(), bound.Max.X(), bound.Max.Y()}
	}
	return s
}

// Render decides every household under the current criteria. Visible records
// get the cached style for their tier; hidden ones get nil.
func (c *Controller) Render() []Styled {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseReady {
		return []Styled{}
	}
	decisions := filter.DecideAll(c.households, c.criteria)
	metrics.FilterPassesTotal.Inc()

	out := make([]Styled, len(c.households))
	for i, r := range c.households {
		out[i] = Styled{Record: r}
		if d := decisions[i]; d.Visible {
			out[i].Tier = d.Tier
			out[i].Style = c.tiers.Get(d.Tier)
		}
	}
	return out
}

// StyledHousehold looks up one household and decides it under the current
// criteria in a single step. The style comes from the tier cache.
func (c *Controller) StyledHousehold(id string) (Styled, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range c.households {
		if r.ID != id {
			continue
		}
		out := Styled{Record: r}
		if d := filter.Decide(r, c.criteria); d.Visible {
			out.Tier = d.Tier
			out.Style = c.tiers.Get(d.Tier)
		}
		return out, nil
	}
	return Styled{}, eris.Wrapf(ErrNotFound, "household %q", id)
}

// Boundary returns the boundary polygons with their styles. A single polygon
// uses the fixed boundary style; several are coloured by id along the ramp.
func (c *Controller) Boundary() []Styled {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Styled, len(c.boundary))
	for i, r := range c.boundary {
		out[i] = Styled{Record: r, Style: &style.Boundary}
		if len(c.boundary) > 1 {
			id, _ := r.Number(filter.FieldFID)
			out[i].Style = c.ramp.Get(int(id))
		}
	}
	return out
}

// Buffer returns the buffer polygons with the buffer style.
func (c *Controller) Buffer() []Styled {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Styled, len(c.buffer))
	for i, r := range c.buffer {
		out[i] = Styled{Record: r, Style: &style.Buffer}
	}
	return out
}

// CacheStats returns the counters of both style caches.
func (c *Controller) CacheStats() []style.CacheStats {
	return []style.CacheStats{c.tiers.Stats(), c.ramp.Stats()}
}

// CacheStatsFuncs adapts the style caches for metrics.NewCacheCollector.
func (c *Controller) CacheStatsFuncs() []metrics.StatsFunc {
	funcs := []metrics.StatsFunc{}
	for _, stats := range []func() style.CacheStats{c.tiers.Stats, c.ramp.Stats} {
		funcs = append(funcs, func() (string, int, int64, int64) {
			s := stats()
			return s.Name, s.Entries, s.Hits, s.Misses
		})
	}
	return funcs
}

func (c *Controller) recountLocked() int {
	if c.phase != PhaseReady {
		return 0
	}
	n := filter.Count(c.households, c.criteria)
	metrics.FilterPassesTotal.Inc()
	metrics.VisibleHouseholds.Set(float64(n))
	return n
}
