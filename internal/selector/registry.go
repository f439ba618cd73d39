package selector

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"track-downloader/internal/config"
	"track-downloader/internal/entity"
	"track-downloader/internal/ports"
	"track-downloader/pkg/apperr"
	"track-downloader/pkg/logg"
	"track-downloader/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	registryName   = "SelectorRegistry"
	registryTracer = "selector.registry"
	staleRetries   = 1
)

// Options control a single resolution. Multiple=false trims the result to
// one element; a positive Wait blocks per candidate until something is
// attached or the wait elapses.
type Options struct {
	Multiple bool
	Wait     time.Duration
}

func All() Options {
	return Options{Multiple: true}
}

func One() Options {
	return Options{Multiple: false}
}

func (o Options) WithWait(wait time.Duration) Options {
	o.Wait = wait

	return o
}

// Match is the result of Resolve. An empty Match is the normal "not found"
// outcome, not an error.
type Match struct {
	Name     string
	Locator  entity.Locator
	Elements []ports.Element
}

func (m Match) Found() bool {
	return len(m.Elements) > 0
}

func (m Match) First() ports.Element {
	if len(m.Elements) == 0 {
		return nil
	}

	return m.Elements[0]
}

type outcomeKind int

const (
	outcomeEmpty outcomeKind = iota
	outcomeFound
	outcomeInvalid
)

type outcome struct {
	kind     outcomeKind
	elements []ports.Element
	reason   string
}

// Registry maps logical element names to ordered locator candidates,
// resolves names against a scope, and moves whichever candidate works to
// the front of its list, persisting the new order.
type Registry struct {
	logger *zap.Logger
	tracer trace.Tracer
	store  ports.SelectorStore

	mu       sync.Mutex
	locators map[string][]entity.Locator
	stats    map[string]map[string]*entity.SelectorStat

	saveMu sync.Mutex
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
	Store  ports.SelectorStore
}

func NewRegistry(params Params) *Registry {
	var defaults map[string][]string
	if params.Config.SelectorConfig.UseDefaults {
		defaults = DefaultLocators()
	}

	return New(context.Background(), params.Store, params.Logger, defaults)
}

// New builds a registry from store, falling back to defaults (which may be
// nil) when the store cannot be read. Names present in defaults but absent
// from the store are added.
func New(ctx context.Context, store ports.SelectorStore, logger *zap.Logger, defaults map[string][]string) *Registry {
	r := &Registry{
		logger:   logger.With(zap.String(logg.Layer, registryName)),
		tracer:   otel.Tracer(registryTracer),
		store:    store,
		locators: make(map[string][]entity.Locator),
		stats:    make(map[string]map[string]*entity.SelectorStat),
	}

	r.load(ctx, defaults)

	return r
}

func (r *Registry) load(ctx context.Context, defaults map[string][]string) {
	const op = "load"
	logger := r.logger.With(zap.String(logg.Operation, op))

	stored, err := r.store.Load(ctx)
	if err != nil {
		if len(defaults) > 0 {
			logger.Warn("Selector store unavailable, using default selectors", zap.Error(err))
		} else {
			logger.Warn("Selector store unavailable, starting with no selectors", zap.Error(err))
		}

		stored = nil
	} else {
		logger.Info("Loaded selectors from store", zap.Int("names", len(stored)))
	}

	for name, raws := range stored {
		locators := entity.ParseLocators(raws)
		if len(locators) == 0 {
			logger.Warn("Ignoring empty locator list", zap.String(logg.SelectorName, name))

			continue
		}

		r.locators[name] = locators
	}

	for name, raws := range defaults {
		if _, ok := r.locators[name]; ok {
			continue
		}

		if locators := entity.ParseLocators(raws); len(locators) > 0 {
			r.locators[name] = locators
		}
	}
}

// Resolve tries each locator for name against scope, in order, and returns
// the visible elements of the first one that yields any. An unknown name or
// an exhausted list gives an empty Match. Only context cancellation is
// returned as an error.
func (r *Registry) Resolve(ctx context.Context, name string, scope ports.Scope, opts Options) (match Match, err error) {
	const op = "Resolve"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.SelectorName, name))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op,
		attribute.String("selector.name", name),
		attribute.Bool("selector.multiple", opts.Multiple),
		attribute.Int64("selector.wait_ms", opts.Wait.Milliseconds()))
	defer func() {
		step.SetAttributes(attribute.Bool("selector.found", match.Found()))
		step.End(err)
	}()

	match = Match{Name: name}

	if scope == nil {
		return match, apperr.InvalidReqError(op, "scope", errors.New("scope is nil"))
	}

	candidates, ok := r.candidates(name)
	if !ok {
		logger.Warn("No selectors configured for logical name", zap.String(logg.Code, apperr.CodeUnknownSelector))
		step.AddEvent("unknown selector", attribute.String("error.code", apperr.CodeUnknownSelector))

		return match, nil
	}

	for _, locator := range candidates {
		if err := ctx.Err(); err != nil {
			return Match{Name: name}, contextError(op, err)
		}

		result := r.evaluate(ctx, scope, locator, opts.Wait)

		if err := ctx.Err(); err != nil {
			return Match{Name: name}, contextError(op, err)
		}

		if result.kind != outcomeFound {
			r.record(name, locator, false)
			step.AddEvent("miss",
				attribute.String("selector.locator", locator.Raw),
				attribute.String("reason", result.reason))

			if result.kind == outcomeInvalid {
				logger.Warn("Invalid locator", zap.String(logg.Locator, locator.Raw), zap.String("reason", result.reason))
			}

			continue
		}

		r.record(name, locator, true)
		step.SetAttributes(attribute.String("selector.locator", locator.Raw))

		if r.promote(name, locator) {
			logger.Info("Promoted locator", zap.String(logg.Locator, locator.Raw))
			r.persist(ctx)
		}

		elements := result.elements
		if !opts.Multiple {
			elements = elements[:1]
		}

		match.Locator = locator
		match.Elements = elements

		return match, nil
	}

	logger.Debug("No visible elements for any locator", zap.Int("candidates", len(candidates)))

	return match, nil
}

func contextError(op string, err error) error {
	code := apperr.CodeCancelledByUser
	if errors.Is(err, context.DeadlineExceeded) {
		code = apperr.CodeTimeout
	}

	return apperr.Wrap(op, code, err, map[string]any{
		apperr.MetaReason: "context_done",
		apperr.MetaStage:  apperr.StageResolve,
	})
}

// evaluate runs one candidate, re-running it once when the page re-rendered
// underneath it.
func (r *Registry) evaluate(ctx context.Context, scope ports.Scope, locator entity.Locator, wait time.Duration) outcome {
	var result outcome

	for attempt := 0; attempt <= staleRetries; attempt++ {
		var stale bool

		result, stale = evaluateOnce(ctx, scope, locator, wait)
		if !stale || ctx.Err() != nil {
			return result
		}
	}

	return result
}

func evaluateOnce(ctx context.Context, scope ports.Scope, locator entity.Locator, wait time.Duration) (outcome, bool) {
	elements, err := scope.FindAll(ctx, locator, wait)
	if err != nil {
		switch {
		case apperr.HasCode(err, apperr.CodeStaleElement):
			return outcome{kind: outcomeEmpty, reason: "stale"}, true
		case apperr.HasCode(err, apperr.CodeTimeout):
			return outcome{kind: outcomeEmpty, reason: "wait_timeout"}, false
		default:
			return outcome{kind: outcomeInvalid, reason: err.Error()}, false
		}
	}

	visible := make([]ports.Element, 0, len(elements))
	stale := false

	for _, el := range elements {
		ok, err := el.IsVisible(ctx)
		if err != nil {
			if apperr.HasCode(err, apperr.CodeStaleElement) {
				stale = true
			}

			continue
		}

		if ok {
			visible = append(visible, el)
		}
	}

	switch {
	case len(visible) > 0:
		return outcome{kind: outcomeFound, elements: visible}, false
	case stale:
		return outcome{kind: outcomeEmpty, reason: "stale"}, true
	case len(elements) > 0:
		return outcome{kind: outcomeEmpty, reason: "hidden"}, false
	default:
		return outcome{kind: outcomeEmpty, reason: "no_match"}, false
	}
}

// candidates snapshots the list for name and lazily starts its statistics.
func (r *Registry) candidates(name string) ([]entity.Locator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	locators, ok := r.locators[name]
	if !ok {
		return nil, false
	}

	if _, ok := r.stats[name]; !ok {
		stats := make(map[string]*entity.SelectorStat, len(locators))
		for _, l := range locators {
			stats[l.Raw] = &entity.SelectorStat{}
		}
		r.stats[name] = stats
	}

	out := make([]entity.Locator, len(locators))
	copy(out, locators)

	return out, true
}

func (r *Registry) record(name string, locator entity.Locator, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[name]
	if !ok {
		stats = make(map[string]*entity.SelectorStat)
		r.stats[name] = stats
	}

	stat, ok := stats[locator.Raw]
	if !ok {
		stat = &entity.SelectorStat{}
		stats[locator.Raw] = stat
	}

	if hit {
		stat.Hits++
	} else {
		stat.Misses++
	}
}

// promote moves locator to the front of name's list and reports whether
// the order changed.
func (r *Registry) promote(name string, locator entity.Locator) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	locators := r.locators[name]

	idx := -1
	for i, l := range locators {
		if l.Raw == locator.Raw {
			idx = i

			break
		}
	}

	if idx <= 0 {
		return false
	}

	promoted := locators[idx]
	copy(locators[1:idx+1], locators[:idx])
	locators[0] = promoted

	return true
}

// RecordSuccess puts a locator found outside Resolve at the front of name's
// list and persists. A locator already in the list is left where it is.
func (r *Registry) RecordSuccess(ctx context.Context, name, raw string) {
	const op = "RecordSuccess"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.SelectorName, name), zap.String(logg.Locator, raw))

	if strings.TrimSpace(raw) == "" || name == "" {
		logger.Warn("Ignoring empty selector")

		return
	}

	r.mu.Lock()
	locators := r.locators[name]
	for _, l := range locators {
		if l.Raw == raw {
			r.mu.Unlock()

			return
		}
	}

	added := make([]entity.Locator, 0, len(locators)+1)
	added = append(added, entity.ParseLocator(raw))
	added = append(added, locators...)
	r.locators[name] = added
	r.mu.Unlock()

	logger.Info("Added working selector")
	r.persist(ctx)
}

// persist writes the current order. Failures are logged and dropped: losing
// the learned order only costs extra misses next run.
func (r *Registry) persist(ctx context.Context) {
	const op = "persist"

	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	if err := r.store.Save(ctx, r.Snapshot()); err != nil {
		r.logger.Error("Failed to save selectors", zap.String(logg.Operation, op), zap.Error(err))
	}
}

// Snapshot returns the registry as raw locator lists.
func (r *Registry) Snapshot() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]string, len(r.locators))
	for name, locators := range r.locators {
		out[name] = entity.RawLocators(locators)
	}

	return out
}

// Stats returns a copy of the per-name, per-locator hit and miss counts.
func (r *Registry) Stats() map[string]map[string]entity.SelectorStat {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]map[string]entity.SelectorStat, len(r.stats))
	for name, stats := range r.stats {
		copied := make(map[string]entity.SelectorStat, len(stats))
		for raw, stat := range stats {
			copied[raw] = *stat
		}
		out[name] = copied
	}

	return out
}

func (r *Registry) Locators(name string) []entity.Locator {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entity.Locator, len(r.locators[name]))
	copy(out, r.locators[name])

	return out
}

func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.locators[name]

	return ok
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.locators))
	for name := range r.locators {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
