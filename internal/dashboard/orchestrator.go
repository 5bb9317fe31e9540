package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/healthfin/healthfin/internal/access"
	"github.com/healthfin/healthfin/internal/periods"
)

// ScopeResolver resolves the facility IDs visible to a user.
type ScopeResolver interface {
	Resolve(ctx context.Context, filter access.ScopeFilter, user access.UserContext) ([]int64, error)
}

// ComponentObserver records component runs.
type ComponentObserver interface {
	ObserveComponent(component string, elapsed time.Duration, failed bool)
}

// Orchestrator fans dashboard components out concurrently.
type Orchestrator struct {
	resolver   ScopeResolver
	periods    periods.Repository
	components map[string]Component
	observer   ComponentObserver
	logger     *slog.Logger
	now        func() time.Time
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithObserver attaches a component observer.
func WithObserver(observer ComponentObserver) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// WithClock overrides the clock used for timings.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator wires an Orchestrator with a component registry.
func NewOrchestrator(resolver ScopeResolver, periodRepo periods.Repository, components map[string]Component, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		resolver:   resolver,
		periods:    periodRepo,
		components: components,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Names lists the registered component names.
func (o *Orchestrator) Names() []string {
	names := make([]string, 0, len(o.components))
	for name := range o.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fetch validates the filter, resolves scope and period once, then runs
// every requested component concurrently. Component failures become error
// entries; only validation, scope and period failures fail the request.
// An empty component list fetches every registered component.
func (o *Orchestrator) Fetch(ctx context.Context, components []string, filter access.ScopeFilter, user access.UserContext) (Response, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter = access.NarrowScope(filter, user)
	ids, err := o.resolver.Resolve(ctx, filter, user)
	if err != nil {
		return nil, err
	}
	period, err := periods.NewLookup(o.periods).Resolve(ctx, filter.PeriodID)
	if err != nil {
		return nil, err
	}
	req := Request{Filter: filter, User: user, FacilityIDs: ids, Period: period}

	names := uniqueNames(components)
	if len(names) == 0 {
		names = o.Names()
	}
	results := make([]ComponentResult, len(names))

	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i] = o.run(ctx, name, req)
			return nil
		})
	}
	_ = g.Wait()

	resp := make(Response, len(names))
	for i, name := range names {
		resp[name] = results[i]
	}
	return resp, nil
}

func (o *Orchestrator) run(ctx context.Context, name string, req Request) (result ComponentResult) {
	component, ok := o.components[name]
	if !ok {
		return ComponentResult{Error: true, Message: "Unknown component: " + name}
	}
	start := o.now()
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("dashboard component panicked",
				slog.String("component", name),
				slog.Any("panic", rec))
			result = ComponentResult{Error: true, Message: fmt.Sprintf("component %s failed unexpectedly", name)}
		}
		if o.observer != nil {
			o.observer.ObserveComponent(name, o.now().Sub(start), result.Error)
		}
	}()

	data, err := component(ctx, req)
	if err != nil {
		o.logger.Warn("dashboard component failed",
			slog.String("component", name),
			slog.Any("error", err))
		return ComponentResult{Error: true, Message: err.Error()}
	}
	return ComponentResult{Data: data}
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
