package engine

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/task"
)

// ErrNoEngine is returned when no engine serves a runtime type.
var ErrNoEngine = errors.New("no engine registered")

// Registry routes sessions to engines by runtime type. It is an Engine itself.
type Registry struct {
	engines  map[string]Engine
	fallback Engine
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register serves runtimeTypes with e. Later registrations win.
func (r *Registry) Register(e Engine, runtimeTypes ...string) *Registry {
	for _, t := range runtimeTypes {
		r.engines[t] = e
	}

	return r
}

// SetDefault serves every runtime type without an explicit registration with e.
func (r *Registry) SetDefault(e Engine) *Registry {
	r.fallback = e
	return r
}

// Types returns the explicitly registered runtime types, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.engines))
	for t := range r.engines {
		types = append(types, t)
	}

	sort.Strings(types)
	return types
}

// Open opens a session on the engine serving settings.Type().
func (r *Registry) Open(ctx context.Context, settings task.Settings) (Session, error) {
	e, ok := r.engines[settings.Type()]
	if !ok {
		e = r.fallback
	}

	if e == nil {
		return nil, errors.Wrapf(ErrNoEngine, "runtime type %q", settings.Type())
	}

	return e.Open(ctx, settings)
}
