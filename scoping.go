package influxrel

import "context"

// ScopeRegistry holds the in-flight current scope per entity descriptor for
// one logical execution context. It travels inside a context.Context, so two
// goroutines querying the same descriptor never observe each other's scope;
// isolation, not locking, is the correctness mechanism here.
type ScopeRegistry struct {
	current map[*Metrics]*Relation
}

// NewScopeRegistry returns an empty registry.
func NewScopeRegistry() *ScopeRegistry {
	return &ScopeRegistry{current: make(map[*Metrics]*Relation)}
}

// Current returns the current scope for a descriptor, nil when absent.
func (s *ScopeRegistry) Current(m *Metrics) *Relation {
	return s.current[m]
}

// SetCurrent installs (or, with nil, clears) the current scope for a
// descriptor.
func (s *ScopeRegistry) SetCurrent(m *Metrics, rel *Relation) {
	if rel == nil {
		delete(s.current, m)
		return
	}
	s.current[m] = rel
}

type scopeRegistryKey struct{}

// WithScopeRegistry returns a context carrying the given registry.
func WithScopeRegistry(ctx context.Context, reg *ScopeRegistry) context.Context {
	return context.WithValue(ctx, scopeRegistryKey{}, reg)
}

// scopeRegistry extracts the registry from ctx, nil when absent.
func scopeRegistry(ctx context.Context) *ScopeRegistry {
	reg, _ := ctx.Value(scopeRegistryKey{}).(*ScopeRegistry)
	return reg
}

// CurrentScope returns the current scope for a descriptor on this context,
// nil when no scoping block is active.
func CurrentScope(ctx context.Context, m *Metrics) *Relation {
	if reg := scopeRegistry(ctx); reg != nil {
		return reg.Current(m)
	}
	return nil
}

// Scoping runs fn with the receiver installed as the current scope for its
// entity, restoring the previous scope on every exit path including panics.
// The context handed to fn carries the registry; nested scope evaluation
// composes through it.
func (r *Relation) Scoping(ctx context.Context, fn func(ctx context.Context) *Relation) *Relation {
	reg := scopeRegistry(ctx)
	if reg == nil {
		reg = NewScopeRegistry()
		ctx = WithScopeRegistry(ctx, reg)
	}

	previous := reg.Current(r.metrics)
	reg.SetCurrent(r.metrics, r)
	defer reg.SetCurrent(r.metrics, previous)

	return fn(ctx)
}

// Scoped forwards to a named scope registered on the owning descriptor,
// merging the scope's relation into this one under a temporary scoping
// block. This is the explicit extension point replacing dynamic method
// forwarding; unknown names degrade to a logged no-op.
func (r *Relation) Scoped(ctx context.Context, name string, args ...any) *Relation {
	fn, ok := r.metrics.scopes[name]
	if !ok {
		logger.Warn().Str("scope", name).Msg("unknown named scope")
		return r
	}
	r.Merge(r.Scoping(ctx, func(ctx context.Context) *Relation {
		return fn(ctx, r.metrics, args...)
	}))
	return r
}
