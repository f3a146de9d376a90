package influxrel

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/influxrel/client"
)

// SeriesFunc resolves a series name from a relation's prototype point at
// render time. It is the explicit replacement for proc-valued series names.
type SeriesFunc func(p *Point) string

// ScopeFunc is a default-scope body. It receives the context carrying the
// current scope and the descriptor, and returns the relation to merge in.
type ScopeFunc func(ctx context.Context, m *Metrics) *Relation

// NamedScopeFunc is a named-scope body registered on a descriptor. A nil
// return is a no-op merge, which lets scopes guard on blank arguments.
type NamedScopeFunc func(ctx context.Context, m *Metrics, args ...any) *Relation

// ValidateFunc is a custom point validator. Return nil for a valid point.
type ValidateFunc func(p *Point) error

// Metrics is the static descriptor of one series-producing entity: series
// name resolution, tag/value attribute classification, retention and
// precision overrides, fanout declaration and the scope tables.
//
// Descriptors are built once at startup via NewMetrics and are immutable
// afterwards; Extend derives a child descriptor with inherited fields copied
// explicitly.
type Metrics struct {
	series          any // string | []string | *regexp.Regexp | SeriesFunc
	retentionPolicy string
	database        string
	precision       string

	tagNames  map[string]struct{}
	attrNames []string
	required  []string
	validate  ValidateFunc

	fanouts     []string
	fanoutDelim string
	fanoutSet   map[string]struct{}

	defaultScopes []ScopeFunc
	scopes        map[string]NamedScopeFunc

	client client.Client
}

// Option configures a Metrics descriptor.
type Option func(*Metrics)

// Tags declares attributes that are indexed tag dimensions. Tag values are
// always rendered single-quoted in predicates and partitioned away from
// measured values on write.
func Tags(names ...string) Option {
	return func(m *Metrics) {
		for _, name := range names {
			m.tagNames[name] = struct{}{}
			m.attrNames = append(m.attrNames, name)
		}
	}
}

// Attributes declares measured value attributes.
func Attributes(names ...string) Option {
	return func(m *Metrics) {
		m.attrNames = append(m.attrNames, names...)
	}
}

// RetentionPolicy sets the named retention policy. It prefixes the series
// name on reads only; writes pass it to the client as an override.
func RetentionPolicy(name string) Option {
	return func(m *Metrics) { m.retentionPolicy = name }
}

// Database overrides the client's default database for writes.
func Database(name string) Option {
	return func(m *Metrics) { m.database = name }
}

// Precision overrides the client's timestamp precision for this entity.
func Precision(p string) Option {
	return func(m *Metrics) { m.precision = p }
}

// Required declares attributes that must be present and non-blank for a
// point to validate.
func Required(names ...string) Option {
	return func(m *Metrics) { m.required = append(m.required, names...) }
}

// ValidateWith installs a custom validator run after the required check.
func ValidateWith(fn ValidateFunc) Option {
	return func(m *Metrics) { m.validate = fn }
}

// FanoutKeys declares the ordered fanout keys. Where-conditions on these
// keys are folded into the series name instead of the where clause.
func FanoutKeys(names ...string) Option {
	return func(m *Metrics) {
		for _, name := range names {
			if _, ok := m.fanoutSet[name]; ok {
				continue
			}
			m.fanoutSet[name] = struct{}{}
			m.fanouts = append(m.fanouts, name)
		}
	}
}

// FanoutDelimiter sets the fanout join delimiter. Default is "_".
func FanoutDelimiter(d string) Option {
	return func(m *Metrics) {
		if d != "" {
			m.fanoutDelim = d
		}
	}
}

// DefaultScope appends a default-scope body. Scopes fold into All in
// declaration order.
func DefaultScope(fn ScopeFunc) Option {
	return func(m *Metrics) {
		if fn != nil {
			m.defaultScopes = append(m.defaultScopes, fn)
		}
	}
}

// Scope registers a named scope in the descriptor's lookup table.
func Scope(name string, fn NamedScopeFunc) Option {
	return func(m *Metrics) {
		if fn != nil {
			m.scopes[name] = fn
		}
	}
}

// WithClient injects the backend client.
func WithClient(c client.Client) Option {
	return func(m *Metrics) { m.client = c }
}

// NewMetrics builds a descriptor for the given series. The series value may
// be a literal string, a []string (rendered as merge(...)), a
// *regexp.Regexp, or a SeriesFunc resolved against the relation's prototype
// point.
func NewMetrics(series any, opts ...Option) *Metrics {
	m := &Metrics{
		series:      series,
		fanoutDelim: "_",
		tagNames:    make(map[string]struct{}),
		fanoutSet:   make(map[string]struct{}),
		scopes:      make(map[string]NamedScopeFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Extend derives a child descriptor. Inherited fields are copied explicitly,
// then opts apply on top; the parent is never mutated.
func (m *Metrics) Extend(opts ...Option) *Metrics {
	child := &Metrics{
		series:          m.series,
		retentionPolicy: m.retentionPolicy,
		database:        m.database,
		precision:       m.precision,
		attrNames:       append([]string(nil), m.attrNames...),
		required:        append([]string(nil), m.required...),
		validate:        m.validate,
		fanouts:         append([]string(nil), m.fanouts...),
		fanoutDelim:     m.fanoutDelim,
		defaultScopes:   append([]ScopeFunc(nil), m.defaultScopes...),
		client:          m.client,
		tagNames:        make(map[string]struct{}, len(m.tagNames)),
		fanoutSet:       make(map[string]struct{}, len(m.fanoutSet)),
		scopes:          make(map[string]NamedScopeFunc, len(m.scopes)),
	}
	for name := range m.tagNames {
		child.tagNames[name] = struct{}{}
	}
	for name := range m.fanoutSet {
		child.fanoutSet[name] = struct{}{}
	}
	for name, fn := range m.scopes {
		child.scopes[name] = fn
	}
	for _, opt := range opts {
		opt(child)
	}
	return child
}

// IsTag reports whether name is a tag attribute.
func (m *Metrics) IsTag(name string) bool {
	_, ok := m.tagNames[name]
	return ok
}

// IsFanout reports whether name is a declared fanout key.
func (m *Metrics) IsFanout(name string) bool {
	_, ok := m.fanoutSet[name]
	return ok
}

// Client returns the injected backend client.
func (m *Metrics) Client() client.Client {
	return m.client
}

// EffectivePrecision resolves the precision used for timestamp
// normalization: descriptor override, then client, then "ns".
func (m *Metrics) EffectivePrecision() string {
	if m.precision != "" {
		return m.precision
	}
	if m.client != nil {
		return m.client.Precision()
	}
	return "ns"
}

// All returns the entry-point relation: the current scope's clone when a
// scoping block is active on ctx, otherwise the default-scoped relation.
func (m *Metrics) All(ctx context.Context) *Relation {
	if rel := CurrentScope(ctx, m); rel != nil {
		return rel.Clone()
	}
	return m.defaultScoped(ctx)
}

// Unscoped returns a fresh relation ignoring default scopes and any current
// scope.
func (m *Metrics) Unscoped() *Relation {
	return NewRelation(m, nil)
}

// defaultScoped folds the registered default scopes, in declaration order,
// into a fresh relation. Each body runs inside a scoping block so nested
// references to All resolve against the relation being built.
func (m *Metrics) defaultScoped(ctx context.Context) *Relation {
	rel := NewRelation(m, nil)
	for _, scope := range m.defaultScopes {
		fn := scope
		rel.Merge(rel.Scoping(ctx, func(ctx context.Context) *Relation {
			return fn(ctx, m)
		}))
	}
	return rel
}

// Scoped invokes a registered named scope: it computes All, evaluates the
// scope body inside a scoping block and merges the result back. Unknown
// names degrade to a warning and return All unchanged; builder-level calls
// never fail.
func (m *Metrics) Scoped(ctx context.Context, name string, args ...any) *Relation {
	rel := m.All(ctx)
	fn, ok := m.scopes[name]
	if !ok {
		logger.Warn().Str("scope", name).Msg("unknown named scope")
		return rel
	}
	rel.Merge(rel.Scoping(ctx, func(ctx context.Context) *Relation {
		return fn(ctx, m, args...)
	}))
	return rel
}

// quoteIdent double-quotes a series identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `\"`) + `"`
}

// quoteSeries renders a series-name value for a from clause (or, with write
// set, for the write path where retention policies are handled out of band).
//
// Resolution rules: a pattern renders as raw pattern text, a list of more
// than one name as merge(...), a single-element list unwraps, a SeriesFunc
// is invoked with the prototype point, and a literal string is quoted with
// the retention-policy prefix on reads.
func (m *Metrics) quoteSeries(val any, p *Point, write bool) string {
	switch v := val.(type) {
	case *regexp.Regexp:
		return "/" + v.String() + "/"
	case SeriesFunc:
		return m.quoteSeries(v(p), p, write)
	case func(p *Point) string:
		return m.quoteSeries(v(p), p, write)
	case []string:
		if len(v) > 1 {
			quoted := make([]string, len(v))
			for i, s := range v {
				quoted[i] = m.quoteSeries(s, p, write)
			}
			return "merge(" + strings.Join(quoted, ",") + ")"
		}
		if len(v) == 1 {
			return m.quoteSeries(v[0], p, write)
		}
		return quoteIdent("")
	case string:
		if !write && m.retentionPolicy != "" {
			return quoteIdent(m.retentionPolicy) + "." + quoteIdent(v)
		}
		return quoteIdent(v)
	default:
		return quoteIdent(fmt.Sprintf("%v", val))
	}
}

// rawSeries resolves the series value down to its plain, unquoted base name.
// Fanout name construction and write paths start from this.
func (m *Metrics) rawSeries(p *Point) string {
	switch v := m.series.(type) {
	case *regexp.Regexp:
		return v.String()
	case SeriesFunc:
		return v(p)
	case func(p *Point) string:
		return v(p)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", m.series)
	}
}
