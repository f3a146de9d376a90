package influxrel

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/influxrel/client"
)

// Point is one detached data point for a Metrics entity: an attribute
// holder used both as the write template and as the relation's prototype for
// series-name resolution. A point carries no identity beyond its attributes.
type Point struct {
	metrics   *Metrics
	attrs     map[string]any
	timestamp any
	persisted bool
}

// NewPoint builds a detached point with the given attribute overrides. The
// point is not queued anywhere; call Write to persist it.
func (m *Metrics) NewPoint(attrs Cond) *Point {
	p := &Point{metrics: m, attrs: make(map[string]any, len(attrs))}
	for k, v := range attrs {
		p.attrs[k] = v
	}
	return p
}

// Dup returns a detached copy with the same attributes and a clean
// persistence state.
func (p *Point) Dup() *Point {
	out := p.metrics.NewPoint(nil)
	for k, v := range p.attrs {
		out.attrs[k] = v
	}
	out.timestamp = p.timestamp
	return out
}

// Set assigns one attribute.
func (p *Point) Set(name string, val any) {
	p.attrs[name] = val
}

// Get returns one attribute value, nil when absent.
func (p *Point) Get(name string) any {
	return p.attrs[name]
}

// SetTimestamp assigns the point time. Accepts a numeric epoch
// (seconds-scale), a time.Time, or a parseable string.
func (p *Point) SetTimestamp(val any) {
	p.timestamp = val
}

// Persisted reports whether the point has been written.
func (p *Point) Persisted() bool {
	return p.persisted
}

// Values returns the measured (non-tag) attributes.
func (p *Point) Values() map[string]any {
	out := make(map[string]any)
	for k, v := range p.attrs {
		if !p.metrics.IsTag(k) {
			out[k] = v
		}
	}
	return out
}

// Tags returns the tag attributes rendered as strings.
func (p *Point) Tags() map[string]string {
	out := make(map[string]string)
	for k, v := range p.attrs {
		if p.metrics.IsTag(k) {
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

// Validate checks required attributes and the custom validator, returning a
// ValidationError when the point cannot be written.
func (p *Point) Validate() error {
	var missing []string
	for _, name := range p.metrics.required {
		val, ok := p.attrs[name]
		if !ok || val == nil || val == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{Series: p.metrics.rawSeries(p), Missing: missing}
	}
	if p.metrics.validate != nil {
		if err := p.metrics.validate(p); err != nil {
			if IsValidationError(err) {
				return err
			}
			return &ValidationError{Series: p.metrics.rawSeries(p), Reason: err.Error()}
		}
	}
	return nil
}

// Write persists the point. A validation failure is not an error here: it
// returns (false, nil). Re-writing a persisted point and timestamp
// normalization failures are real errors on both write paths.
func (p *Point) Write(ctx context.Context) (bool, error) {
	if p.persisted {
		return false, &DoubleWriteError{Series: p.metrics.rawSeries(p)}
	}
	if p.Validate() != nil {
		return false, nil
	}
	if err := p.writePoint(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// WriteStrict persists the point, returning the ValidationError that Write
// would have swallowed.
func (p *Point) WriteStrict(ctx context.Context) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.persisted {
		return &DoubleWriteError{Series: p.metrics.rawSeries(p)}
	}
	return p.writePoint(ctx)
}

// writePoint partitions attributes into values and tags, normalizes the
// timestamp under the effective precision and hands the payload to the
// client with the descriptor's precision, retention-policy and database
// overrides.
func (p *Point) writePoint(ctx context.Context) error {
	c := p.metrics.Client()
	if c == nil {
		return fmt.Errorf("no client configured for %q", p.metrics.rawSeries(p))
	}

	data := client.PointData{
		Values: p.Values(),
		Tags:   p.Tags(),
	}
	if p.timestamp != nil {
		ts, err := writeTimestamp(p.timestamp, p.metrics.EffectivePrecision())
		if err != nil {
			return err
		}
		data.Timestamp = &ts
	}

	err := c.WritePoint(ctx, p.metrics.rawSeries(p), data,
		p.metrics.precision, p.metrics.retentionPolicy, p.metrics.database)
	if err != nil {
		return fmt.Errorf("write point: %w", err)
	}

	p.persisted = true
	return nil
}
