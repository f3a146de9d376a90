package influxrel

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/influxrel/client"
)

// Record is one decoded data point, tag values merged with measured values.
type Record map[string]any

// Relation accumulates chained query clauses against one Metrics entity and
// renders, executes and decodes the resulting query. A relation belongs to
// one logical caller; it is not safe for concurrent mutation.
//
// Lifecycle: building (chaining) until the first load, then the fetched
// records are cached. Reload re-queries; further chaining after a load is
// undefined.
type Relation struct {
	metrics  *Metrics
	values   *ValueSet
	instance *Point

	shards  []client.Series
	records []Record
	loaded  bool
	null    bool
}

// NewRelation builds a relation for a descriptor. Non-empty attrs seed both
// the prototype point and an initial where clause.
func NewRelation(m *Metrics, attrs Cond) *Relation {
	r := &Relation{
		metrics: m,
		values:  newValueSet(),
	}
	r.instance = m.NewPoint(attrs)
	if len(attrs) > 0 {
		r.Where(attrs)
	}
	return r
}

// Clone returns an unloaded copy with its own value set. The prototype point
// is shared; it is only read for series resolution.
func (r *Relation) Clone() *Relation {
	return &Relation{
		metrics:  r.metrics,
		values:   r.values.Clone(),
		instance: r.instance,
		null:     r.null,
	}
}

// Metrics returns the owning descriptor.
func (r *Relation) Metrics() *Metrics {
	return r.metrics
}

// Values exposes the accumulated value set.
func (r *Relation) Values() *ValueSet {
	return r.values
}

// Select appends select-list terms. De-duplication happens on render.
func (r *Relation) Select(fields ...string) *Relation {
	r.values.Append(keySelect, fields...)
	return r
}

// Group appends group-by fields.
func (r *Relation) Group(fields ...string) *Relation {
	r.values.Append(keyGroup, fields...)
	return r
}

// Order appends order entries. Accepts a raw string fragment or a Cond of
// field to direction; map keys render in sorted order.
func (r *Relation) Order(val any) *Relation {
	switch v := val.(type) {
	case string:
		r.values.Append(keyOrder, v)
	case Cond:
		for _, key := range sortedKeys(v) {
			r.values.Append(keyOrder, fmt.Sprintf("%s %v", key, v[key]))
		}
	case map[string]any:
		r.Order(Cond(v))
	}
	return r
}

// Limit caps the number of returned points.
func (r *Relation) Limit(n int) *Relation {
	r.values.SetSingle(keyLimit, n)
	return r
}

// Offset skips the first n points.
func (r *Relation) Offset(n int) *Relation {
	r.values.SetSingle(keyOffset, n)
	return r
}

// SLimit caps the number of returned series.
func (r *Relation) SLimit(n int) *Relation {
	r.values.SetSingle(keySLimit, n)
	return r
}

// SOffset skips the first n series.
func (r *Relation) SOffset(n int) *Relation {
	r.values.SetSingle(keySOffset, n)
	return r
}

// Fill sets the fill value emitted after the group-by clause.
func (r *Relation) Fill(val any) *Relation {
	r.values.SetSingle(keyFill, val)
	return r
}

// From overrides the series the query reads from. Accepts the same forms as
// a descriptor series value.
func (r *Relation) From(series any) *Relation {
	r.values.SetSingle(keyFrom, series)
	return r
}

// Timezone sets the TZ clause. Blank input is a no-op.
func (r *Relation) Timezone(tz string) *Relation {
	if strings.TrimSpace(tz) == "" {
		return r
	}
	r.values.SetSingle(keyTimezone, tz)
	return r
}

// supportedEpochFormats is the closed set accepted by Epoch.
var supportedEpochFormats = map[string]struct{}{
	"h": {}, "m": {}, "s": {}, "ms": {}, "u": {}, "ns": {},
}

// Epoch selects the timestamp format of returned points. Values outside the
// supported set are ignored, leaving the format unset.
func (r *Relation) Epoch(format string) *Relation {
	if _, ok := supportedEpochFormats[format]; !ok {
		return r
	}
	r.values.SetSingle(keyEpoch, format)
	return r
}

// Normalized makes decoding return the backend's native grouped shape
// instead of flattened records.
func (r *Relation) Normalized() *Relation {
	r.values.SetSingle(keyNormalized, true)
	return r
}

// IsNormalized reports whether Normalized was requested.
func (r *Relation) IsNormalized() bool {
	return r.values.Bool(keyNormalized)
}

// HasCalculations reports whether any aggregate function was added to the
// select list.
func (r *Relation) HasCalculations() bool {
	return r.values.Bool(keyHasCalculations)
}

// IsNullRelation reports whether the relation is in the terminal
// guaranteed-empty state.
func (r *Relation) IsNullRelation() bool {
	return r.null
}

// Build produces a detached point templated on the relation's prototype with
// the given overrides. The point is not queued for writing.
func (r *Relation) Build(attrs Cond) *Point {
	p := r.instance.Dup()
	for k, v := range attrs {
		p.Set(k, v)
	}
	return p
}

// New is an alias for Build.
func (r *Relation) New(attrs Cond) *Point {
	return r.Build(attrs)
}

// Write builds a point and persists it. Validation failures return
// (false, nil); see Point.Write.
func (r *Relation) Write(ctx context.Context, attrs Cond) (bool, error) {
	return r.Build(attrs).Write(ctx)
}

// WriteStrict builds a point and persists it, surfacing validation errors.
func (r *Relation) WriteStrict(ctx context.Context, attrs Cond) (*Point, error) {
	p := r.Build(attrs)
	if err := p.WriteStrict(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Merge folds another relation's value store into this one: multi-value
// lists concatenate and de-duplicate, fanout maps merge with overwrite,
// single values overwrite when the other relation set them. A nil other is
// a no-op, which is how blank-guarded scopes compose.
func (r *Relation) Merge(other *Relation) *Relation {
	if other == nil {
		return r
	}
	r.values.Merge(other.values)
	if other.null {
		r.null = true
	}
	return r
}

// ToSQL renders the accumulated values into query text. Rendering is
// deterministic and the clause order is fixed: select, from, where, group
// by, fill, order by, limit, offset, slimit, soffset, timezone.
func (r *Relation) ToSQL() string {
	parts := []string{"select"}

	selects := uniqStrings(append([]string(nil), r.values.List(keySelect)...))
	if len(selects) == 0 {
		selects = []string{"*"}
	}
	parts = append(parts, strings.Join(selects, ", "))

	parts = append(parts, "from "+r.seriesName())

	if wheres := r.values.List(keyWhere); len(wheres) > 0 {
		parts = append(parts, "where "+strings.Join(wheres, " and "))
	}

	timeVal, hasTime := r.values.Single(keyTime)
	groups := r.values.List(keyGroup)
	if len(groups) > 0 || hasTime {
		var fields []string
		if hasTime {
			fields = append(fields, fmt.Sprintf("time(%v)", timeVal))
		}
		fields = uniqStrings(append(fields, groups...))
		parts = append(parts, "group by "+strings.Join(fields, ", "))
	}

	if fill, ok := r.values.Single(keyFill); ok {
		parts = append(parts, fmt.Sprintf("fill(%v)", fill))
	}

	if orders := r.values.List(keyOrder); len(orders) > 0 {
		parts = append(parts, "order by "+strings.Join(uniqStrings(append([]string(nil), orders...)), ","))
	}

	if limit, ok := r.values.Single(keyLimit); ok {
		parts = append(parts, fmt.Sprintf("limit %v", limit))
	}
	if offset, ok := r.values.Single(keyOffset); ok {
		parts = append(parts, fmt.Sprintf("offset %v", offset))
	}
	if slimit, ok := r.values.Single(keySLimit); ok {
		parts = append(parts, fmt.Sprintf("slimit %v", slimit))
	}
	if soffset, ok := r.values.Single(keySOffset); ok {
		parts = append(parts, fmt.Sprintf("soffset %v", soffset))
	}
	if tz, ok := r.values.Single(keyTimezone); ok {
		parts = append(parts, fmt.Sprintf("TZ('%v')", tz))
	}

	return strings.Join(parts, " ")
}

// seriesName resolves the from-clause series: fanout-constructed names take
// precedence, then an explicit From override, then the descriptor's series.
func (r *Relation) seriesName() string {
	if r.values.Bool(keyHasFanout) {
		return r.fanoutSeriesName()
	}
	if from, ok := r.values.Single(keyFrom); ok {
		return r.metrics.quoteSeries(from, r.instance, false)
	}
	return r.metrics.quoteSeries(r.metrics.series, r.instance, false)
}

// Load executes the query and caches the decoded records. A null relation
// short-circuits to an empty result without contacting the backend.
func (r *Relation) Load(ctx context.Context) error {
	if r.null {
		r.shards = nil
		r.records = nil
		r.loaded = true
		return nil
	}

	c := r.metrics.Client()
	if c == nil {
		return fmt.Errorf("no client configured for %q", r.metrics.rawSeries(r.instance))
	}

	epoch, _ := r.values.Single(keyEpoch)
	epochStr, _ := epoch.(string)

	shards, err := c.Query(ctx, r.ToSQL(), client.QueryOptions{
		Denormalize: !r.IsNormalized(),
		Epoch:       epochStr,
	})
	if err != nil {
		return fmt.Errorf("load relation: %w", err)
	}

	r.shards = shards
	r.records = r.decode(shards)
	r.loaded = true
	return nil
}

// Records triggers Load on first access and returns the cached decoded
// records thereafter.
func (r *Relation) Records(ctx context.Context) ([]Record, error) {
	if !r.loaded {
		if err := r.Load(ctx); err != nil {
			return nil, err
		}
	}
	return r.records, nil
}

// Shards returns the backend's raw shards, loading on first access.
func (r *Relation) Shards(ctx context.Context) ([]client.Series, error) {
	if !r.loaded {
		if err := r.Load(ctx); err != nil {
			return nil, err
		}
	}
	return r.shards, nil
}

// Reload discards the cache and queries again.
func (r *Relation) Reload(ctx context.Context) error {
	r.loaded = false
	r.shards = nil
	r.records = nil
	return r.Load(ctx)
}

// Loaded reports whether results have been fetched (or short-circuited).
func (r *Relation) Loaded() bool {
	return r.loaded || r.null
}

// IsEmpty reports whether the relation matches any point. When unloaded it
// probes on a copy with the select list cleared and limit 1, leaving the
// caller-visible relation untouched.
func (r *Relation) IsEmpty(ctx context.Context) (bool, error) {
	if r.loaded {
		return len(r.records) == 0, nil
	}
	probe := r.Clone()
	probe.values.ClearList(keySelect)
	probe.Limit(1)
	records, err := probe.Records(ctx)
	if err != nil {
		return false, err
	}
	return len(records) == 0, nil
}

// DeleteAll issues a destructive query. Without a time predicate it drops
// every matching series; with one it deletes only the matching points.
// Dropping a series discards all history including data outside any time
// range, so the drop form is only safe when no time restriction exists.
func (r *Relation) DeleteAll(ctx context.Context) (string, error) {
	form := "drop series"
	if r.whereContainsTime() {
		form = "delete"
	}

	parts := []string{form}
	parts = append(parts, "from "+r.metrics.quoteSeries(r.metrics.series, r.instance, false))
	if wheres := r.values.List(keyWhere); len(wheres) > 0 {
		parts = append(parts, "where "+strings.Join(wheres, " and "))
	}
	query := strings.Join(parts, " ")

	c := r.metrics.Client()
	if c == nil {
		return query, fmt.Errorf("no client configured for %q", r.metrics.rawSeries(r.instance))
	}
	if _, err := c.Query(ctx, query, client.QueryOptions{}); err != nil {
		return query, fmt.Errorf("delete all: %w", err)
	}
	return query, nil
}

// decode flattens raw shards into records: each row merged with the shard's
// tag map, then with fanout key values recovered from the shard name. Shards
// concatenate in backend order; rows keep their per-shard order. Normalized
// relations get one record per shard in the native grouped shape.
func (r *Relation) decode(shards []client.Series) []Record {
	if r.IsNormalized() {
		out := make([]Record, 0, len(shards))
		for _, shard := range shards {
			out = append(out, Record{
				"name":   shard.Name,
				"tags":   shard.Tags,
				"values": shard.Rows,
			})
		}
		return out
	}

	fanoutActive := r.values.Bool(keyHasFanout)
	var out []Record
	for _, shard := range shards {
		var captures map[string]string
		if fanoutActive {
			captures = r.metrics.fanoutCaptures(shard.Name, r.instance)
		}
		for _, row := range shard.Rows {
			rec := make(Record, len(row)+len(shard.Tags)+len(captures))
			for k, v := range row {
				rec[k] = v
			}
			for k, v := range shard.Tags {
				rec[k] = v
			}
			for k, v := range captures {
				rec[k] = v
			}
			out = append(out, rec)
		}
	}
	return out
}

// sortedKeys returns a Cond's keys sorted, the deterministic iteration order
// used everywhere a condition map is rendered.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
