package influxrel

// Value-set keys. Multi-value keys accumulate ordered string lists, keyed
// values hold string-to-string maps, single-value keys hold one scalar with
// last-write-wins semantics.
const (
	keySelect = "select"
	keyWhere  = "where"
	keyGroup  = "group"
	keyOrder  = "order"

	keyFanout        = "fanout"
	keyFanoutPattern = "fanout_pattern"

	keyFill            = "fill"
	keyTime            = "time"
	keyLimit           = "limit"
	keyOffset          = "offset"
	keySLimit          = "slimit"
	keySOffset         = "soffset"
	keyFrom            = "from"
	keyNormalized      = "normalized"
	keyTimezone        = "timezone"
	keyEpoch           = "epoch"
	keyHasCalculations = "has_calculations"
	keyHasFanout       = "has_fanout"
	keyFanoutRegexp    = "fanout_rxp"
)

var multiValueKeys = []string{keySelect, keyWhere, keyGroup, keyOrder}

var multiKeyKeys = []string{keyFanout, keyFanoutPattern}

var singleValueKeys = []string{
	keyFill, keyTime, keyLimit, keyOffset, keySLimit, keySOffset,
	keyFrom, keyNormalized, keyTimezone, keyEpoch,
	keyHasCalculations, keyHasFanout, keyFanoutRegexp,
}

// ValueSet is the typed accumulator behind a Relation. Every chained builder
// method mutates exactly one of its three stores. Duplicates in multi-value
// lists are kept on insert and collapsed on render, so Merge can concatenate
// freely and still produce de-duplicated output.
type ValueSet struct {
	multi  map[string][]string
	keyed  map[string]map[string]string
	single map[string]any
}

// newValueSet returns an empty value set.
func newValueSet() *ValueSet {
	return &ValueSet{
		multi:  make(map[string][]string),
		keyed:  make(map[string]map[string]string),
		single: make(map[string]any),
	}
}

// List returns the accumulated values for a multi-value key in insertion
// order. The returned slice is the live backing store's copy; use Append to
// mutate.
func (v *ValueSet) List(key string) []string {
	return v.multi[key]
}

// Append adds values to a multi-value key, preserving insertion order.
func (v *ValueSet) Append(key string, vals ...string) {
	v.multi[key] = append(v.multi[key], vals...)
}

// ClearList drops all accumulated values for a multi-value key.
func (v *ValueSet) ClearList(key string) {
	delete(v.multi, key)
}

// Map returns-or-creates the map for a multi-key entry. The returned map is
// live; writes through it are visible to the value set.
func (v *ValueSet) Map(key string) map[string]string {
	m, ok := v.keyed[key]
	if !ok {
		m = make(map[string]string)
		v.keyed[key] = m
	}
	return m
}

// SetSingle sets a single-value key. Subsequent sets overwrite.
func (v *ValueSet) SetSingle(key string, val any) {
	v.single[key] = val
}

// Single returns a single-value key and whether it was set.
func (v *ValueSet) Single(key string) (any, bool) {
	val, ok := v.single[key]
	return val, ok
}

// Bool returns a boolean single value, false when unset or non-boolean.
func (v *ValueSet) Bool(key string) bool {
	b, _ := v.single[key].(bool)
	return b
}

// Clone returns a deep copy. Cloning is what makes a current-scope relation
// reusable: each chain gets its own accumulator.
func (v *ValueSet) Clone() *ValueSet {
	out := newValueSet()
	for key, vals := range v.multi {
		out.multi[key] = append([]string(nil), vals...)
	}
	for key, m := range v.keyed {
		cp := make(map[string]string, len(m))
		for k, val := range m {
			cp[k] = val
		}
		out.keyed[key] = cp
	}
	for key, val := range v.single {
		out.single[key] = val
	}
	return out
}

// Merge folds another value set into this one: multi-value lists concatenate
// then de-duplicate, keyed maps merge with overwrite, single values overwrite
// only when the other set has them.
func (v *ValueSet) Merge(other *ValueSet) {
	if other == nil {
		return
	}
	for _, key := range multiValueKeys {
		if vals := other.multi[key]; len(vals) > 0 {
			v.multi[key] = uniqStrings(append(v.multi[key], vals...))
		}
	}
	for _, key := range multiKeyKeys {
		if m := other.keyed[key]; len(m) > 0 {
			dst := v.Map(key)
			for k, val := range m {
				dst[k] = val
			}
		}
	}
	for _, key := range singleValueKeys {
		if val, ok := other.single[key]; ok {
			v.single[key] = val
		}
	}
}

// uniqStrings removes duplicates by exact string equality, keeping the first
// occurrence's position.
func uniqStrings(vals []string) []string {
	seen := make(map[string]struct{}, len(vals))
	out := vals[:0]
	for _, val := range vals {
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
