package influxrel

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
)

// Cond is a structured predicate: field name to value. Values may be
// scalars, nil (matches-any with flipped negation), *regexp.Regexp, Range,
// or slices (expanded element-wise; an empty slice marks the relation
// null). Keys render in sorted order so output is deterministic.
type Cond map[string]any

// Range is a two-sided comparison bound. ExcludeEnd selects a half-open
// interval.
type Range struct {
	From       any
	To         any
	ExcludeEnd bool
}

// Between builds an inclusive range: field >= from and field <= to.
func Between(from, to any) Range {
	return Range{From: from, To: to}
}

// BetweenExclusive builds a half-open range: field >= from and field < to.
func BetweenExclusive(from, to any) Range {
	return Range{From: from, To: to, ExcludeEnd: true}
}

// timeClauseRe detects a where fragment that restricts the reserved time
// field, which switches DeleteAll from the drop-series to the delete form.
var timeClauseRe = regexp.MustCompile(`\btime\s`)

// Where adds predicates. Each argument is either a raw string fragment
// (parenthesized verbatim) or a Cond. Every accepted predicate is
// independently parenthesized; predicates join with "and" on render.
func (r *Relation) Where(conds ...any) *Relation {
	r.buildWhere(conds, false)
	return r
}

// Not adds negated predicates with the same argument forms as Where.
func (r *Relation) Not(conds ...any) *Relation {
	r.buildWhere(conds, true)
	return r
}

// None forces the null-relation condition: the query renders with a
// guaranteed-false time comparison and Load never contacts the backend.
func (r *Relation) None() *Relation {
	r.values.Append(keyWhere, "("+r.buildNone(false)+")")
	return r
}

func (r *Relation) buildWhere(args []any, negate bool) {
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			r.values.Append(keyWhere, "("+v+")")
		case Cond:
			r.buildCondWhere(v, negate)
		case map[string]any:
			r.buildCondWhere(Cond(v), negate)
		}
	}
}

func (r *Relation) buildCondWhere(cond Cond, negate bool) {
	for _, key := range sortedKeys(cond) {
		val := cond[key]
		if !negate && r.metrics.IsFanout(key) && isFanoutable(val) {
			r.buildFanout(key, val)
			continue
		}
		r.values.Append(keyWhere, "("+r.buildEql(key, val, negate)+")")
	}
}

// buildEql renders one predicate. nil rewrites to a matches-any regex with
// the negation flipped, mirroring "is not null" semantics.
func (r *Relation) buildEql(key string, val any, negate bool) string {
	switch v := val.(type) {
	case nil:
		return r.buildEql(key, regexp.MustCompile(".*"), !negate)
	case *regexp.Regexp:
		op := " =~ "
		if negate {
			op = " !~ "
		}
		return key + op + "/" + v.String() + "/"
	case Range:
		return r.buildRange(key, v, negate)
	}

	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() == 0 {
			return r.buildNone(negate)
		}
		return r.buildIn(key, rv, negate)
	}

	op := " = "
	if negate {
		op = " <> "
	}
	return key + op + r.quoted(val, key)
}

// buildIn expands a non-empty list element-wise: or-joined equalities, or
// and-joined inequalities when negated.
func (r *Relation) buildIn(key string, list reflect.Value, negate bool) string {
	connective := " or "
	if negate {
		connective = " and "
	}
	out := ""
	for i := 0; i < list.Len(); i++ {
		if i > 0 {
			out += connective
		}
		out += r.buildEql(key, list.Index(i).Interface(), negate)
	}
	return out
}

// buildRange renders a two-sided comparison. Negation flips each operator
// and swaps the connective between "and" and "or".
func (r *Relation) buildRange(key string, val Range, negate bool) string {
	from := r.quoted(val.From, key)
	to := r.quoted(val.To, key)
	if val.ExcludeEnd {
		if negate {
			return fmt.Sprintf("%s < %s or %s >= %s", key, from, key, to)
		}
		return fmt.Sprintf("%s >= %s and %s < %s", key, from, key, to)
	}
	if negate {
		return fmt.Sprintf("%s < %s or %s > %s", key, from, key, to)
	}
	return fmt.Sprintf("%s >= %s and %s <= %s", key, from, key, to)
}

// buildNone produces the trivially-false (or, negated, trivially-true) time
// comparison and flips the relation into (or out of) the null state.
func (r *Relation) buildNone(negate bool) string {
	r.null = !negate
	if negate {
		return "time >= 0"
	}
	return "time < 0"
}

// quoted renders a predicate value. Strings and tag-classified fields are
// single-quoted, the reserved time field goes through timestamp
// normalization, everything else renders bare.
func (r *Relation) quoted(val any, key string) string {
	if s, ok := val.(string); ok {
		return "'" + s + "'"
	}
	if r.metrics.IsTag(key) {
		return fmt.Sprintf("'%v'", val)
	}
	if key == "time" {
		return queryTimestamp(val, r.metrics.EffectivePrecision())
	}
	switch v := val.(type) {
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// whereContainsTime reports whether any accumulated where fragment
// references the time field.
func (r *Relation) whereContainsTime() bool {
	for _, clause := range r.values.List(keyWhere) {
		if timeClauseRe.MatchString(clause) {
			return true
		}
	}
	return false
}

// isFanoutable limits fanout folding to values that can live inside a
// series name: scalars and patterns. Lists and ranges fall back to normal
// where clauses.
func isFanoutable(val any) bool {
	switch val.(type) {
	case nil, Range:
		return false
	case *regexp.Regexp:
		return true
	}
	rv := reflect.ValueOf(val)
	return rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array
}
