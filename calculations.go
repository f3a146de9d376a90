package influxrel

import "fmt"

// Calc appends an aggregate function call to the select list and marks the
// relation as carrying calculations. The optional alias renders as
// "as <alias>".
func (r *Relation) Calc(fn, field string, alias ...string) *Relation {
	r.values.SetSingle(keyHasCalculations, true)
	expr := fn + "(" + field + ")"
	if len(alias) > 0 && alias[0] != "" {
		expr += " as " + alias[0]
	}
	r.values.Append(keySelect, expr)
	return r
}

// Count selects count(field).
func (r *Relation) Count(field string, alias ...string) *Relation {
	return r.Calc("count", field, alias...)
}

// Min selects min(field).
func (r *Relation) Min(field string, alias ...string) *Relation {
	return r.Calc("min", field, alias...)
}

// Max selects max(field).
func (r *Relation) Max(field string, alias ...string) *Relation {
	return r.Calc("max", field, alias...)
}

// Mean selects mean(field).
func (r *Relation) Mean(field string, alias ...string) *Relation {
	return r.Calc("mean", field, alias...)
}

// Mode selects mode(field).
func (r *Relation) Mode(field string, alias ...string) *Relation {
	return r.Calc("mode", field, alias...)
}

// Median selects median(field).
func (r *Relation) Median(field string, alias ...string) *Relation {
	return r.Calc("median", field, alias...)
}

// Distinct selects distinct(field).
func (r *Relation) Distinct(field string, alias ...string) *Relation {
	return r.Calc("distinct", field, alias...)
}

// Derivative selects derivative(field).
func (r *Relation) Derivative(field string, alias ...string) *Relation {
	return r.Calc("derivative", field, alias...)
}

// StdDev selects stddev(field).
func (r *Relation) StdDev(field string, alias ...string) *Relation {
	return r.Calc("stddev", field, alias...)
}

// Sum selects sum(field).
func (r *Relation) Sum(field string, alias ...string) *Relation {
	return r.Calc("sum", field, alias...)
}

// First selects first(field).
func (r *Relation) First(field string, alias ...string) *Relation {
	return r.Calc("first", field, alias...)
}

// Last selects last(field).
func (r *Relation) Last(field string, alias ...string) *Relation {
	return r.Calc("last", field, alias...)
}

// Percentile selects percentile(field, n) with an optional alias.
func (r *Relation) Percentile(field string, n any, alias ...string) *Relation {
	r.values.SetSingle(keyHasCalculations, true)
	expr := fmt.Sprintf("percentile(%s, %v)", field, n)
	if len(alias) > 0 && alias[0] != "" {
		expr += " as " + alias[0]
	}
	r.values.Append(keySelect, expr)
	return r
}
