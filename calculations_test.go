package influxrel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalc(t *testing.T) {
	rel := newDummyRelation().Where(Cond{"user_id": 1}).Calc("count", "column_name")
	assert.Equal(t, `select count(column_name) from "dummy" where (user_id = 1)`, rel.ToSQL())
	assert.True(t, rel.HasCalculations())
}

func TestCalcAlias(t *testing.T) {
	rel := newDummyRelation().Count("val", "total")
	assert.Equal(t, `select count(val) as total from "dummy"`, rel.ToSQL())
}

func TestCalcShortcuts(t *testing.T) {
	cases := []struct {
		name  string
		build func(*Relation) *Relation
		want  string
	}{
		{"count", func(r *Relation) *Relation { return r.Count("val") }, "count(val)"},
		{"min", func(r *Relation) *Relation { return r.Min("val") }, "min(val)"},
		{"max", func(r *Relation) *Relation { return r.Max("val") }, "max(val)"},
		{"mean", func(r *Relation) *Relation { return r.Mean("val") }, "mean(val)"},
		{"mode", func(r *Relation) *Relation { return r.Mode("val") }, "mode(val)"},
		{"median", func(r *Relation) *Relation { return r.Median("val") }, "median(val)"},
		{"distinct", func(r *Relation) *Relation { return r.Distinct("val") }, "distinct(val)"},
		{"derivative", func(r *Relation) *Relation { return r.Derivative("val") }, "derivative(val)"},
		{"stddev", func(r *Relation) *Relation { return r.StdDev("val") }, "stddev(val)"},
		{"sum", func(r *Relation) *Relation { return r.Sum("val") }, "sum(val)"},
		{"first", func(r *Relation) *Relation { return r.First("val") }, "first(val)"},
		{"last", func(r *Relation) *Relation { return r.Last("val") }, "last(val)"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rel := tc.build(newDummyRelation())
			assert.Equal(t, `select `+tc.want+` from "dummy"`, rel.ToSQL())
			assert.True(t, rel.HasCalculations())
		})
	}
}

func TestPercentile(t *testing.T) {
	rel := newDummyRelation().Percentile("val", 90)
	assert.Equal(t, `select percentile(val, 90) from "dummy"`, rel.ToSQL())

	rel = newDummyRelation().Percentile("val", 99.9, "p1")
	assert.Equal(t, `select percentile(val, 99.9) as p1 from "dummy"`, rel.ToSQL())
	assert.True(t, rel.HasCalculations())
}

func TestCalcStacks(t *testing.T) {
	rel := newDummyRelation().Min("val", "low").Max("val", "high")
	assert.Equal(t, `select min(val) as low, max(val) as high from "dummy"`, rel.ToSQL())
}
