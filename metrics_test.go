package influxrel

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsTagClassification(t *testing.T) {
	m := newDummyMetrics()
	assert.True(t, m.IsTag("dummy_id"))
	assert.True(t, m.IsTag("host"))
	assert.False(t, m.IsTag("user_id"))
}

func TestSeriesForms(t *testing.T) {
	t.Run("literal", func(t *testing.T) {
		rel := NewRelation(NewMetrics("dummy"), nil)
		assert.Equal(t, `select * from "dummy"`, rel.ToSQL())
	})

	t.Run("embedded quotes escaped", func(t *testing.T) {
		rel := NewRelation(NewMetrics(`dum"my`), nil)
		assert.Equal(t, `select * from "dum\"my"`, rel.ToSQL())
	})

	t.Run("list renders as merge", func(t *testing.T) {
		rel := NewRelation(NewMetrics([]string{"a", "b"}), nil)
		assert.Equal(t, `select * from merge("a","b")`, rel.ToSQL())
	})

	t.Run("single element list unwraps", func(t *testing.T) {
		rel := NewRelation(NewMetrics([]string{"a"}), nil)
		assert.Equal(t, `select * from "a"`, rel.ToSQL())
	})

	t.Run("pattern renders raw", func(t *testing.T) {
		rel := NewRelation(NewMetrics(regexp.MustCompile("^cpu.*$")), nil)
		assert.Equal(t, `select * from /^cpu.*$/`, rel.ToSQL())
	})

	t.Run("func resolves against the prototype point", func(t *testing.T) {
		m := NewMetrics(SeriesFunc(func(p *Point) string {
			return fmt.Sprintf("cpu_%v", p.Get("host"))
		}), Tags("host"))
		rel := NewRelation(m, Cond{"host": "eu"})
		assert.Equal(t, `select * from "cpu_eu" where (host = 'eu')`, rel.ToSQL())
	})
}

func TestRetentionPolicyPrefixesReads(t *testing.T) {
	m := newDummyMetrics(RetentionPolicy("a_year"))
	rel := NewRelation(m, nil)
	assert.Equal(t, `select * from "a_year"."dummy"`, rel.ToSQL())

	rel = NewRelation(m, nil).From("doomy")
	assert.Equal(t, `select * from "a_year"."doomy"`, rel.ToSQL())
}

func TestEffectivePrecision(t *testing.T) {
	assert.Equal(t, "ns", NewMetrics("dummy").EffectivePrecision(), "default")

	withClient := NewMetrics("dummy", WithClient(&fakeClient{precision: "ms"}))
	assert.Equal(t, "ms", withClient.EffectivePrecision(), "client precision")

	overridden := NewMetrics("dummy", WithClient(&fakeClient{precision: "ms"}), Precision("s"))
	assert.Equal(t, "s", overridden.EffectivePrecision(), "descriptor override wins")
}

func TestExtend(t *testing.T) {
	parent := newDummyMetrics(RetentionPolicy("a_year"))
	child := parent.Extend(Tags("region"), Attributes("clicks"))

	assert.True(t, child.IsTag("dummy_id"), "inherited tags survive")
	assert.True(t, child.IsTag("region"))
	assert.False(t, parent.IsTag("region"), "parent is never mutated")
	assert.Equal(t, "a_year", child.retentionPolicy)
}

func TestExtendScopesAreIndependent(t *testing.T) {
	parent := newDummyMetrics(Scope("a", func(ctx context.Context, m *Metrics, args ...any) *Relation {
		return m.All(ctx)
	}))
	child := parent.Extend(Scope("b", func(ctx context.Context, m *Metrics, args ...any) *Relation {
		return m.All(ctx)
	}))

	assert.Contains(t, child.scopes, "a")
	assert.Contains(t, child.scopes, "b")
	assert.NotContains(t, parent.scopes, "b")
}
