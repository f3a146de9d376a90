// Package influxrel is a relation-style query builder and object mapper for
// InfluxDB-flavoured time-series backends.
//
// A Metrics descriptor declares one series-producing entity: its series name,
// which attributes are tags and which are measured values, an optional
// retention policy, and optional fanout sharding keys. Queries are built by
// chaining methods on a Relation:
//
//	cpu := influxrel.NewMetrics("cpu_metrics",
//		influxrel.Tags("host", "region"),
//		influxrel.Attributes("usage", "iowait"),
//	)
//
//	rel := cpu.All(ctx).
//		Where(influxrel.Cond{"host": "eu-1"}).
//		Time(influxrel.Hour).
//		Limit(100)
//
//	records, err := rel.Records(ctx)
//
// Each chained call accumulates clause fragments in the relation's value set.
// Rendering is deterministic: the clause order is always select, from, where,
// group by, fill, order by, limit, offset, slimit, soffset, timezone,
// regardless of the order the builder methods were called in.
//
// Execution goes through the client.Client interface. The shipped HTTP
// implementation talks to the /query and /write endpoints; tests inject
// fakes. A relation that is provably empty (an empty-list predicate or an
// explicit None) never contacts the backend at all.
//
// Scoping follows the ActiveRecord model: default scopes fold into All, named
// scopes are registered on the descriptor and composed via Merge. The current
// scope travels in a context.Context, so concurrent queries against the same
// descriptor never observe each other's in-flight scope.
package influxrel
