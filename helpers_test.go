package influxrel

import (
	"context"
	"sync"

	"github.com/roach88/influxrel/client"
)

// fakeClient records queries and writes for assertions and serves canned
// shards.
type fakeClient struct {
	mu        sync.Mutex
	precision string

	queries  []string
	lastOpts client.QueryOptions
	result   []client.Series
	queryErr error

	writes []fakeWrite
}

type fakeWrite struct {
	series    string
	data      client.PointData
	precision string
	rp        string
	db        string
}

func (f *fakeClient) Query(_ context.Context, query string, opts client.QueryOptions) ([]client.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.lastOpts = opts
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.result, nil
}

func (f *fakeClient) WritePoint(_ context.Context, series string, data client.PointData, precision, rp, db string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, fakeWrite{series: series, data: data, precision: precision, rp: rp, db: db})
	return nil
}

func (f *fakeClient) Precision() string {
	if f.precision == "" {
		return "ns"
	}
	return f.precision
}

// newDummyMetrics mirrors the canonical test entity: series "dummy" with
// tags dummy_id and host and measured user_id and time_spent.
func newDummyMetrics(opts ...Option) *Metrics {
	base := []Option{
		Tags("dummy_id", "host"),
		Attributes("user_id", "time_spent"),
	}
	return NewMetrics("dummy", append(base, opts...)...)
}

func newDummyRelation(opts ...Option) *Relation {
	return NewRelation(newDummyMetrics(opts...), nil)
}
