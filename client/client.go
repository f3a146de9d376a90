// Package client defines the execution contracts between the relation engine
// and a time-series backend, plus the shipped HTTP implementation.
//
// The relation engine only ever sees these interfaces: it hands over rendered
// query text and receives shards back. Transport concerns (retries, auth,
// timeouts) live entirely on this side of the boundary.
package client

import "context"

// QueryOptions carries per-query execution options.
type QueryOptions struct {
	// Denormalize asks the backend adapter to flatten grouped responses.
	// When false the caller wants the native grouped shape verbatim.
	Denormalize bool

	// Epoch selects the timestamp format of returned points (h, m, s, ms,
	// u or ns). Empty means the backend default.
	Epoch string
}

// Row is one decoded data point: field name to value.
type Row = map[string]any

// Series is one named shard of a query response: the series name, the tag
// set the backend grouped by (empty for denormalized responses), and the
// rows in backend order.
type Series struct {
	Name string
	Tags map[string]string
	Rows []Row
}

// PointData is the payload of a single write.
type PointData struct {
	// Values holds the measured fields.
	Values map[string]any

	// Tags holds the indexed string dimensions.
	Tags map[string]string

	// Timestamp is the point time already normalized to the write
	// precision. Nil lets the backend assign the server time.
	Timestamp *int64
}

// Queryer executes a rendered query and returns the resulting shards in
// backend order.
type Queryer interface {
	Query(ctx context.Context, query string, opts QueryOptions) ([]Series, error)
}

// PointWriter persists one data point. The precision, retention policy and
// database overrides are optional; empty strings mean the client defaults.
type PointWriter interface {
	WritePoint(ctx context.Context, series string, data PointData, precision, retentionPolicy, database string) error
}

// Client is the full backend contract the relation engine depends on.
type Client interface {
	Queryer
	PointWriter

	// Precision reports the configured timestamp precision ("ns", "u",
	// "ms", "s", ...). Timestamp normalization keys off this.
	Precision() string
}
