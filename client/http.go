package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Options configures the HTTP client.
type Options struct {
	// URL is the backend base URL, e.g. "http://localhost:8086".
	URL string

	Username string
	Password string

	// Database is the default database for queries and writes.
	Database string

	// Precision is the timestamp precision used for writes and reported
	// through Precision(). Defaults to "ns".
	Precision string

	// Timeout bounds each HTTP round-trip. Zero means 30s.
	Timeout time.Duration

	// RetryMax is the number of transport-level retries. Zero means 3.
	RetryMax int

	// Logger receives request logging. Nil defaults to stderr.
	Logger *zerolog.Logger
}

// HTTP talks to an InfluxDB-compatible backend over its /query and /write
// endpoints. It satisfies Client.
type HTTP struct {
	base      *url.URL
	username  string
	password  string
	database  string
	precision string
	hc        *retryablehttp.Client
	log       zerolog.Logger
}

// NewHTTP builds an HTTP client from opts.
func NewHTTP(opts Options) (*HTTP, error) {
	base, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q must include scheme and host", opts.URL)
	}

	precision := opts.Precision
	if precision == "" {
		precision = "ns"
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	retryMax := opts.RetryMax
	if retryMax == 0 {
		retryMax = 3
	}

	var log zerolog.Logger
	if opts.Logger != nil {
		log = *opts.Logger
	} else {
		log = zerolog.New(os.Stderr).With().Timestamp().Str("component", "influxrel.client").Logger()
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = retryMax
	hc.HTTPClient.Timeout = timeout
	hc.Logger = nil

	return &HTTP{
		base:      base,
		username:  opts.Username,
		password:  opts.Password,
		database:  opts.Database,
		precision: precision,
		hc:        hc,
		log:       log,
	}, nil
}

// Precision reports the configured timestamp precision.
func (c *HTTP) Precision() string {
	return c.precision
}

// queryResponse mirrors the backend's /query JSON envelope.
type queryResponse struct {
	Results []struct {
		Series []struct {
			Name    string            `json:"name"`
			Tags    map[string]string `json:"tags"`
			Columns []string          `json:"columns"`
			Values  [][]any           `json:"values"`
		} `json:"series"`
		Error string `json:"error"`
	} `json:"results"`
	Error string `json:"error"`
}

// Query executes a rendered query via GET /query and decodes the tabular
// response into shards.
func (c *HTTP) Query(ctx context.Context, query string, opts QueryOptions) ([]Series, error) {
	u := *c.base
	u.Path = "/query"
	params := url.Values{}
	params.Set("q", query)
	if c.database != "" {
		params.Set("db", c.database)
	}
	if opts.Epoch != "" {
		params.Set("epoch", opts.Epoch)
	}
	u.RawQuery = params.Encode()

	requestID := uuid.NewString()
	started := time.Now()

	body, err := c.do(ctx, http.MethodGet, &u, nil)
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("query failed: %s", resp.Error)
	}

	var shards []Series
	for _, result := range resp.Results {
		if result.Error != "" {
			return nil, fmt.Errorf("query failed: %s", result.Error)
		}
		for _, s := range result.Series {
			shard := Series{Name: s.Name, Tags: s.Tags}
			for _, row := range s.Values {
				point := make(Row, len(s.Columns))
				for i, col := range s.Columns {
					if i < len(row) {
						point[col] = row[i]
					}
				}
				shard.Rows = append(shard.Rows, point)
			}
			shards = append(shards, shard)
		}
	}

	c.log.Debug().
		Str("request_id", requestID).
		Str("query", query).
		Int("shards", len(shards)).
		Dur("elapsed", time.Since(started)).
		Msg("query executed")

	return shards, nil
}

// WritePoint encodes one point as line protocol and posts it to /write.
func (c *HTTP) WritePoint(ctx context.Context, series string, data PointData, precision, retentionPolicy, database string) error {
	if precision == "" {
		precision = c.precision
	}
	if database == "" {
		database = c.database
	}

	u := *c.base
	u.Path = "/write"
	params := url.Values{}
	if database != "" {
		params.Set("db", database)
	}
	if retentionPolicy != "" {
		params.Set("rp", retentionPolicy)
	}
	if precision != "" {
		params.Set("precision", precision)
	}
	u.RawQuery = params.Encode()

	line, err := encodeLine(series, data)
	if err != nil {
		return err
	}

	if _, err := c.do(ctx, http.MethodPost, &u, strings.NewReader(line)); err != nil {
		return err
	}

	c.log.Debug().Str("series", series).Msg("point written")
	return nil
}

// do performs one request and returns the body, mapping non-2xx statuses to
// errors carrying the backend's message.
func (c *HTTP) do(ctx context.Context, method string, u *url.URL, body io.Reader) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, u.Path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return payload, nil
}

// encodeLine renders one point in line protocol:
//
//	measurement,tag=value field=value timestamp
//
// Tags and fields are emitted in sorted key order so the output is stable.
func encodeLine(series string, data PointData) (string, error) {
	if len(data.Values) == 0 {
		return "", fmt.Errorf("point for %q has no values", series)
	}

	var b strings.Builder
	b.WriteString(escapeMeasurement(series))

	tagKeys := make([]string, 0, len(data.Tags))
	for k := range data.Tags {
		tagKeys = append(tagKeys, k)
	}
	sort.Strings(tagKeys)
	for _, k := range tagKeys {
		b.WriteByte(',')
		b.WriteString(escapeTag(k))
		b.WriteByte('=')
		b.WriteString(escapeTag(data.Tags[k]))
	}

	fieldKeys := make([]string, 0, len(data.Values))
	for k := range data.Values {
		fieldKeys = append(fieldKeys, k)
	}
	sort.Strings(fieldKeys)

	b.WriteByte(' ')
	for i, k := range fieldKeys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeTag(k))
		b.WriteByte('=')
		b.WriteString(encodeFieldValue(data.Values[k]))
	}

	if data.Timestamp != nil {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(*data.Timestamp, 10))
	}

	return b.String(), nil
}

// encodeFieldValue renders a field value in line protocol. Integers carry the
// "i" suffix, strings are double-quoted with escapes, everything else falls
// back to its default formatting.
func encodeFieldValue(val any) string {
	switch v := val.(type) {
	case int:
		return strconv.FormatInt(int64(v), 10) + "i"
	case int32:
		return strconv.FormatInt(int64(v), 10) + "i"
	case int64:
		return strconv.FormatInt(v, 10) + "i"
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	default:
		return fmt.Sprintf("%v", v)
	}
}

// escapeMeasurement escapes commas and spaces in a measurement name.
func escapeMeasurement(s string) string {
	s = strings.ReplaceAll(s, ",", `\,`)
	return strings.ReplaceAll(s, " ", `\ `)
}

// escapeTag escapes commas, equals signs and spaces in tag keys and values.
func escapeTag(s string) string {
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "=", `\=`)
	return strings.ReplaceAll(s, " ", `\ `)
}
