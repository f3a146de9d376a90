package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	influxrel "github.com/roach88/influxrel"
	"github.com/roach88/influxrel/client"
	"github.com/roach88/influxrel/config"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	Series   string
	Tags     []string
	Selects  []string
	Wheres   []string
	Nots     []string
	Groups   []string
	Time     string
	Fill     string
	Past     string
	Order    string
	Limit    int
	Offset   int
	SLimit   int
	SOffset  int
	Timezone string
	Epoch    string
	DryRun   bool
}

// NewQueryCommand creates the query command. It builds a relation from
// flags, renders it, and either prints the query text (--dry-run) or
// executes it and prints the decoded records.
func NewQueryCommand(root *RootOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Build and run a query against one series",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Series, "series", "", "series name (required)")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag-name", nil, "attribute treated as a tag (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Selects, "select", nil, "select expression (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Wheres, "where", nil, "condition key=value or raw fragment (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Nots, "not", nil, "negated condition key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Groups, "group", nil, "group-by field (repeatable)")
	cmd.Flags().StringVar(&opts.Time, "time", "", "time bucket, e.g. 1h or hour")
	cmd.Flags().StringVar(&opts.Fill, "fill", "", "fill value (null|previous|none|integer)")
	cmd.Flags().StringVar(&opts.Past, "past", "", "relative lower time bound, e.g. 1h or 30d")
	cmd.Flags().StringVar(&opts.Order, "order", "", "order fragment, e.g. 'time desc'")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "point limit")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "point offset")
	cmd.Flags().IntVar(&opts.SLimit, "slimit", 0, "series limit")
	cmd.Flags().IntVar(&opts.SOffset, "soffset", 0, "series offset")
	cmd.Flags().StringVar(&opts.Timezone, "timezone", "", "TZ clause value, e.g. Europe/Berlin")
	cmd.Flags().StringVar(&opts.Epoch, "epoch", "", "returned timestamp format (h|m|s|ms|u|ns)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the rendered query instead of executing")
	_ = cmd.MarkFlagRequired("series")

	return cmd
}

func runQuery(cmd *cobra.Command, root *RootOptions, opts *QueryOptions) error {
	metricsOpts := []influxrel.Option{influxrel.Tags(opts.Tags...)}

	var backend client.Client
	if !opts.DryRun {
		cfg, err := config.Load(root.ConfigPath)
		if err != nil {
			return err
		}
		backend, err = client.NewHTTP(client.Options{
			URL:       cfg.URL(),
			Username:  cfg.Username,
			Password:  cfg.Password,
			Database:  cfg.Database,
			Precision: cfg.TimePrecision,
			Timeout:   cfg.Timeout(),
			RetryMax:  cfg.Retry,
		})
		if err != nil {
			return err
		}
		metricsOpts = append(metricsOpts, influxrel.WithClient(backend))
	}

	metrics := influxrel.NewMetrics(opts.Series, metricsOpts...)
	rel, err := buildRelation(metrics, opts)
	if err != nil {
		return err
	}

	if opts.DryRun {
		fmt.Fprintln(cmd.OutOrStdout(), rel.ToSQL())
		return nil
	}

	records, err := rel.Records(cmd.Context())
	if err != nil {
		return err
	}
	return writeRecords(cmd.OutOrStdout(), root.Format, records)
}

// buildRelation translates flags into a relation chain.
func buildRelation(metrics *influxrel.Metrics, opts *QueryOptions) (*influxrel.Relation, error) {
	rel := metrics.Unscoped()

	if len(opts.Selects) > 0 {
		rel.Select(opts.Selects...)
	}
	for _, raw := range opts.Wheres {
		cond, ok := parseCondition(raw)
		if ok {
			rel.Where(cond)
		} else {
			rel.Where(raw)
		}
	}
	for _, raw := range opts.Nots {
		cond, ok := parseCondition(raw)
		if !ok {
			return nil, fmt.Errorf("--not expects key=value, got %q", raw)
		}
		rel.Not(cond)
	}
	if len(opts.Groups) > 0 {
		rel.Group(opts.Groups...)
	}
	if opts.Time != "" {
		if opts.Fill != "" {
			rel.Time(timeSpec(opts.Time), opts.Fill)
		} else {
			rel.Time(timeSpec(opts.Time))
		}
	} else if opts.Fill != "" {
		rel.Fill(opts.Fill)
	}
	if opts.Past != "" {
		rel.Past(opts.Past)
	}
	if opts.Order != "" {
		rel.Order(opts.Order)
	}
	if opts.Limit > 0 {
		rel.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		rel.Offset(opts.Offset)
	}
	if opts.SLimit > 0 {
		rel.SLimit(opts.SLimit)
	}
	if opts.SOffset > 0 {
		rel.SOffset(opts.SOffset)
	}
	if opts.Timezone != "" {
		rel.Timezone(opts.Timezone)
	}
	if opts.Epoch != "" {
		rel.Epoch(opts.Epoch)
	}

	return rel, nil
}

// timeSpec maps a symbolic name to a Unit, leaving literal durations alone.
func timeSpec(s string) any {
	switch influxrel.Unit(s) {
	case influxrel.Hour, influxrel.Minute, influxrel.Second, influxrel.Millisecond,
		influxrel.Microsecond, influxrel.Week, influxrel.Day, influxrel.Month, influxrel.Year:
		return influxrel.Unit(s)
	default:
		return s
	}
}

// parseCondition splits "key=value" into a one-entry Cond, coercing numeric
// and boolean values. Returns false for raw fragments without "=".
func parseCondition(raw string) (influxrel.Cond, bool) {
	idx := strings.Index(raw, "=")
	if idx <= 0 {
		return nil, false
	}
	key := strings.TrimSpace(raw[:idx])
	val := strings.TrimSpace(raw[idx+1:])
	if strings.ContainsAny(key, " <>!~") {
		// Looks like a pre-formed clause fragment, not key=value.
		return nil, false
	}
	return influxrel.Cond{key: coerceValue(val)}, true
}

// coerceValue maps a flag string to int, float, bool or string.
func coerceValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
