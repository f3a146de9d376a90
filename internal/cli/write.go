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

// WriteOptions holds flags for the write command.
type WriteOptions struct {
	Series    string
	Tags      []string
	Values    []string
	Timestamp string
}

// NewWriteCommand creates the write command: it persists a single point.
func NewWriteCommand(root *RootOptions) *cobra.Command {
	opts := &WriteOptions{}

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write a single point to one series",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Series, "series", "", "series name (required)")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "tag key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Values, "value", nil, "field key=value (repeatable, at least one)")
	cmd.Flags().StringVar(&opts.Timestamp, "timestamp", "", "point time (seconds epoch or RFC3339)")
	_ = cmd.MarkFlagRequired("series")

	return cmd
}

func runWrite(cmd *cobra.Command, root *RootOptions, opts *WriteOptions) error {
	if len(opts.Values) == 0 {
		return fmt.Errorf("at least one --value is required")
	}

	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return err
	}
	backend, err := client.NewHTTP(client.Options{
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

	attrs := influxrel.Cond{}
	var tagNames []string
	for _, raw := range opts.Tags {
		key, val, err := splitPair(raw, "--tag")
		if err != nil {
			return err
		}
		tagNames = append(tagNames, key)
		attrs[key] = val
	}
	for _, raw := range opts.Values {
		key, val, err := splitPair(raw, "--value")
		if err != nil {
			return err
		}
		attrs[key] = coerceValue(val)
	}

	metrics := influxrel.NewMetrics(opts.Series,
		influxrel.Tags(tagNames...),
		influxrel.WithClient(backend),
	)

	point := metrics.NewPoint(attrs)
	if opts.Timestamp != "" {
		if n, err := strconv.ParseInt(opts.Timestamp, 10, 64); err == nil {
			point.SetTimestamp(n)
		} else {
			point.SetTimestamp(opts.Timestamp)
		}
	}

	if err := point.WriteStrict(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

// splitPair parses "key=value" flag input.
func splitPair(raw, flag string) (string, string, error) {
	idx := strings.Index(raw, "=")
	if idx <= 0 {
		return "", "", fmt.Errorf("%s expects key=value, got %q", flag, raw)
	}
	return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+1:]), nil
}
