// Package cli implements the influxrel command line: ad hoc queries and
// writes against a configured backend.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	influxrel "github.com/roach88/influxrel"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "table" | "json"
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"table", "json"}

// NewRootCommand creates the root command for the influxrel CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "influxrel",
		Short: "Query and write time-series data through the relation builder",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := zerolog.WarnLevel
			if opts.Verbose {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
			influxrel.SetLogger(zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "table", "output format (table|json)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewWriteCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
