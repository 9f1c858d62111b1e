// Package cli implements the pgswarm command line.
package cli

import (
	"fmt"
	"time"

	"github.com/Konsultn-Engineering/pgswarm/connector"
	"github.com/Konsultn-Engineering/pgswarm/engine"
	"github.com/Konsultn-Engineering/pgswarm/providers/postgres"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	envFiles   []string
	driver     string
	verbose    bool
}

// NewRootCmd builds the top-level `pgswarm` command.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "pgswarm",
		Short:         "Run SQL against PostgreSQL through an elastic connection pool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files with PGSWARM_* overrides (default .env)")
	flags.StringVar(&opts.driver, "driver", postgres.Name, "registered provider name")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every statement")

	root.AddCommand(newQueryCmd(opts))
	root.AddCommand(newExecCmd(opts))
	root.AddCommand(newProvidersCmd())
	return root
}

func (o *options) logger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.InfoLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().
		Logger()
}

func (o *options) open(cmd *cobra.Command) (*engine.Engine, error) {
	cfg, err := connector.LoadConfig(o.configPath, o.envFiles...)
	if err != nil {
		return nil, err
	}
	return engine.Open(cmd.Context(), o.driver, cfg, engine.WithLogger(o.logger(cmd)))
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered providers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range connector.Providers() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
