package commands

import (
	"github.com/spf13/cobra"

	"github.com/solderline/smt-scheduler/pkg/logging"
)

// NewRootCommand builds the smtsched command tree: persistent logging
// flags on the root, a "schedule" subcommand running one end-to-end
// solve.
func NewRootCommand() *cobra.Command {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:   "smtsched",
		Short: "SMT PCB-assembly production scheduler",
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json")

	var cfg Config
	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Load a catalog and produce a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(logLevel, logFormat)
			return NewScheduleCommand(cfg, logger).Execute(cmd.Context())
		},
	}
	schedule.Flags().StringVar(&cfg.ConfigFile, "config", "", "path to config YAML file")
	schedule.Flags().StringVar(&cfg.PlanStart, "plan-start", "", "plan start date (YYYY-MM-DD), defaults to now")
	schedule.Flags().StringVar(&cfg.OutputDir, "output", "", "output directory for results")
	schedule.Flags().StringVar(&cfg.Format, "format", "", "output format: text, json, html (overrides config)")
	schedule.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(schedule)
	return root
}
