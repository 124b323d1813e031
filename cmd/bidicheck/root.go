package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/bidicheck/config"
	"github.com/hazyhaar/bidicheck/sink"
	"github.com/hazyhaar/bidicheck/store"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bidicheck",
	Short: "Find bidirectional text defects in web pages",
	Long: `bidicheck walks a page's DOM, frames included, and reports text whose
direction is not declared by markup: RTL text in LTR context and the reverse,
numbers that inherit the direction of a neighbouring switched region, form
fields and attributes holding text of the opposite direction, and pages whose
overall direction is not the expected one.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Log.Format = logFormat
		}
		logger, err = cfg.Logger(os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./bidicheck.yaml or ~/.bidicheck/bidicheck.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	rootCmd.AddCommand(scanCmd, watchCmd, serveCmd, mcpCmd, historyCmd, versionCmd)
}

// openStore opens the history database named by the config.
func openStore() (*store.Store, error) {
	return store.Open(cfg.Store.Path, store.WithLogger(logger))
}

// deliveryRouter fans scans out to the configured sinks, plus st when set.
func deliveryRouter(st *store.Store) (*sink.Router, error) {
	sinks, err := cfg.BuildSinks(logger)
	if err != nil {
		return nil, err
	}
	if st != nil {
		sinks = append(sinks, st)
	}
	return sink.NewRouter(logger, sinks...), nil
}
