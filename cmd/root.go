// =============================================================================
// Contract Installment Validator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (installment-validator)
//   ├── processCmd (installment-validator process)
//   ├── checkIDCmd (installment-validator check-id)
//   └── versionCmd (installment-validator version)
//
// The root command owns the global flags (--config, --verbose) and the
// helpers that turn them into a configuration and a logger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/contract-installment-validator/internal/config"
	"github.com/ginjaninja78/contract-installment-validator/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "installment-validator",
	Short: "Validate contract installment exports and route them in batches",
	Long: `installment-validator reads delimited exports of loan contract
installments, validates each record (CPF/CNPJ check digits and installment
arithmetic), normalizes the accepted ones and flushes results in fixed-size
batches to the configured sinks.

Example Usage:
  installment-validator process --input carteira.csv
  installment-validator process --config ./prod.yaml --batch-size 500
  installment-validator process --input carteira.csv --dry-run
  installment-validator check-id 111.444.777-35 11.444.777/0001-61`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig reads --config. A missing file yields the defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger on stderr from cfg and --verbose.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
