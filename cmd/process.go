// =============================================================================
// Contract Installment Validator - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs one ingest over a
// single input file.
//
// COMMAND USAGE:
//   installment-validator process [flags]
//
// FLAGS:
//   --input       : Input file (overrides input_path)
//   --batch-size  : Records per flush (overrides batch_size)
//   --dry-run     : Validate and report without writing any output
//
// SIGNALS:
//   SIGINT/SIGTERM cancel the run. The partial batch in memory is discarded
//   and the input is left in place.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/contract-installment-validator/internal/config"
	"github.com/ginjaninja78/contract-installment-validator/internal/ingest"
	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	inputPath string
	batchSize int
	dryRun    bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Validate an input file and flush batches to the configured sinks",
	Long: `The process command streams the input file record by record. Each record is
validated and either normalized (accepted) or paired with a rejection reason.
Every batch_size records the batch is flushed to the enabled sinks:

  sinks.log            one log line per batch (on by default)
  sinks.rejection_log  rejections appended to <output_dir>/rejections_<run>.log
  sinks.xlsx           one workbook per batch
  sinks.xml            accepted records of each batch as XML
  sinks.postgres       accepted and rejected rows inserted per batch

A failing sink is logged and the run continues. When the whole input was read
the input file is archived (archive_on_success) and the run exits 0.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(
		&inputPath,
		"input",
		"i",
		"",
		"Input file to process (overrides input_path)",
	)
	processCmd.Flags().IntVar(
		&batchSize,
		"batch-size",
		0,
		fmt.Sprintf("Records per flush (overrides batch_size, default %d)", config.DefaultBatchSize),
	)
	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Validate and print a rejection report without writing output",
	)
}

// =============================================================================
// PROCESSING
// =============================================================================

func runProcess(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if inputPath != "" {
		cfg.InputPath = inputPath
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = batchSize
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []ingest.Option{ingest.WithDryRun(dryRun)}
	if dryRun {
		opts = append(opts, ingest.WithReport(cmd.OutOrStdout()))
	}

	result := ingest.New(cfg, logger, opts...).Run(ctx)
	printSummary(cmd, result)

	if result.Error != nil {
		return result.Error
	}
	return nil
}

func printSummary(cmd *cobra.Command, result ingest.Result) {
	out := cmd.OutOrStdout()
	s := result.Stats

	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "================================================================================")
	fmt.Fprintln(out, "Run Summary")
	fmt.Fprintln(out, "================================================================================")
	fmt.Fprintf(out, "Run ID:         %s\n", result.RunID)
	fmt.Fprintf(out, "Input:          %s\n", result.InputFile)
	fmt.Fprintf(out, "Processed:      %d\n", s.Processed)
	fmt.Fprintf(out, "Accepted:       %d\n", s.Accepted)
	fmt.Fprintf(out, "Rejected:       %d\n", s.Rejected)
	fmt.Fprintf(out, "Flushes:        %d (%d failed)\n", s.Flushes, s.FailedFlushes)
	if s.Dropped > 0 {
		fmt.Fprintf(out, "Dropped:        %d\n", s.Dropped)
	}

	reasons := make([]string, 0, len(s.Rejections))
	for reason := range s.Rejections {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(out, "  %-22s %d\n", reason+":", s.Rejections[types.Reason(reason)])
	}

	if result.ArchivePath != "" {
		fmt.Fprintf(out, "Archived To:    %s\n", result.ArchivePath)
	}
	if result.SummaryFile != "" {
		fmt.Fprintf(out, "Summary File:   %s\n", result.SummaryFile)
	}
	fmt.Fprintf(out, "Duration:       %s\n", s.ProcessingTime)
	fmt.Fprintln(out, "================================================================================")
}
