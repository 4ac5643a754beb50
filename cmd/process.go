// =============================================================================
// Pedidos Manager - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command of the tool.
// It runs the whole batch pipeline and prints the category report.
//
// COMMAND USAGE:
//   pedidos process [files...] [flags]
//
// FLAGS:
//   --input-dir   : Directory scanned when no files are given
//   --output-dir  : Directory receiving the workbook and logs
//   --dry-run     : Classify and report without writing output files
//   --tie-break   : Line that decides an order's status
//   --archive     : Move the processed exports to the input archive
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pedidosmanager/pedidos/internal/converter"
	"github.com/pedidosmanager/pedidos/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun classifies and reports without writing output files.
var dryRun bool

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Classify order exports and write the daily workbook",
	Long: `The process command reads the given exports, or every CSV and XLSX file
in the input directory, and runs them as a single batch.

On success:
  - The workbook is written to the output directory and copied to the
    output archive
  - Value warnings are written to an error log in the output directory
  - A processing summary is written to the output directory
  - With --archive, the exports are moved to the input archive

A missing required column in any export aborts the run before anything is
written.`,

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd.Flags(), map[string]string{
			"input-dir":  "input_dir",
			"output-dir": "output_dir",
			"tie-break":  "tie_break",
			"archive":    "archive_inputs",
		})
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().String("input-dir", "", "Directory scanned for exports when no files are given")
	processCmd.Flags().String("output-dir", "", "Directory receiving the workbook and logs")
	processCmd.Flags().String("tie-break", "", "Line deciding an order's status: shipping-name-desc or line-order")
	processCmd.Flags().Bool("archive", false, "Move the processed exports to the input archive")

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Classify and report without writing output files",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(cmd *cobra.Command, files []string) error {
	out := cmd.OutOrStdout()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	mainConfig, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(mainConfig)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// =========================================================================
	// STEP 2: RUN THE BATCH
	// =========================================================================

	conv, err := converter.New(mainConfig, logger.With("command", "process"), converter.Options{DryRun: dryRun})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, err := conv.Run(ctx, files)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 3: PRINT SUMMARY
	// =========================================================================

	fmt.Fprintln(out, "=== Pedidos Manager ===")
	for _, fr := range result.Files {
		if fr.Error != nil {
			fmt.Fprintf(out, "  ✗ %s: %v\n", filepath.Base(fr.Path), fr.Error)
			continue
		}
		fmt.Fprintf(out, "  ✓ %s (%d lines)\n", filepath.Base(fr.Path), fr.Lines)
	}

	fmt.Fprintf(out, "\nDate:            %s\n", result.RepresentativeDate)
	fmt.Fprintf(out, "Lines:           %d\n", result.Stats.LinesProcessed)
	fmt.Fprintf(out, "Warnings:        %d\n", result.Stats.Warnings)
	fmt.Fprintf(out, "Time elapsed:    %s\n\n", result.Stats.ProcessingTime)

	if err := utils.WriteCategories(out, converter.CategoryReport(result.Counts), result.Counts.Total); err != nil {
		return err
	}

	if result.OutputFile != "" {
		fmt.Fprintf(out, "\nWorkbook: %s\n", result.OutputFile)
	}
	if result.ErrorLog != "" {
		fmt.Fprintf(out, "Warnings have been logged to %s\n", result.ErrorLog)
	}

	return nil
}
