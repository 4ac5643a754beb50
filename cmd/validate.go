// =============================================================================
// Pedidos Manager - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It reads the exports, checks that
// every required column is present and lists the value warnings, without
// classifying or writing anything.
//
// COMMAND USAGE:
//   pedidos validate [files...]
//
// EXIT STATUS:
//   Non-zero when the configuration is invalid, an export cannot be read or
//   a required column is missing. Value warnings alone do not fail.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/pedidosmanager/pedidos/internal/converter"
	"github.com/pedidosmanager/pedidos/internal/validation"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Check the configuration and the order exports",

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd.Flags(), map[string]string{
			"input-dir": "input_dir",
		})
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		mainConfig, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Configuration OK")

		logger, err := newLogger(mainConfig)
		if err != nil {
			return err
		}
		defer logger.Sync()

		conv, err := converter.New(mainConfig, logger.With("command", "validate"), converter.Options{DryRun: true})
		if err != nil {
			return err
		}

		result, err := conv.Validate(cmd.Context(), args)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Read %d file(s), %d line(s)\n", result.Stats.FilesRead, result.Stats.LinesProcessed)
		fmt.Fprintln(out, validation.FormatErrors(result.Validation.Errors))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().String("input-dir", "", "Directory scanned for exports when no files are given")
}
