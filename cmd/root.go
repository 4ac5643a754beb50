// =============================================================================
// Pedidos Manager - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (pedidos)
//   ├── processCmd (pedidos process)
//   ├── validateCmd (pedidos validate)
//   └── versionCmd (pedidos version)
//
// CONFIGURATION:
//   Settings are resolved in this order (last wins):
//   1. Built-in defaults
//   2. The YAML file given by --config
//   3. PEDIDOS_* environment variables (e.g. PEDIDOS_OUTPUT_DIR)
//   4. Command-line flags
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pedidosmanager/pedidos/internal/config"
	"github.com/pedidosmanager/pedidos/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pedidos",
	Short: "Pedidos Manager - Triage Shopify order exports for dispatch",

	Long: `Pedidos Manager reads one or more Shopify order exports (CSV or XLSX),
assigns a dispatch status to every order and writes the daily workbook with
a generic sheet and a carrier sheet.

Key Features:
  - Rule-based classification (CABA, priority, unpaid, notes, DNI checks)
  - One status per order, with a configurable tie-break
  - Per-category order counts
  - Automatic archival of inputs and outputs

Example Usage:
  pedidos process                       # Process every export in the input directory
  pedidos process a.csv b.csv           # Process the given exports
  pedidos process --dry-run             # Classify and report without writing
  pedidos validate                      # Check the exports without processing`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"pedidos.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initConfig enables the PEDIDOS_* environment overrides.
func initConfig() {
	viper.SetEnvPrefix("PEDIDOS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// bindFlags maps command flags onto configuration keys. It runs before the
// selected command only, so commands sharing a flag name do not clash.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	return nil
}

// loadConfig loads the YAML configuration and applies the environment and
// flag overrides.
func loadConfig() (*config.MainConfig, error) {
	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	mainConfig.Override(viper.GetViper())

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}
	return mainConfig, nil
}

// newLogger builds the run logger from the configuration and --verbose.
func newLogger(mainConfig *config.MainConfig) (*logging.ZapLogger, error) {
	return logging.New(logging.Options{
		Level:   mainConfig.LogLevel,
		Verbose: verbose,
		File:    mainConfig.LogFile,
	})
}
