// =============================================================================
// Pedidos Manager - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   pedidos version
//
// OUTPUT:
//   Pedidos Manager 1.0.0
//   Commit:     3f2c1ab
//   Build Date: 2024-03-05
//   Go Version: go1.24.0 linux/amd64
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags, e.g.
//
//	go build -ldflags "-X 'github.com/pedidosmanager/pedidos/cmd.Version=1.0.0'"
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Pedidos Manager %s\n", Version)
		fmt.Fprintf(out, "Commit:     %s\n", Commit)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
