// =============================================================================
// Pedidos Manager - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Pedidos Manager CLI. It delegates
// command execution to the cmd package.
//
// USAGE:
//   pedidos process       - Classify the order exports and write the workbook
//   pedidos validate      - Check the configuration and the exports
//   pedidos version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Ingestion, classification, consolidation and output
//   - pkg/           : File management and run logs
//
// =============================================================================

package main

import (
	"github.com/pedidosmanager/pedidos/cmd"
)

func main() {
	cmd.Execute()
}
