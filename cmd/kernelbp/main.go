// Command kernelbp runs loopy kernel belief propagation over a graph
// definition and writes the converged edge betas.
//
// Usage:
//
//	kernelbp run --graph graph.txt --output betas.txt --beta-epsilon 1e-6
//	kernelbp run --config run.yaml --partitions 8 --metrics-addr :9090
//	kernelbp version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "kernelbp",
	Short: "Loopy kernel belief propagation on a Gather-Apply-Scatter engine",
	Long: `kernelbp loads a graph of observed and hidden vertices with their
kernel matrices, iterates kernel belief propagation until every edge belief
changes by less than --beta-epsilon, and writes the converged betas.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kernelbp version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "kernelbp", version)
	},
}

func init() {
	rootCmd.AddCommand(newRunCmd(), versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
