// Command chatlake is the boundary adapter over the core packages (spec
// §2.5): flag parsing, config loading, and dispatch into internal/*. It
// contains no analytical logic of its own.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatlake",
		Short: "ChatLake conversational-data-analytics pipeline runner",
		Long: `chatlake runs the ChatLake core's ingestion, segmentation,
clustering, topic, similarity, and drift pipelines against a Postgres
store, one subcommand per pipeline entry point.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newIngestCmd(),
		newSegmentCmd(),
		newClusterCmd(),
		newTopicsCmd(),
		newSimilarityCmd(),
		newDriftCmd(),
		newRunsCmd(),
	)

	return cmd
}
