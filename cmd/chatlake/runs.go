package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatlake/chatlake/internal/ledger"
	"github.com/chatlake/chatlake/internal/models"
)

const runsListLongDesc = `List recent InferenceRun rows, newest first (spec §4.10).

Every pipeline's run is tracked in one ledger regardless of which
subcommand started it; --type filters to one RunType.`

type runsListCommander struct {
	runType string
	limit   int
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the inference-run ledger",
	}
	cmd.AddCommand(newRunsListCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmder := &runsListCommander{limit: 20}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Long:  runsListLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}
	cmd.Flags().StringVar(&cmder.runType, "type", "", "filter by run type (Embeddings, Clustering, Topics, Similarity, Drift, BlogTopics)")
	cmd.Flags().IntVar(&cmder.limit, "limit", 20, "maximum number of runs to show")
	addCheckDBFlag(cmd)

	return cmd
}

func (c *runsListCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	_, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer db.Close()

	if done, err := maybeCheckDB(ctx, cmd, db); done {
		return err
	}

	led := ledger.New(db)
	runs, err := led.ListRecent(ctx, models.RunType(c.runType), c.limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	for _, r := range runs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s  %-10s  started=%s\n", r.ID, r.RunType, r.Status, r.StartedAtUtc.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}
