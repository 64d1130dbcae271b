package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chatlake/chatlake/internal/drift"
	"github.com/chatlake/chatlake/internal/ledger"
	"github.com/chatlake/chatlake/internal/models"
)

const driftLongDesc = `Measure topic drift for one project over a window (spec §4.9).

Compares the project's topic-score distribution inside the window
[--window-end minus --window-days, --window-end) against the
equal-length preceding window, both drawn from
--topics-run's persisted ConversationTopic rows, and persists the result.`

type driftCommander struct {
	project     string
	topicsRunID string
	windowEnd   string
	windowDays  int
}

func newDriftCmd() *cobra.Command {
	cmder := &driftCommander{}

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Measure a project's topic drift over a window",
		Long:  driftLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}
	cmd.Flags().StringVar(&cmder.project, "project", "", "project id to measure drift for (required)")
	cmd.Flags().StringVar(&cmder.topicsRunID, "topics-run", "", "id of the Topics run to draw per-conversation scores from (required)")
	cmd.Flags().StringVar(&cmder.windowEnd, "window-end", "", "RFC3339 window end, exclusive (default: now)")
	cmd.Flags().IntVar(&cmder.windowDays, "window-days", 0, "window length in days (0 keeps the configured default)")
	addCheckDBFlag(cmd)
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("topics-run")

	return cmd
}

func (c *driftCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer db.Close()

	if done, err := maybeCheckDB(ctx, cmd, db); done {
		return err
	}

	projectID, err := uuid.Parse(c.project)
	if err != nil {
		return fmt.Errorf("invalid --project: %w", err)
	}
	topicsRunID, err := uuid.Parse(c.topicsRunID)
	if err != nil {
		return fmt.Errorf("invalid --topics-run: %w", err)
	}

	windowEnd := time.Now().UTC()
	if c.windowEnd != "" {
		windowEnd, err = time.Parse(time.RFC3339, c.windowEnd)
		if err != nil {
			return fmt.Errorf("invalid --window-end: %w", err)
		}
	}
	windowDays := cfg.Drift.WindowDays
	if c.windowDays > 0 {
		windowDays = c.windowDays
	}
	windowStart := windowEnd.AddDate(0, 0, -windowDays)

	led := ledger.New(db)
	featureHash := ledger.HashConfig(struct{ WindowDays int }{windowDays})
	run, err := led.Start(ctx, models.RunTypeDrift, "chatlake-drift", "v1", featureHash, projectID.String(), "")
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	metric, err := drift.DetectForProject(ctx, db, topicsRunID, projectID, windowStart, windowEnd)
	if err != nil {
		_ = led.Fail(ctx, run.ID, err.Error())
		return fmt.Errorf("detecting drift: %w", err)
	}

	if err := db.CreateDriftMetric(ctx, &models.ProjectDriftMetric{
		RunID:       run.ID,
		ProjectID:   projectID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		DriftScore:  metric.DriftScore,
	}); err != nil {
		_ = led.Fail(ctx, run.ID, err.Error())
		return fmt.Errorf("persisting drift metric: %w", err)
	}

	if err := led.Complete(ctx, run.ID, fmt.Sprintf(`{"drift_score":%.4f,"shifts":%d}`, metric.DriftScore, len(metric.TopicShifts))); err != nil {
		return fmt.Errorf("completing run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: drift_score=%.4f shifts=%d\n", run.ID, metric.DriftScore, len(metric.TopicShifts))
	return nil
}
