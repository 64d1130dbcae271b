package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chatlake/chatlake/internal/clustering"
	"github.com/chatlake/chatlake/internal/ledger"
	"github.com/chatlake/chatlake/internal/models"
	"github.com/chatlake/chatlake/internal/suggestions"
	"github.com/chatlake/chatlake/internal/useroverride"
)

const clusterLongDesc = `Cluster one Embeddings run's segments into candidate project groups.

Runs UMAP+HDBSCAN by default (spec §4.5); with fewer segments than the
configured UMAP neighbor count, HDBSCAN runs directly on the embeddings.
--method kmeans runs the fixed-k KMeans clusterer instead. Each surviving cluster
is written as a Pending ProjectSuggestion, unless its member segment set
was already suppressed or rejected by a prior UserOverride.`

type clusterCommander struct {
	embeddingsRunID string
	method          string
}

func newClusterCmd() *cobra.Command {
	cmder := &clusterCommander{}

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster segments into candidate projects",
		Long:  clusterLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}
	cmd.Flags().StringVar(&cmder.embeddingsRunID, "embeddings-run", "", "id of the Embeddings run whose segments to cluster (required)")
	cmd.Flags().StringVar(&cmder.method, "method", "auto", "clustering method: auto (UMAP+HDBSCAN) or kmeans")
	addCheckDBFlag(cmd)
	_ = cmd.MarkFlagRequired("embeddings-run")

	return cmd
}

func (c *clusterCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer db.Close()

	if done, err := maybeCheckDB(ctx, cmd, db); done {
		return err
	}

	embeddingsRunID, err := uuid.Parse(c.embeddingsRunID)
	if err != nil {
		return fmt.Errorf("invalid --embeddings-run: %w", err)
	}

	segments, err := db.GetRunSegments(ctx, embeddingsRunID)
	if err != nil {
		return fmt.Errorf("loading segments: %w", err)
	}

	points := make([]clustering.Point, 0, len(segments))
	conversationOf := make(map[uuid.UUID]uuid.UUID, len(segments))
	textOf := make(map[uuid.UUID]string, len(segments))
	for _, seg := range segments {
		conversationOf[seg.ID] = seg.ConversationID
		textOf[seg.ID] = seg.ContentText

		emb, err := db.GetSegmentEmbedding(ctx, seg.ID, cfg.EmbeddingService.Model)
		if err != nil {
			return fmt.Errorf("loading embedding for segment %s: %w", seg.ID, err)
		}
		if emb == nil {
			continue
		}
		points = append(points, clustering.Point{SegmentID: seg.ID, Vector: float32VectorToFloat64(bytesToFloat32(emb.VectorBytes))})
	}

	led := ledger.New(db)
	featureHash := ledger.HashConfig(cfg.Clustering)
	run, err := led.Start(ctx, models.RunTypeClustering, "chatlake-clustering", c.method, featureHash, embeddingsRunID.String(), "")
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	var result clustering.Result
	switch c.method {
	case "kmeans":
		result, err = clustering.RunKMeans(points, clustering.KMeansOptions{
			ClusterCount:     cfg.KMeans.ClusterCount,
			MaxIterations:    cfg.KMeans.MaxIterations,
			OutlierThreshold: cfg.KMeans.OutlierThreshold,
			Seed:             cfg.KMeans.Seed,
		})
	default:
		result, err = clustering.RunUMAPHDBSCAN(ctx, points, clustering.Options{
			UMAPDimensions: cfg.Clustering.UMAPDimensions,
			UMAPNeighbors:  cfg.Clustering.UMAPNeighbors,
			MinClusterSize: cfg.Clustering.MinClusterSize,
			MinPoints:      cfg.Clustering.MinPoints,
			RandomSeed:     int64(cfg.Clustering.RandomSeed),
		}, nil)
	}
	if err != nil {
		_ = led.Fail(ctx, run.ID, err.Error())
		return fmt.Errorf("clustering: %w", err)
	}

	writer := suggestions.New(useroverride.New(db))
	written := 0
	for _, cluster := range result.Clusters {
		suggestion, err := writer.WriteFromCluster(ctx, run.ID, cluster,
			func(segID uuid.UUID) (uuid.UUID, bool) { id, ok := conversationOf[segID]; return id, ok },
			func(segID uuid.UUID) (string, bool) { t, ok := textOf[segID]; return t, ok },
		)
		if err != nil {
			_ = led.Fail(ctx, run.ID, err.Error())
			return fmt.Errorf("writing suggestion: %w", err)
		}
		if suggestion == nil {
			continue
		}
		if err := db.CreateProjectSuggestion(ctx, suggestion); err != nil {
			_ = led.Fail(ctx, run.ID, err.Error())
			return fmt.Errorf("persisting suggestion: %w", err)
		}
		written++
	}

	if err := led.Complete(ctx, run.ID, fmt.Sprintf(`{"clusters":%d,"suggestions":%d,"noise":%d}`, len(result.Clusters), written, len(result.NoiseSegmentIDs))); err != nil {
		return fmt.Errorf("completing run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: clusters=%d suggestions=%d noise=%d\n", run.ID, len(result.Clusters), written, len(result.NoiseSegmentIDs))
	return nil
}
