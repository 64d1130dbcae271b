package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chatlake/chatlake/internal/database"
	"github.com/chatlake/chatlake/internal/embeddings"
	"github.com/chatlake/chatlake/internal/ledger"
	"github.com/chatlake/chatlake/internal/models"
	"github.com/chatlake/chatlake/internal/segmenter"
	"github.com/chatlake/chatlake/internal/workers"
)

const segmentLongDesc = `Segment every ingested conversation into embedding-ready ranges and
compute (or fetch, if already cached) each segment's vector.

A new InferenceRun of type Embeddings is started; every emitted segment
and embedding is stamped with its id so a later run can be purged
without disturbing earlier ones.`

type segmentCommander struct {
	maxMessages int
	maxChars    int
}

func newSegmentCmd() *cobra.Command {
	cmder := &segmentCommander{}

	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Segment conversations and compute segment embeddings",
		Long:  segmentLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}
	cmd.Flags().IntVar(&cmder.maxMessages, "max-messages", 0, "override the default max messages per segment (0 keeps the default)")
	cmd.Flags().IntVar(&cmder.maxChars, "max-chars", 0, "override the default max characters per segment (0 keeps the default)")
	addCheckDBFlag(cmd)

	return cmd
}

func (c *segmentCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer db.Close()

	if done, err := maybeCheckDB(ctx, cmd, db); done {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parsing redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	cache, err := embeddings.NewCache(db, 4096, redisClient)
	if err != nil {
		return fmt.Errorf("building embedding cache: %w", err)
	}
	modelClient := embeddings.NewHTTPModelClient(cfg.EmbeddingService)

	led := ledger.New(db)
	featureHash := ledger.HashConfig(struct {
		MaxMessages int
		MaxChars    int
		Model       string
	}{c.maxMessages, c.maxChars, cfg.EmbeddingService.Model})

	run, err := led.Start(ctx, models.RunTypeEmbeddings, "chatlake-segmenter", "v1", featureHash, "all-conversations", "")
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	opts := segmenter.DefaultOptions()
	if c.maxMessages > 0 {
		opts.MaxMessagesPerSegment = c.maxMessages
	}
	if c.maxChars > 0 {
		opts.MaxCharsPerSegment = c.maxChars
	}

	conversations, err := db.ListAllConversations(ctx)
	if err != nil {
		_ = led.Fail(ctx, run.ID, err.Error())
		return fmt.Errorf("listing conversations: %w", err)
	}

	pool := workers.NewPoolManager(workers.PoolConfig{IngestionWorkers: cfg.Workers.IngestionWorkers})
	defer pool.Shutdown()

	var mu sync.Mutex
	segmentCount, embeddingCount := 0, 0

	g, gctx := errgroup.WithContext(ctx)
	workers.ParallelOverGroup(gctx, g, pool.Ingestion, len(conversations), func(ctx context.Context, i int) error {
		conv := conversations[i]

		messages, err := db.GetConversationMessages(ctx, conv.ID)
		if err != nil {
			return fmt.Errorf("loading messages for %s: %w", conv.ID, err)
		}
		segments := segmenter.Segment(messages, opts)

		persisted := make([]models.ConversationSegment, 0, len(segments))
		err = db.Transaction(func(tx *sql.Tx) error {
			for _, s := range segments {
				row := &models.ConversationSegment{
					ConversationID:    conv.ID,
					RunID:             run.ID,
					SegmentIndex:      s.SegmentIndex,
					StartMessageIndex: s.StartMessageIndex,
					EndMessageIndex:   s.EndMessageIndex,
					MessageCount:      s.MessageCount,
					ContentText:       s.ContentText,
					ContentHash:       s.ContentHash,
				}
				if err := database.CreateSegmentTx(ctx, tx, row); err != nil {
					return err
				}
				persisted = append(persisted, *row)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("persisting segments for %s: %w", conv.ID, err)
		}

		embedded := 0
		for _, seg := range persisted {
			_, err := cache.GetOrCompute(ctx, seg.ID, cfg.EmbeddingService.Model, seg.ContentHash, seg.ContentText, modelClient.Embed)
			if err != nil {
				slog.Error("embedding computation failed", "segment_id", seg.ID, "error", err)
				continue
			}
			embedded++
		}

		mu.Lock()
		segmentCount += len(persisted)
		embeddingCount += embedded
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		_ = led.Fail(ctx, run.ID, err.Error())
		return fmt.Errorf("segmenting conversations: %w", err)
	}

	if err := led.Complete(ctx, run.ID, fmt.Sprintf(`{"segments":%d,"embeddings":%d}`, segmentCount, embeddingCount)); err != nil {
		return fmt.Errorf("completing run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: segments=%d embeddings=%d\n", run.ID, segmentCount, embeddingCount)
	return nil
}
