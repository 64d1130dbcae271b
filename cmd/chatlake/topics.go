package main

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chatlake/chatlake/internal/database"
	"github.com/chatlake/chatlake/internal/ledger"
	"github.com/chatlake/chatlake/internal/models"
	"github.com/chatlake/chatlake/internal/topics"
)

const topicsLongDesc = `Extract topics across every ingested conversation via collapsed
Gibbs-sampling LDA (spec §4.8).

Each conversation's segments under --embeddings-run are concatenated
into one document; a new Topics run is started, and both the topic set
and each conversation's per-topic score distribution are persisted.`

type topicsCommander struct {
	embeddingsRunID string
	topicCount      int
}

func newTopicsCmd() *cobra.Command {
	cmder := &topicsCommander{}

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Extract topics across conversations",
		Long:  topicsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}
	cmd.Flags().StringVar(&cmder.embeddingsRunID, "embeddings-run", "", "id of the Embeddings run whose segments to draw documents from (required)")
	cmd.Flags().IntVar(&cmder.topicCount, "topic-count", 0, "override the configured topic count (0 keeps config)")
	addCheckDBFlag(cmd)
	_ = cmd.MarkFlagRequired("embeddings-run")

	return cmd
}

func (c *topicsCommander) run(cmd *cobra.Command) error {
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

	textByConversation := make(map[uuid.UUID]string)
	var order []uuid.UUID
	for _, seg := range segments {
		if _, ok := textByConversation[seg.ConversationID]; !ok {
			order = append(order, seg.ConversationID)
		}
		textByConversation[seg.ConversationID] += seg.ContentText + "\n"
	}

	docs := make([]topics.Document, 0, len(order))
	for _, convID := range order {
		docs = append(docs, topics.Document{ConversationID: convID, Text: textByConversation[convID]})
	}

	topicCount := cfg.Topics.TopicCount
	if c.topicCount > 0 {
		topicCount = c.topicCount
	}
	opts := topics.Options{
		TopicCount:       topicCount,
		MaxIterations:    cfg.Topics.MaxIterations,
		Seed:             cfg.Topics.Seed,
		KeywordsPerTopic: cfg.Topics.KeywordsPerTopic,
	}

	led := ledger.New(db)
	featureHash := ledger.HashConfig(opts)
	run, err := led.Start(ctx, models.RunTypeTopics, "chatlake-lda", "v1", featureHash, embeddingsRunID.String(), "")
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	result, err := (topics.Extractor{}).Fit(docs, opts)
	if err != nil {
		_ = led.Fail(ctx, run.ID, err.Error())
		return fmt.Errorf("fitting LDA: %w", err)
	}

	err = db.Transaction(func(tx *sql.Tx) error {
		topicIDs := make(map[int]uuid.UUID, len(result.Topics))
		for _, t := range result.Topics {
			row := &models.Topic{RunID: run.ID, Index: t.Index, Label: t.Label}
			if err := database.CreateTopicTx(ctx, tx, row); err != nil {
				return err
			}
			topicIDs[t.Index] = row.ID
		}
		for _, ct := range result.ConversationTopics {
			err := database.CreateConversationTopicTx(ctx, tx, &models.ConversationTopic{
				ConversationID: ct.ConversationID,
				TopicID:        topicIDs[ct.TopicIndex],
				RunID:          run.ID,
				Score:          ct.Score,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = led.Fail(ctx, run.ID, err.Error())
		return fmt.Errorf("persisting topics: %w", err)
	}

	if err := led.Complete(ctx, run.ID, fmt.Sprintf(`{"topics":%d,"documents":%d}`, len(result.Topics), len(docs))); err != nil {
		return fmt.Errorf("completing run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: topics=%d documents=%d\n", run.ID, len(result.Topics), len(docs))
	return nil
}
