package main

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chatlake/chatlake/internal/database"
	"github.com/chatlake/chatlake/internal/ledger"
	"github.com/chatlake/chatlake/internal/models"
	"github.com/chatlake/chatlake/internal/similarity"
)

const similarityLongDesc = `Compute TF-IDF cosine similarity between every pair of conversations
under --embeddings-run (spec §4.7), subject to the configured minimum
score and per-conversation quota, and persist the resulting edges.`

type similarityCommander struct {
	embeddingsRunID string
}

func newSimilarityCmd() *cobra.Command {
	cmder := &similarityCommander{}

	cmd := &cobra.Command{
		Use:   "similarity",
		Short: "Compute pairwise conversation similarity",
		Long:  similarityLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}
	cmd.Flags().StringVar(&cmder.embeddingsRunID, "embeddings-run", "", "id of the Embeddings run whose segments to draw documents from (required)")
	addCheckDBFlag(cmd)
	_ = cmd.MarkFlagRequired("embeddings-run")

	return cmd
}

func (c *similarityCommander) run(cmd *cobra.Command) error {
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

	docs := make([]similarity.Document, 0, len(order))
	for _, convID := range order {
		docs = append(docs, similarity.Document{ConversationID: convID, Text: textByConversation[convID]})
	}

	opts := similarity.Options{
		VocabularyCap:           cfg.Similarity.VocabularyCap,
		MinSimilarity:           cfg.Similarity.MinSimilarity,
		MaxPairsPerConversation: cfg.Similarity.MaxPairsPerConversation,
	}

	led := ledger.New(db)
	featureHash := ledger.HashConfig(opts)
	run, err := led.Start(ctx, models.RunTypeSimilarity, "chatlake-tfidf", "v1", featureHash, embeddingsRunID.String(), "")
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	model, err := (similarity.Vectorizer{}).Fit(docs, opts)
	if err != nil {
		_ = led.Fail(ctx, run.ID, err.Error())
		return fmt.Errorf("fitting TF-IDF model: %w", err)
	}

	edges, err := model.AllPairs(ctx, opts)
	if err != nil {
		_ = led.Fail(ctx, run.ID, err.Error())
		return fmt.Errorf("computing pairs: %w", err)
	}

	err = db.Transaction(func(tx *sql.Tx) error {
		for _, e := range edges {
			err := database.CreateConversationSimilarityTx(ctx, tx, &models.ConversationSimilarity{
				RunID:           run.ID,
				ConversationIDA: e.ConversationIDA,
				ConversationIDB: e.ConversationIDB,
				Score:           e.Similarity,
				Method:          "tfidf-cosine",
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = led.Fail(ctx, run.ID, err.Error())
		return fmt.Errorf("persisting similarity edges: %w", err)
	}

	if err := led.Complete(ctx, run.ID, fmt.Sprintf(`{"documents":%d,"edges":%d}`, len(docs), len(edges))); err != nil {
		return fmt.Errorf("completing run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: documents=%d edges=%d\n", run.ID, len(docs), len(edges))
	return nil
}
