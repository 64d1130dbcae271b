package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chatlake/chatlake/internal/ingestion"
	"github.com/chatlake/chatlake/internal/models"
	"github.com/chatlake/chatlake/internal/parser"
)

const ingestLongDesc = `Ingest a ChatGPT-style export file into the ChatLake store.

Parses the file's outer JSON array one conversation at a time, dedupes
conversations by their structural ConversationKey, and persists new
conversations and messages under one ImportBatch.

Examples:
  chatlake ingest export.json
  chatlake ingest --source-system chatgpt-web export.json`

type ingestCommander struct {
	sourceSystem  string
	sourceVersion string
}

func newIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <export-file>",
		Short: "Ingest a conversation export file",
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&cmder.sourceSystem, "source-system", "chatgpt-export", "source system label for this import")
	cmd.Flags().StringVar(&cmder.sourceVersion, "source-version", "", "source format version label")
	addCheckDBFlag(cmd)

	return cmd
}

func (c *ingestCommander) run(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()

	_, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer db.Close()

	if done, err := maybeCheckDB(ctx, cmd, db); done {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	batch, err := db.CreateImportBatch(ctx, c.sourceSystem, c.sourceVersion)
	if err != nil {
		return fmt.Errorf("creating import batch: %w", err)
	}

	artifact := &models.RawArtifact{
		ID:            uuid.New(),
		BatchID:       batch.ID,
		ArtifactType:  "conversations.json",
		Name:          path,
		ContentType:   "application/json",
		ContentSha256: sha256.Sum256(raw),
	}
	if err := db.CreateRawArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("recording raw artifact: %w", err)
	}

	conversations, failures := parser.ParseChatGPTExport(bytes.NewReader(raw))

	failDone := make(chan struct{})
	go func() {
		defer close(failDone)
		for f := range failures {
			_ = db.CreateParsingFailure(ctx, &models.ParsingFailure{
				ArtifactID:  artifact.ID,
				ExternalID:  f.ExternalID,
				Reason:      f.Reason,
				DetailsJson: f.Details,
			})
		}
	}()

	pipeline := ingestion.NewPipeline(db)
	summary, ingestErr := pipeline.Ingest(ctx, batch.ID, artifact.ID, conversations)
	<-failDone

	if ingestErr != nil {
		_ = db.FailImportBatch(context.Background(), batch.ID, ingestErr.Error())
		return fmt.Errorf("ingestion failed: %w", ingestErr)
	}
	if err := db.CompleteImportBatch(ctx, batch.ID); err != nil {
		return fmt.Errorf("completing import batch: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "batch %s: seen=%d new=%d linked=%d messages=%d failures=%d\n",
		batch.ID, summary.ConversationsSeen, summary.ConversationsNew,
		summary.ConversationsLinked, summary.MessagesInserted, summary.Failures)
	return nil
}
