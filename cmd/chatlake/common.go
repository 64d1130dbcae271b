package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/chatlake/chatlake/internal/config"
	"github.com/chatlake/chatlake/internal/database"
)

// checkDB is bound to every subcommand as --check-db: when set, the
// subcommand only pings the database and reports health instead of
// running its pipeline.
var checkDB bool

func addCheckDBFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&checkDB, "check-db", false, "ping the database and exit instead of running the pipeline")
}

// bootstrap loads config and opens the database pool every subcommand
// needs before dispatching into internal/*.
func bootstrap() (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	return cfg, db, nil
}

// maybeCheckDB reports db health and returns true when --check-db was
// passed, signaling the caller to skip its pipeline.
func maybeCheckDB(ctx context.Context, cmd *cobra.Command, db *database.DB) (bool, error) {
	if !checkDB {
		return false, nil
	}
	if err := db.Healthy(ctx); err != nil {
		return true, fmt.Errorf("database unhealthy: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "database connection healthy")
	return true, nil
}

// bytesToFloat32 decodes a stored embedding's little-endian float32 bytes
// (the wire format internal/embeddings uses) back into a vector.
func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// float32VectorToFloat64 widens an embedding vector for the float64-based
// clustering and similarity math.
func float32VectorToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
