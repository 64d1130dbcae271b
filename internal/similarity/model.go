package similarity

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Edge is one conversation-pair similarity score, always canonicalized
// idA < idB (spec §4.7).
type Edge struct {
	ConversationIDA uuid.UUID
	ConversationIDB uuid.UUID
	Similarity      float64
}

// AllPairs computes the i<j cosine similarity grid in parallel, sorts it
// deterministically by (-similarity, idA, idB), drops sub-threshold
// pairs, then applies the per-conversation quota pass single-threaded
// (spec §4.7).
func (m *Model) AllPairs(ctx context.Context, opts Options) ([]Edge, error) {
	ids := make([]uuid.UUID, 0, len(m.vectors))
	for id := range m.vectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	pool := pond.New(runtime.GOMAXPROCS(0), runtime.GOMAXPROCS(0)*2, pond.MinWorkers(1))
	defer pool.StopAndWait()

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var all []Edge

	n := len(ids)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			local := make([]Edge, 0, n-i-1)
			a := ids[i]
			va, na := m.vectors[a], m.norms[a]
			errCh := make(chan struct{}, 1)
			pool.Submit(func() {
				for j := i + 1; j < n; j++ {
					b := ids[j]
					sim := cosine(va, m.vectors[b], na, m.norms[b])
					if sim >= opts.MinSimilarity {
						local = append(local, Edge{ConversationIDA: a, ConversationIDB: b, Similarity: round4(sim)})
					}
				}
				errCh <- struct{}{}
			})
			<-errCh
			mu.Lock()
			all = append(all, local...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Similarity != all[j].Similarity {
			return all[i].Similarity > all[j].Similarity
		}
		if all[i].ConversationIDA != all[j].ConversationIDA {
			return all[i].ConversationIDA.String() < all[j].ConversationIDA.String()
		}
		return all[i].ConversationIDB.String() < all[j].ConversationIDB.String()
	})

	return applyPerConversationQuota(all, opts.MaxPairsPerConversation), nil
}

// applyPerConversationQuota walks the sorted edge list once, keeping an
// edge only while both endpoints are still under maxPerConversation kept
// edges — the single-threaded quota pass spec §4.7.3 describes.
func applyPerConversationQuota(sorted []Edge, maxPerConversation int) []Edge {
	if maxPerConversation <= 0 {
		return sorted
	}
	counts := make(map[uuid.UUID]int)
	kept := make([]Edge, 0, len(sorted))
	for _, e := range sorted {
		if counts[e.ConversationIDA] >= maxPerConversation || counts[e.ConversationIDB] >= maxPerConversation {
			continue
		}
		counts[e.ConversationIDA]++
		counts[e.ConversationIDB]++
		kept = append(kept, e)
	}
	return kept
}

// FindSimilar vectorizes queryText against the fitted vocabulary/IDF and
// returns the top-limit non-zero cosine matches.
func (m *Model) FindSimilar(ctx context.Context, queryText string, limit int) ([]Edge, error) {
	query := m.vectorizeQuery(queryText)
	queryNorm := query.norm()
	if queryNorm == 0 {
		return nil, nil
	}

	type scored struct {
		id  uuid.UUID
		sim float64
	}
	all := make([]scored, 0, len(m.vectors))
	for id, vec := range m.vectors {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		sim := cosine(query, vec, queryNorm, m.norms[id])
		if sim > 0 {
			all = append(all, scored{id: id, sim: sim})
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].sim != all[j].sim {
			return all[i].sim > all[j].sim
		}
		return all[i].id.String() < all[j].id.String()
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	edges := make([]Edge, len(all))
	for i, s := range all {
		edges[i] = Edge{ConversationIDA: s.id, Similarity: round4(s.sim)}
	}
	return edges, nil
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
