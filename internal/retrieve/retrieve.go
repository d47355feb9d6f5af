// Package retrieve embeds query chunks, finds their nearest indexed
// neighbors, and compiles the results into a context artifact. Retrieval is
// enrichment, not a critical path: every failure degrades to a partial or
// empty context instead of an error.
package retrieve

import (
	"context"
	"fmt"
	"sort"

	"mergectx/internal/chunker"
	"mergectx/internal/embedder"
	"mergectx/internal/store"
)

const (
	// DefaultK is the number of neighbors fetched per query chunk.
	DefaultK = 5
	// DefaultDistanceThreshold drops neighbors beyond moderate similarity:
	// under ~0.3 is a strong match, 0.3-0.5 moderate, above 0.5 noise.
	DefaultDistanceThreshold = 0.5
)

// Query is the caller-partitioned set of query chunks: the regions each side
// of a merge touched. Query chunks are ephemeral and never persisted.
type Query struct {
	Local  []chunker.CodeChunk
	Remote []chunker.CodeChunk
}

func (q Query) empty() bool {
	return len(q.Local) == 0 && len(q.Remote) == 0
}

// Options tunes retrieval. Zero values mean defaults; MaxContextLength 0
// means no truncation. DistanceThreshold is a pointer so an explicit 0
// (exact matches only) stays distinguishable from unset.
type Options struct {
	K                 int
	DistanceThreshold *float64
	MaxContextLength  int
}

func (o Options) withDefaults() Options {
	if o.K <= 0 {
		o.K = DefaultK
	}
	if o.DistanceThreshold == nil {
		d := DefaultDistanceThreshold
		o.DistanceThreshold = &d
	}
	return o
}

// Engine retrieves similar indexed code for query chunks.
type Engine struct {
	emb   embedder.Embedder
	store store.Store
}

// New creates an Engine.
func New(emb embedder.Embedder, st store.Store) *Engine {
	return &Engine{emb: emb, store: st}
}

// Retrieve embeds the query chunks, queries the collection for each one's
// nearest neighbors, filters by distance, and deduplicates across query
// chunks keeping the lowest observed distance per record.
//
// An empty query short-circuits without touching the embedding service. A
// missing or empty collection, an embedding failure, or a store failure all
// degrade to a context with fewer (or no) similar matches and a warning;
// Retrieve never fails the caller.
func (e *Engine) Retrieve(ctx context.Context, collection string, q Query, opts Options) *CompiledContext {
	opts = opts.withDefaults()

	out := &CompiledContext{
		Collection:   collection,
		Local:        q.Local,
		Remote:       q.Remote,
		LocalChunks:  len(q.Local),
		RemoteChunks: len(q.Remote),
	}
	if q.empty() {
		return out
	}

	all := make([]chunker.CodeChunk, 0, len(q.Local)+len(q.Remote))
	all = append(all, q.Local...)
	all = append(all, q.Remote...)

	records, failed := embedder.EmbedChunks(ctx, e.emb, all)
	if failed > 0 {
		out.addWarning(fmt.Sprintf("embedding failed for %d of %d query chunks", failed, len(all)))
	}
	if len(records) == 0 {
		return out
	}

	best := make(map[string]store.Result)
	for _, rec := range records {
		results, err := e.store.Query(ctx, collection, rec.Vector, opts.K, nil)
		if err != nil {
			out.addWarning(fmt.Sprintf("query %s: %v", collection, err))
			continue
		}
		for _, r := range results {
			if r.Distance > *opts.DistanceThreshold {
				continue
			}
			if prev, ok := best[r.ID]; !ok || r.Distance < prev.Distance {
				best[r.ID] = r
			}
		}
	}

	matches := make([]Match, 0, len(best))
	for _, r := range best {
		matches = append(matches, Match{
			ID:        r.ID,
			Content:   r.Document,
			FilePath:  r.Meta.FilePath,
			Language:  r.Meta.Language,
			ChunkType: r.Meta.ChunkType,
			StartLine: r.Meta.StartLine,
			EndLine:   r.Meta.EndLine,
			Distance:  r.Distance,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})

	out.Similar = matches
	out.SimilarCodeFound = len(matches)
	return out
}
