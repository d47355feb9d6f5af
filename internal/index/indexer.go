package index

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mergectx/internal/chunker"
	"mergectx/internal/embedder"
	"mergectx/internal/git"
	"mergectx/internal/store"
	"mergectx/internal/walker"
)

// Baseline locates and materializes the commit a snapshot is indexed from.
type Baseline interface {
	// MergeBase returns the lowest common ancestor of two refs.
	MergeBase(ctx context.Context, baseRef, headRef string) (string, error)
	// Materialize checks the commit out into an isolated directory and
	// returns a release function that must run on every exit path.
	Materialize(ctx context.Context, sha string) (dir string, release func(), err error)
}

// GitBaseline implements Baseline with git worktrees.
type GitBaseline struct {
	Repo string
}

func (g GitBaseline) MergeBase(ctx context.Context, baseRef, headRef string) (string, error) {
	return git.MergeBase(ctx, g.Repo, baseRef, headRef)
}

func (g GitBaseline) Materialize(ctx context.Context, sha string) (string, func(), error) {
	wt, err := git.AddWorktree(ctx, g.Repo, sha)
	if err != nil {
		return "", nil, err
	}
	return wt.Path, wt.Release, nil
}

// Stats reports indexing results. Failed counts cover recoverable per-file
// and per-batch failures; the run itself still succeeds with partial
// coverage.
type Stats struct {
	FilesScanned   int
	FilesFailed    int
	Chunks         int
	ChunksEmbedded int
	ChunksFailed   int
}

// SnapshotResult describes one completed indexing run.
type SnapshotResult struct {
	Collection string
	MergeBase  string
	Stats      Stats
}

// Options tunes an Indexer. Zero values mean defaults.
type Options struct {
	Workers int
	Now     func() time.Time
}

// Indexer populates a vector collection from the merge-base snapshot of two
// refs.
type Indexer struct {
	baseline Baseline
	chunker  *chunker.Chunker
	emb      embedder.Embedder
	store    store.Store
	workers  int
	now      func() time.Time
}

// New creates an Indexer.
func New(b Baseline, ch *chunker.Chunker, emb embedder.Embedder, st store.Store, opts Options) *Indexer {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Indexer{
		baseline: b,
		chunker:  ch,
		emb:      emb,
		store:    st,
		workers:  workers,
		now:      now,
	}
}

// CollectionName derives the collection for a snapshot from its creation
// date and commit. The name is deterministic for a given day and ancestor,
// so re-running indexing converges onto the same records.
func CollectionName(t time.Time, sha string) string {
	return fmt.Sprintf("lca_%s_%s", t.Format("20060102"), git.ShortSHA(sha))
}

// IndexSnapshot computes the merge-base of baseRef and headRef, materializes
// it, chunks and embeds every recognized source file, and upserts the results
// into a freshly named collection. Failure to resolve or materialize the
// baseline is fatal; per-file and per-batch failures degrade to partial
// coverage and are reported in the stats.
func (ix *Indexer) IndexSnapshot(ctx context.Context, baseRef, headRef string) (*SnapshotResult, error) {
	sha, err := ix.baseline.MergeBase(ctx, baseRef, headRef)
	if err != nil {
		return nil, fmt.Errorf("resolve baseline of %s and %s: %w", baseRef, headRef, err)
	}

	dir, release, err := ix.baseline.Materialize(ctx, sha)
	if err != nil {
		return nil, fmt.Errorf("materialize %s: %w", git.ShortSHA(sha), err)
	}
	defer release()

	chunks, stats, err := ix.chunkTree(ctx, dir)
	if err != nil {
		return nil, err
	}
	stats.Chunks = len(chunks)

	records, failed := embedder.EmbedChunks(ctx, ix.emb, chunks)
	stats.ChunksEmbedded = len(records)
	stats.ChunksFailed = failed
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("index %s: no chunks embedded (%d failed)", git.ShortSHA(sha), failed)
	}

	collection := CollectionName(ix.now(), sha)
	entries := make([]store.Entry, len(records))
	for i, rec := range records {
		entries[i] = store.Entry{
			ID:        rec.Chunk.ID(),
			Document:  rec.Chunk.Content,
			Embedding: rec.Vector,
			Meta: store.Metadata{
				FilePath:  rec.Chunk.FilePath,
				Language:  rec.Chunk.Language,
				ChunkType: string(rec.Chunk.Type),
				StartLine: rec.Chunk.StartLine,
				EndLine:   rec.Chunk.EndLine,
			},
		}
	}
	if err := ix.store.Upsert(ctx, collection, ix.emb.Model(), entries); err != nil {
		return nil, fmt.Errorf("populate collection %s: %w", collection, err)
	}

	return &SnapshotResult{
		Collection: collection,
		MergeBase:  sha,
		Stats:      stats,
	}, nil
}

// chunkTree walks the materialized tree and chunks every recognized file
// with a bounded worker pool. Files that fail to read, decode, or parse are
// counted and skipped; the scan continues.
func (ix *Indexer) chunkTree(ctx context.Context, root string) ([]chunker.CodeChunk, Stats, error) {
	var stats Stats

	files, walkErrs := walker.Walk(root, ix.chunker.Registry().Extensions())

	var mu sync.Mutex
	var all []chunker.CodeChunk

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)

	for fi := range files {
		if gctx.Err() != nil {
			continue // drain the channel so the walker can finish
		}
		g.Go(func() error {
			src, err := os.ReadFile(fi.Path)
			if err != nil {
				mu.Lock()
				stats.FilesFailed++
				mu.Unlock()
				return nil
			}
			chunks, err := ix.chunker.ChunkFile(fi.RelPath, src)
			mu.Lock()
			defer mu.Unlock()
			stats.FilesScanned++
			if err != nil {
				stats.FilesFailed++
				fmt.Fprintf(os.Stderr, "chunk %s: %v\n", fi.RelPath, err)
				return nil
			}
			all = append(all, chunks...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if err := <-walkErrs; err != nil {
		return nil, stats, fmt.Errorf("walk %s: %w", root, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].FilePath != all[j].FilePath {
			return all[i].FilePath < all[j].FilePath
		}
		return all[i].StartLine < all[j].StartLine
	})
	return all, stats, nil
}
