package index_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mergectx/internal/chunker"
	"mergectx/internal/chunker/languages"
	"mergectx/internal/embedder"
	"mergectx/internal/git"
	"mergectx/internal/index"
	"mergectx/internal/store"
)

// fakeBaseline serves a pre-built directory instead of a git worktree and
// records whether the release function ran.
type fakeBaseline struct {
	sha      string
	dir      string
	baseErr  error
	released bool
}

func (f *fakeBaseline) MergeBase(ctx context.Context, baseRef, headRef string) (string, error) {
	if f.baseErr != nil {
		return "", f.baseErr
	}
	return f.sha, nil
}

func (f *fakeBaseline) Materialize(ctx context.Context, sha string) (string, func(), error) {
	return f.dir, func() { f.released = true }, nil
}

// hashEmbedder derives a deterministic vector from the text so repeated runs
// produce identical embeddings.
type hashEmbedder struct {
	fail bool
}

func (h hashEmbedder) Model() string { return "fake-model" }

func (h hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if h.fail {
		return nil, errors.New("embedding service down")
	}
	vecs := make([][]float32, len(texts))
	for i, tx := range texts {
		var sum float32
		for _, r := range tx {
			sum += float32(r)
		}
		vecs[i] = []float32{sum, float32(len(tx)), 1, 0}
	}
	return vecs, nil
}

func newIndexer(t *testing.T, b index.Baseline, emb embedder.Embedder) (*index.Indexer, *store.SQLiteStore) {
	t.Helper()
	reg := chunker.NewRegistry()
	languages.RegisterAll(reg)
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	fixed := func() time.Time { return time.Date(2024, 10, 25, 12, 0, 0, 0, time.UTC) }
	ix := index.New(b, chunker.NewChunker(reg), emb, st, index.Options{Workers: 2, Now: fixed})
	return ix, st
}

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"app.py":       "import os\n\ndef main():\n    return os.getcwd()\n",
		"lib/util.py":  "def helper(x):\n    return x * 2\n",
		"lib/shape.go": "package lib\n\nfunc Area(w, h int) int { return w * h }\n",
		"README.md":    "not indexed\n",
	}
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return dir
}

func TestIndexSnapshot(t *testing.T) {
	b := &fakeBaseline{sha: "abc123de99887766", dir: writeTree(t)}
	ix, st := newIndexer(t, b, hashEmbedder{})

	res, err := ix.IndexSnapshot(context.Background(), "origin/main", "HEAD")
	if err != nil {
		t.Fatalf("IndexSnapshot: %v", err)
	}
	if res.Collection != "lca_20241025_abc123de" {
		t.Errorf("collection = %s, want lca_20241025_abc123de", res.Collection)
	}
	if res.MergeBase != b.sha {
		t.Errorf("merge base = %s, want %s", res.MergeBase, b.sha)
	}
	if res.Stats.FilesScanned != 3 {
		t.Errorf("files scanned = %d, want 3", res.Stats.FilesScanned)
	}
	if res.Stats.Chunks == 0 || res.Stats.ChunksEmbedded != res.Stats.Chunks {
		t.Errorf("chunks = %d embedded = %d, want all embedded", res.Stats.Chunks, res.Stats.ChunksEmbedded)
	}
	if !b.released {
		t.Error("baseline not released after successful run")
	}

	n, err := st.Count(context.Background(), res.Collection)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != res.Stats.ChunksEmbedded {
		t.Errorf("stored %d records, want %d", n, res.Stats.ChunksEmbedded)
	}
}

func TestIndexSnapshot_Idempotent(t *testing.T) {
	b := &fakeBaseline{sha: "abc123de99887766", dir: writeTree(t)}
	ix, st := newIndexer(t, b, hashEmbedder{})
	ctx := context.Background()

	first, err := ix.IndexSnapshot(ctx, "origin/main", "HEAD")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := ix.IndexSnapshot(ctx, "origin/main", "HEAD")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.Collection != second.Collection {
		t.Fatalf("collections differ: %s vs %s", first.Collection, second.Collection)
	}

	n, err := st.Count(ctx, first.Collection)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != first.Stats.ChunksEmbedded {
		t.Errorf("count after re-index = %d, want %d", n, first.Stats.ChunksEmbedded)
	}
}

func TestIndexSnapshot_NoMergeBaseIsFatal(t *testing.T) {
	b := &fakeBaseline{baseErr: git.ErrNoMergeBase}
	ix, _ := newIndexer(t, b, hashEmbedder{})

	_, err := ix.IndexSnapshot(context.Background(), "origin/main", "orphan")
	if !errors.Is(err, git.ErrNoMergeBase) {
		t.Errorf("err = %v, want ErrNoMergeBase", err)
	}
	if b.released {
		t.Error("nothing was materialized, release must not have run")
	}
}

func TestIndexSnapshot_ReleasesOnEmbedFailure(t *testing.T) {
	b := &fakeBaseline{sha: "abc123de99887766", dir: writeTree(t)}
	ix, _ := newIndexer(t, b, hashEmbedder{fail: true})

	_, err := ix.IndexSnapshot(context.Background(), "origin/main", "HEAD")
	if err == nil {
		t.Fatal("expected error when every batch fails")
	}
	if !b.released {
		t.Error("baseline not released on failure path")
	}
}

func TestCollectionName(t *testing.T) {
	at := time.Date(2024, 10, 25, 23, 59, 0, 0, time.UTC)
	if got := index.CollectionName(at, "abc123de99887766"); got != "lca_20241025_abc123de" {
		t.Errorf("CollectionName = %q", got)
	}
}
