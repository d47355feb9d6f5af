package embedder

import (
	"context"
	"fmt"
	"os"

	"mergectx/internal/chunker"
)

// DefaultBatchSize stays under the service's per-request input limit.
const DefaultBatchSize = 96

// Record pairs a chunk with its embedding vector. Immutable once produced.
type Record struct {
	Chunk  chunker.CodeChunk
	Vector []float32
}

// EmbedChunks embeds chunks in batches and zips the vectors back to their
// chunks by position. A batch that fails terminally is omitted from the
// result; its chunk count is returned so the caller can report partial
// coverage instead of aborting the run.
func EmbedChunks(ctx context.Context, e Embedder, chunks []chunker.CodeChunk) ([]Record, int) {
	return EmbedChunksBatch(ctx, e, chunks, DefaultBatchSize)
}

// EmbedChunksBatch is EmbedChunks with an explicit batch size.
func EmbedChunksBatch(ctx context.Context, e Embedder, chunks []chunker.CodeChunk, batchSize int) ([]Record, int) {
	if len(chunks) == 0 {
		return nil, 0
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	records := make([]Record, 0, len(chunks))
	failed := 0

	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}

		vecs, err := e.Embed(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled: everything not yet embedded counts as failed.
				failed += len(chunks) - i
				return records, failed
			}
			fmt.Fprintf(os.Stderr, "embed batch %d-%d failed: %v\n", i, end-1, err)
			failed += len(batch)
			continue
		}

		for j, v := range vecs {
			records = append(records, Record{Chunk: batch[j], Vector: v})
		}
	}
	return records, failed
}
