package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mergectx/internal/chunker"
	"mergectx/internal/chunker/languages"
	"mergectx/internal/git"
	"mergectx/internal/retrieve"
	"mergectx/internal/store"
)

var (
	flagCollection   string
	flagConflicts    string
	flagK            int
	flagThreshold    float64
	flagMaxContext   int
	flagRetrieveJSON bool
)

// conflictRegion names a file and the 1-based lines a conflict touched.
// Each line maps to its enclosing top-level chunk, so a conflicted hunk
// inside a function queries with the whole function.
type conflictRegion struct {
	File  string `json:"file"`
	Lines []int  `json:"lines"`
}

type conflictInput struct {
	Local  []conflictRegion `json:"local"`
	Remote []conflictRegion `json:"remote"`
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Retrieve indexed code similar to conflicting regions",
	Long: `Retrieve reads a conflict description ({"local": [{"file": ..., "lines":
[...]}], "remote": [...]}), turns each region into query chunks, and compiles
the most similar indexed code from the given collection into a plain-text
context artifact.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		root, err := git.Root(ctx, flagRepo)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		emb, err := cfg.NewEmbedder()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		data, err := os.ReadFile(flagConflicts)
		if err != nil {
			return fmt.Errorf("read conflicts file: %w", err)
		}
		var input conflictInput
		if err := json.Unmarshal(data, &input); err != nil {
			return fmt.Errorf("parse conflicts file: %w", err)
		}

		reg := chunker.NewRegistry()
		languages.RegisterAll(reg)
		ch := chunker.NewChunker(reg)

		q := retrieve.Query{
			Local:  chunkRegions(ch, root, input.Local),
			Remote: chunkRegions(ch, root, input.Remote),
		}

		threshold := cfg.Retrieval.DistanceThreshold
		if cmd.Flags().Changed("threshold") {
			threshold = flagThreshold
		}
		opts := retrieve.Options{
			K:                 cfg.Retrieval.K,
			DistanceThreshold: &threshold,
			MaxContextLength:  cfg.Retrieval.MaxContextLength,
		}
		if flagK > 0 {
			opts.K = flagK
		}
		if flagMaxContext > 0 {
			opts.MaxContextLength = flagMaxContext
		}

		cctx := retrieve.New(emb, st).Retrieve(ctx, flagCollection, q, opts)
		for _, w := range cctx.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}

		if flagRetrieveJSON {
			return json.NewEncoder(os.Stdout).Encode(retrieveOutput(cctx))
		}
		fmt.Print(cctx.Render(opts.MaxContextLength))
		return nil
	},
}

// chunkRegions maps conflict regions to query chunks. Missing or unsupported
// files are skipped with a warning; retrieval proceeds with what remains.
func chunkRegions(ch *chunker.Chunker, root string, regions []conflictRegion) []chunker.CodeChunk {
	var chunks []chunker.CodeChunk
	for _, r := range regions {
		src, err := os.ReadFile(filepath.Join(root, r.File))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skip %s: %v\n", r.File, err)
			continue
		}
		cs, err := ch.ChunkLines(r.File, src, r.Lines)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skip %s: %v\n", r.File, err)
			continue
		}
		chunks = append(chunks, cs...)
	}
	return chunks
}

type matchJSON struct {
	ID        string  `json:"id"`
	FilePath  string  `json:"file_path"`
	Lines     string  `json:"lines"`
	ChunkType string  `json:"chunk_type"`
	Distance  float64 `json:"distance"`
}

func retrieveOutput(c *retrieve.CompiledContext) map[string]any {
	matches := make([]matchJSON, len(c.Similar))
	for i, m := range c.Similar {
		matches[i] = matchJSON{
			ID:        m.ID,
			FilePath:  m.FilePath,
			Lines:     fmt.Sprintf("%d-%d", m.StartLine, m.EndLine),
			ChunkType: m.ChunkType,
			Distance:  m.Distance,
		}
	}
	return map[string]any{
		"collection":         c.Collection,
		"local_chunks":       c.LocalChunks,
		"remote_chunks":      c.RemoteChunks,
		"similar_code_found": c.SimilarCodeFound,
		"matches":            matches,
		"warnings":           c.Warnings,
	}
}

func init() {
	retrieveCmd.Flags().StringVar(&flagCollection, "collection", "", "collection to query (required)")
	retrieveCmd.Flags().StringVar(&flagConflicts, "conflicts", "", "conflict regions JSON file (required)")
	retrieveCmd.Flags().IntVarP(&flagK, "neighbors", "k", 0, "neighbors per query chunk (default 5)")
	retrieveCmd.Flags().Float64Var(&flagThreshold, "threshold", 0, "max cosine distance for a match, 0 keeps exact matches only (default 0.5)")
	retrieveCmd.Flags().IntVar(&flagMaxContext, "max-context", 0, "truncate rendered context to this many bytes")
	retrieveCmd.Flags().BoolVar(&flagRetrieveJSON, "json", false, "machine-readable output")
	retrieveCmd.MarkFlagRequired("collection")
	retrieveCmd.MarkFlagRequired("conflicts")
	rootCmd.AddCommand(retrieveCmd)
}
