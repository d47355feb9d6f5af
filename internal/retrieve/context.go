package retrieve

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"mergectx/internal/chunker"
)

// Match is one retrieved record annotated with its cosine distance to the
// closest query chunk.
type Match struct {
	ID        string
	Content   string
	FilePath  string
	Language  string
	ChunkType string
	StartLine int
	EndLine   int
	Distance  float64
}

// CompiledContext is the structured artifact handed to the downstream prompt
// builder: the caller's local and remote query chunks plus the deduplicated
// similar records, with counters for reporting.
type CompiledContext struct {
	Collection string

	Local   []chunker.CodeChunk
	Remote  []chunker.CodeChunk
	Similar []Match

	LocalChunks      int
	RemoteChunks     int
	SimilarCodeFound int

	Warnings []string
}

func (c *CompiledContext) addWarning(msg string) {
	c.Warnings = append(c.Warnings, msg)
}

// Render formats the context as plain text with one section per partition.
// Empty sections get a placeholder so the consumer always sees all three
// headings. When maxLen > 0 and the output exceeds it, the text is cut and
// marked as truncated.
func (c *CompiledContext) Render(maxLen int) string {
	var b strings.Builder

	b.WriteString("LOCAL CHANGES:\n")
	writeChunks(&b, c.Local)

	b.WriteString("\nREMOTE CHANGES:\n")
	writeChunks(&b, c.Remote)

	b.WriteString("\nSIMILAR CODE PATTERNS FOUND:\n")
	if len(c.Similar) == 0 {
		b.WriteString("(no similar patterns found)\n")
	}
	for i, m := range c.Similar {
		fmt.Fprintf(&b, "[%d] File: %s (%s, distance: %.3f)\n", i+1, m.FilePath, m.ChunkType, m.Distance)
		fmt.Fprintf(&b, "    Lines: %d-%d\n", m.StartLine, m.EndLine)
		writeIndented(&b, m.Content)
		b.WriteByte('\n')
	}

	out := b.String()
	if maxLen > 0 && len(out) > maxLen {
		// Back the cut off to a rune boundary so truncation never emits a
		// split multi-byte character.
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut] + "\n... [truncated]"
	}
	return out
}

func writeChunks(b *strings.Builder, chunks []chunker.CodeChunk) {
	if len(chunks) == 0 {
		b.WriteString("(no changes)\n")
		return
	}
	for i, c := range chunks {
		fmt.Fprintf(b, "[%d] File: %s (%s)\n", i+1, c.FilePath, c.Type)
		fmt.Fprintf(b, "    Lines: %d-%d\n", c.StartLine, c.EndLine)
		writeIndented(b, c.Content)
		b.WriteByte('\n')
	}
}

func writeIndented(b *strings.Builder, content string) {
	for _, line := range strings.Split(content, "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
}
