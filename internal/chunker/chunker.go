package chunker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// Chunker parses source files with tree-sitter and extracts top-level chunks.
// Nested functions and methods stay inside their enclosing chunk's content;
// nothing is split below the top level.
type Chunker struct {
	registry *Registry
}

// NewChunker creates a chunker backed by the given registry.
func NewChunker(r *Registry) *Chunker {
	return &Chunker{registry: r}
}

// Registry returns the language registry backing this chunker.
func (c *Chunker) Registry() *Registry {
	return c.registry
}

// ChunkFile parses src and returns its chunks, ordered by start line. Each
// top-level node whose kind is in the language's top-level set becomes one
// chunk; consecutive remaining nodes (imports, globals, loose statements)
// coalesce into one imports_and_globals chunk per contiguous run. Content is
// always the exact line slice [StartLine, EndLine] of src, so chunks never
// overlap and round-trip against the original file.
//
// If no grammar is registered for the file, ChunkFile returns (nil, nil) so
// the caller can skip it. Undecodable or unparseable files return an error;
// the caller counts them and continues the scan.
func (c *Chunker) ChunkFile(relPath string, src []byte) ([]CodeChunk, error) {
	spec := c.registry.Lookup(relPath)
	if spec == nil {
		return nil, nil
	}
	if len(src) == 0 {
		return nil, nil
	}
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("decode %s: not valid UTF-8", relPath)
	}

	root, cleanup, err := parse(spec, relPath, src)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	lines := strings.Split(string(src), "\n")

	var chunks []CodeChunk
	var run leftoverRun

	flush := func() {
		if ch, ok := run.chunk(relPath, spec.Name, lines); ok {
			chunks = append(chunks, ch)
		}
		run = leftoverRun{}
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		start := int(child.StartPoint().Row) + 1
		end := clampLine(int(child.EndPoint().Row)+1, len(lines))

		if !spec.TopLevel[child.Type()] {
			run.extend(start, end, child.Type())
			continue
		}
		flush()

		content := sliceLines(lines, start, end)
		if strings.TrimSpace(content) == "" {
			continue
		}
		sig := strings.TrimSpace(lines[start-1])
		ch, err := New(relPath, spec.Name, sig, content, ClassifyNode(child.Type()), start, end, []string{child.Type()})
		if err != nil {
			continue
		}
		chunks = append(chunks, ch)
	}
	flush()

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].StartLine < chunks[j].StartLine })
	return chunks, nil
}

// ChunkLines maps 1-based line numbers to the innermost enclosing node of a
// chunk-worthy kind and returns the resulting chunks, deduplicated by span.
// It is how conflict regions become query chunks: a line inside a method
// maps to that method rather than the whole class, keeping queries focused.
// Lines outside any such node are dropped.
func (c *Chunker) ChunkLines(relPath string, src []byte, lineNums []int) ([]CodeChunk, error) {
	spec := c.registry.Lookup(relPath)
	if spec == nil {
		return nil, nil
	}
	if len(src) == 0 {
		return nil, nil
	}
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("decode %s: not valid UTF-8", relPath)
	}

	root, cleanup, err := parse(spec, relPath, src)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	lines := strings.Split(string(src), "\n")

	type span struct{ start, end int }
	seen := make(map[span]bool)
	var chunks []CodeChunk

	for _, ln := range lineNums {
		if ln < 1 || ln > len(lines) {
			continue
		}
		node := findEnclosing(root, uint32(ln-1), spec.TopLevel)
		if node == nil {
			continue
		}
		start := int(node.StartPoint().Row) + 1
		end := clampLine(int(node.EndPoint().Row)+1, len(lines))
		sp := span{start, end}
		if seen[sp] {
			continue
		}
		seen[sp] = true

		content := sliceLines(lines, start, end)
		if strings.TrimSpace(content) == "" {
			continue
		}
		sig := strings.TrimSpace(lines[start-1])
		ch, err := New(relPath, spec.Name, sig, content, ClassifyNode(node.Type()), start, end, []string{node.Type()})
		if err != nil {
			continue
		}
		chunks = append(chunks, ch)
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].StartLine < chunks[j].StartLine })
	return chunks, nil
}

func parse(spec *LanguageSpec, relPath string, src []byte) (*sitter.Node, func(), error) {
	parser := sitter.NewParser()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	return tree.RootNode(), func() { tree.Close() }, nil
}

// findEnclosing returns the innermost node of a top-level kind whose line
// range contains row (0-based), or nil.
func findEnclosing(n *sitter.Node, row uint32, topLevel map[string]bool) *sitter.Node {
	if topLevel[n.Type()] && n.StartPoint().Row <= row && row <= n.EndPoint().Row {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if inner := findEnclosing(n.NamedChild(i), row, topLevel); inner != nil {
				return inner
			}
		}
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := findEnclosing(n.NamedChild(i), row, topLevel); found != nil {
			return found
		}
	}
	return nil
}

// leftoverRun accumulates consecutive top-level nodes that are not
// individually chunk-worthy.
type leftoverRun struct {
	start     int
	end       int
	nodeTypes []string
}

func (r *leftoverRun) extend(start, end int, nodeType string) {
	if r.start == 0 {
		r.start = start
	}
	if end > r.end {
		r.end = end
	}
	for _, t := range r.nodeTypes {
		if t == nodeType {
			return
		}
	}
	r.nodeTypes = append(r.nodeTypes, nodeType)
}

func (r *leftoverRun) chunk(relPath, language string, lines []string) (CodeChunk, bool) {
	if r.start == 0 {
		return CodeChunk{}, false
	}
	content := sliceLines(lines, r.start, r.end)
	if strings.TrimSpace(content) == "" {
		return CodeChunk{}, false
	}
	sig := fmt.Sprintf("imports_and_globals:%d", r.start)
	ch, err := New(relPath, language, sig, content, TypeImportsAndGlobals, r.start, r.end, r.nodeTypes)
	if err != nil {
		return CodeChunk{}, false
	}
	return ch, true
}

// sliceLines joins the 1-based inclusive line range [start, end].
func sliceLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n")
}

func clampLine(n, max int) int {
	if n > max {
		return max
	}
	return n
}
