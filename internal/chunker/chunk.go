package chunker

import (
	"fmt"
	"strings"
)

// ChunkType classifies a chunk by the kind of syntax node it came from.
type ChunkType string

const (
	TypeFunction          ChunkType = "function"
	TypeClass             ChunkType = "class"
	TypeInterface         ChunkType = "interface"
	TypeStruct            ChunkType = "struct"
	TypeEnum              ChunkType = "enum"
	TypeTrait             ChunkType = "trait"
	TypeTypeDefinition    ChunkType = "type_definition"
	TypeCodeBlock         ChunkType = "code_block"
	TypeImportsAndGlobals ChunkType = "imports_and_globals"
)

// CodeChunk is a syntactically complete unit of source code: a function, a
// class, or a run of grouped top-level statements. It is the atomic unit of
// embedding and retrieval.
type CodeChunk struct {
	FilePath  string
	Language  string
	Signature string
	Content   string
	Type      ChunkType
	StartLine int
	EndLine   int
	NodeTypes []string
}

// New validates and constructs a CodeChunk. Content must be non-empty and the
// line range must be 1-based with StartLine <= EndLine.
func New(filePath, language, signature, content string, typ ChunkType, startLine, endLine int, nodeTypes []string) (CodeChunk, error) {
	if content == "" {
		return CodeChunk{}, fmt.Errorf("chunk %s: empty content", filePath)
	}
	if startLine < 1 || startLine > endLine {
		return CodeChunk{}, fmt.Errorf("chunk %s: invalid line range %d-%d", filePath, startLine, endLine)
	}
	return CodeChunk{
		FilePath:  filePath,
		Language:  language,
		Signature: signature,
		Content:   content,
		Type:      typ,
		StartLine: startLine,
		EndLine:   endLine,
		NodeTypes: nodeTypes,
	}, nil
}

// ID is the chunk's identity key within a collection. Re-indexing the same
// commit reproduces the same IDs, so upserts converge instead of duplicating.
func (c CodeChunk) ID() string {
	return fmt.Sprintf("%s:%d-%d", c.FilePath, c.StartLine, c.EndLine)
}

// ClassifyNode maps a grammar node kind to a ChunkType.
func ClassifyNode(nodeType string) ChunkType {
	switch {
	case strings.Contains(nodeType, "function"), strings.Contains(nodeType, "method"):
		return TypeFunction
	case strings.Contains(nodeType, "class"):
		return TypeClass
	case strings.Contains(nodeType, "interface"):
		return TypeInterface
	case strings.Contains(nodeType, "struct"):
		return TypeStruct
	case strings.Contains(nodeType, "enum"):
		return TypeEnum
	case strings.Contains(nodeType, "trait"):
		return TypeTrait
	case strings.Contains(nodeType, "type"):
		return TypeTypeDefinition
	default:
		return TypeCodeBlock
	}
}
