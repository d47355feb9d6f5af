package store

// Metadata is the per-record metadata persisted alongside each document.
type Metadata struct {
	FilePath  string
	Language  string
	ChunkType string
	StartLine int
	EndLine   int
}

// Entry is one record to upsert into a collection. ID is the record's
// identity key; upserting an existing ID replaces the prior record.
type Entry struct {
	ID        string
	Document  string
	Embedding []float32
	Meta      Metadata
}

// Result is one ranked neighbor from a query. Distance is cosine distance:
// 0.0 identical, larger is less similar.
type Result struct {
	ID       string
	Document string
	Meta     Metadata
	Distance float64
}

// Filter optionally narrows query results by metadata. Zero fields match all.
type Filter struct {
	Language  string
	ChunkType string
}

func (f *Filter) matches(m Metadata) bool {
	if f == nil {
		return true
	}
	if f.Language != "" && f.Language != m.Language {
		return false
	}
	if f.ChunkType != "" && f.ChunkType != m.ChunkType {
		return false
	}
	return true
}

// CollectionInfo describes one collection and its record count.
type CollectionInfo struct {
	Name      string
	Model     string
	Dim       int
	Records   int
	CreatedAt string
}
