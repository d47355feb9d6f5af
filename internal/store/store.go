package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Store persists named collections of embedded code chunks and answers
// k-nearest-neighbor queries against them. Collections are append-once by
// convention (one writer populates a name); concurrent readers are safe.
type Store interface {
	// Upsert inserts or replaces entries in a collection, keyed by Entry.ID.
	// The first upsert into a collection fixes its embedding model and
	// dimension; later upserts must match both.
	Upsert(ctx context.Context, collection, model string, entries []Entry) error
	// Query returns up to k neighbors ordered by ascending cosine distance.
	// A collection that does not exist yields an empty result, not an error.
	Query(ctx context.Context, collection string, embedding []float32, k int, filter *Filter) ([]Result, error)
	// Count returns the number of records in a collection (0 if absent).
	Count(ctx context.Context, collection string) (int, error)
	// Collections lists all collections with their record counts.
	Collections(ctx context.Context) ([]CollectionInfo, error)
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite + sqlite-vec. Each collection
// gets its own vec0 virtual table declared with cosine distance.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens the database at dbPath and initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, collection, model string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	dim := len(entries[0].Embedding)
	if dim == 0 {
		return fmt.Errorf("upsert into %s: zero-dimension embedding", collection)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ensureCollection(tx, collection, model, dim); err != nil {
		return err
	}
	vecTable := vecTableName(collection)

	for _, e := range entries {
		if len(e.Embedding) != dim {
			return fmt.Errorf("upsert %s into %s: dimension %d, collection has %d",
				e.ID, collection, len(e.Embedding), dim)
		}

		var rowID int64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM records WHERE collection = ? AND record_id = ?",
			collection, e.ID,
		).Scan(&rowID)
		switch {
		case err == sql.ErrNoRows:
			res, err := tx.ExecContext(ctx, `
				INSERT INTO records (collection, record_id, document, file_path, language, chunk_type, start_line, end_line)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				collection, e.ID, e.Document,
				e.Meta.FilePath, e.Meta.Language, e.Meta.ChunkType, e.Meta.StartLine, e.Meta.EndLine,
			)
			if err != nil {
				return fmt.Errorf("insert record %s: %w", e.ID, err)
			}
			rowID, err = res.LastInsertId()
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			// Existing ID: replace the record and its vector.
			_, err := tx.ExecContext(ctx, `
				UPDATE records SET document = ?, file_path = ?, language = ?, chunk_type = ?, start_line = ?, end_line = ?
				WHERE id = ?`,
				e.Document, e.Meta.FilePath, e.Meta.Language, e.Meta.ChunkType, e.Meta.StartLine, e.Meta.EndLine,
				rowID,
			)
			if err != nil {
				return fmt.Errorf("update record %s: %w", e.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE record_id = ?", vecTable), rowID,
			); err != nil {
				return fmt.Errorf("delete stale vector for %s: %w", e.ID, err)
			}
		}

		blob, err := sqlite_vec.SerializeFloat32(e.Embedding)
		if err != nil {
			return fmt.Errorf("serialize embedding for %s: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (record_id, embedding) VALUES (?, ?)", vecTable),
			rowID, blob,
		); err != nil {
			return fmt.Errorf("insert embedding for %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Query(ctx context.Context, collection string, embedding []float32, k int, filter *Filter) ([]Result, error) {
	if k <= 0 {
		return nil, nil
	}

	var dim int
	err := s.db.QueryRowContext(ctx,
		"SELECT dim FROM collections WHERE name = ?", collection,
	).Scan(&dim)
	if err == sql.ErrNoRows {
		return nil, nil // absent collection degrades to an empty result
	}
	if err != nil {
		return nil, err
	}
	if len(embedding) != dim {
		return nil, fmt.Errorf("query %s: dimension %d, collection has %d", collection, len(embedding), dim)
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	// The KNN LIMIT applies before the metadata filter, so a filtered query
	// over-fetches to avoid coming back with fewer than k viable matches.
	fetch := k
	if filter != nil {
		fetch = k * 10
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT v.distance, r.record_id, r.document, r.file_path, r.language, r.chunk_type, r.start_line, r.end_line
		FROM %s v
		JOIN records r ON r.id = v.record_id
		WHERE v.embedding MATCH ?
		ORDER BY v.distance
		LIMIT ?`, vecTableName(collection)),
		blob, fetch,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		err := rows.Scan(
			&r.Distance, &r.ID, &r.Document,
			&r.Meta.FilePath, &r.Meta.Language, &r.Meta.ChunkType, &r.Meta.StartLine, &r.Meta.EndLine,
		)
		if err != nil {
			return nil, err
		}
		if filter.matches(r.Meta) {
			results = append(results, r)
			if len(results) == k {
				break
			}
		}
	}
	return results, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE collection = ?", collection,
	).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Collections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, c.model, c.dim, c.created_at, COUNT(r.id)
		FROM collections c
		LEFT JOIN records r ON r.collection = c.name
		GROUP BY c.name
		ORDER BY c.created_at, c.name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []CollectionInfo
	for rows.Next() {
		var ci CollectionInfo
		if err := rows.Scan(&ci.Name, &ci.Model, &ci.Dim, &ci.CreatedAt, &ci.Records); err != nil {
			return nil, err
		}
		infos = append(infos, ci)
	}
	return infos, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ensureCollection registers the collection and creates its vec0 table on
// first use. Distances become incomparable across models or dimensions, so
// a mismatch with the registered values is rejected.
func ensureCollection(tx *sql.Tx, collection, model string, dim int) error {
	var haveModel string
	var haveDim int
	err := tx.QueryRow(
		"SELECT model, dim FROM collections WHERE name = ?", collection,
	).Scan(&haveModel, &haveDim)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.Exec(
			"INSERT INTO collections (name, model, dim) VALUES (?, ?, ?)",
			collection, model, dim,
		); err != nil {
			return fmt.Errorf("register collection %s: %w", collection, err)
		}
		if _, err := tx.Exec(fmt.Sprintf(
			"CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(record_id INTEGER PRIMARY KEY, embedding float[%d] distance_metric=cosine)",
			vecTableName(collection), dim,
		)); err != nil {
			return fmt.Errorf("create vector table for %s: %w", collection, err)
		}
		return nil
	case err != nil:
		return err
	}
	if haveDim != dim {
		return fmt.Errorf("collection %s: dimension %d, have %d", collection, dim, haveDim)
	}
	if haveModel != "" && model != "" && haveModel != model {
		return fmt.Errorf("collection %s: model %q, have %q", collection, model, haveModel)
	}
	return nil
}

// vecTableName derives a safe SQL identifier for a collection's vec0 table.
func vecTableName(collection string) string {
	var b strings.Builder
	b.WriteString("vec_")
	for _, r := range collection {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
