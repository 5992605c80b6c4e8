package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/manabu/internal/models"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements ChunkStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. MemoryPath keeps the database in RAM.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	inMemory := dbPath == MemoryPath
	if !inMemory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if inMemory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		name TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		format TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY,
		source_file TEXT NOT NULL,
		section_label TEXT NOT NULL,
		kind TEXT NOT NULL,
		text TEXT NOT NULL,
		metadata TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source_file ON chunks(source_file);
	`
	_, err := db.Exec(schema)
	return err
}

// Reset removes all rows from both tables.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources`); err != nil {
		return fmt.Errorf("clear sources: %w", err)
	}
	return tx.Commit()
}

// InsertSources inserts source file rows in a transaction.
func (s *SQLiteStore) InsertSources(ctx context.Context, sources []*models.SourceDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (name, path, format, size_bytes) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, src := range sources {
		if _, err := stmt.ExecContext(ctx, src.Name, src.Path, src.Format, src.SizeBytes); err != nil {
			return fmt.Errorf("insert source %s: %w", src.Name, err)
		}
	}
	return tx.Commit()
}

// InsertChunks inserts chunks in a transaction. Metadata is stored as JSON.
func (s *SQLiteStore) InsertChunks(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, source_file, section_label, kind, text, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		var metadata sql.NullString
		if len(c.Metadata) > 0 {
			b, err := json.Marshal(c.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata: %w", err)
			}
			metadata = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.SourceFile, c.SectionLabel, string(c.Kind), c.Text, metadata); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetChunks returns the chunks with the given ids.
func (s *SQLiteStore) GetChunks(ctx context.Context, ids []int64) (map[int64]*models.Chunk, error) {
	out := make(map[int64]*models.Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_file, section_label, kind, text, metadata
		 FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c        models.Chunk
			kind     string
			metadata sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.SourceFile, &c.SectionLabel, &kind, &c.Text, &metadata); err != nil {
			return nil, err
		}
		c.Kind = models.ChunkKind(kind)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &c.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata of chunk %d: %w", c.ID, err)
			}
		}
		out[c.ID] = &c
	}
	return out, rows.Err()
}

// ListSources returns all sources ordered by name, with the number of chunks each produced.
func (s *SQLiteStore) ListSources(ctx context.Context) ([]*models.SourceDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.name, s.path, s.format, s.size_bytes, COUNT(c.id)
		 FROM sources s LEFT JOIN chunks c ON c.source_file = s.name
		 GROUP BY s.name ORDER BY s.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.SourceDocument
	for rows.Next() {
		var src models.SourceDocument
		if err := rows.Scan(&src.Name, &src.Path, &src.Format, &src.SizeBytes, &src.Chunks); err != nil {
			return nil, err
		}
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
