// Package sqlite provides the persistent metadata store: documents,
// passages with embeddings, the catalog snapshot and session histories
// all live in one SQLite database so the index survives restarts
// without reprocessing the corpus.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/parchment-labs/stagechat/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
)

// DefaultSessionCap is the default maximum number of turns kept per
// session. Oldest turns are evicted first.
const DefaultSessionCap = 50

// Store is a unified SQLite-based storage that provides access to the
// metadata store interfaces through wrapper types.
type Store struct {
	db         *sql.DB
	path       string
	sessionCap int
}

// Option configures the store.
type Option func(*Store)

// WithSessionCap sets the per-session turn cap.
func WithSessionCap(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.sessionCap = n
		}
	}
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.stagechat/data.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".stagechat", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// WAL mode for better concurrency between queries and refreshes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:         db,
		path:       dbPath,
		sessionCap: DefaultSessionCap,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// SnapshotStore returns a SnapshotStore interface backed by this store.
func (s *Store) SnapshotStore() driven.SnapshotStore {
	return &snapshotStore{store: s}
}

// SessionStore returns a SessionStore interface backed by this store.
func (s *Store) SessionStore() driven.SessionStore {
	return &sessionStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// --- DocumentStore ---

type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, hash, last_modified, content, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			hash = excluded.hash,
			last_modified = excluded.last_modified,
			content = excluded.content,
			indexed_at = excluded.indexed_at
	`, doc.ID, doc.Hash, doc.LastModified, doc.Content, doc.IndexedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by stage path.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, hash, last_modified, content, indexed_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Hash, &doc.LastModified, &doc.Content, &doc.IndexedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns all stored documents without content.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, hash, last_modified, indexed_at FROM documents ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Hash, &doc.LastModified, &doc.IndexedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SavePassages replaces the stored passages for a document.
func (s *documentStore) SavePassages(ctx context.Context, documentID string, passages []domain.Passage) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM passages WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing passages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (id, document_id, start_offset, end_offset, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		blob := float32SliceToBytes(p.Embedding)
		if _, err := stmt.ExecContext(ctx, p.ID, documentID, p.Start, p.End, p.Content, blob); err != nil {
			return fmt.Errorf("saving passage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetPassages returns the stored passages for a document in offset order.
func (s *documentStore) GetPassages(ctx context.Context, documentID string) ([]domain.Passage, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, start_offset, end_offset, content, embedding
		FROM passages WHERE document_id = ? ORDER BY start_offset
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("getting passages: %w", err)
	}
	defer rows.Close()

	var passages []domain.Passage
	for rows.Next() {
		var p domain.Passage
		var blob []byte
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.Start, &p.End, &p.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		p.Embedding = bytesToFloat32Slice(blob)
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// DeleteDocument removes a document and all its passages.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// --- SnapshotStore ---

type snapshotStore struct {
	store *Store
}

var _ driven.SnapshotStore = (*snapshotStore)(nil)

// Get returns the last recorded snapshot.
func (s *snapshotStore) Get(ctx context.Context) (*domain.CatalogSnapshot, error) {
	var takenAt time.Time
	row := s.store.db.QueryRowContext(ctx, "SELECT taken_at FROM snapshot_meta WHERE id = 1")
	if err := row.Scan(&takenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, "SELECT id, hash, last_modified FROM snapshot_objects")
	if err != nil {
		return nil, fmt.Errorf("getting snapshot objects: %w", err)
	}
	defer rows.Close()

	snap := domain.CatalogSnapshot{
		TakenAt: takenAt,
		Objects: make(map[string]domain.StageObject),
	}
	for rows.Next() {
		var obj domain.StageObject
		if err := rows.Scan(&obj.ID, &obj.Hash, &obj.LastModified); err != nil {
			return nil, fmt.Errorf("scanning snapshot object: %w", err)
		}
		snap.Objects[obj.ID] = obj
	}
	return &snap, rows.Err()
}

// Save records the snapshot for the next diff.
func (s *snapshotStore) Save(ctx context.Context, snap domain.CatalogSnapshot) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, taken_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET taken_at = excluded.taken_at
	`, snap.TakenAt); err != nil {
		return fmt.Errorf("saving snapshot meta: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_objects"); err != nil {
		return fmt.Errorf("clearing snapshot objects: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO snapshot_objects (id, hash, last_modified) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, obj := range snap.Objects {
		if _, err := stmt.ExecContext(ctx, obj.ID, obj.Hash, obj.LastModified); err != nil {
			return fmt.Errorf("saving snapshot object: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// --- SessionStore ---

type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// Get retrieves a session by ID.
func (s *sessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT id, created_at, updated_at FROM sessions WHERE id = ?", id)

	var session domain.Session
	if err := row.Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT question, answer, citations, created_at
		FROM turns WHERE session_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("getting turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var turn domain.Turn
		var citationsJSON string
		if err := rows.Scan(&turn.Question, &turn.Answer, &citationsJSON, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		if err := json.Unmarshal([]byte(citationsJSON), &turn.Citations); err != nil {
			return nil, fmt.Errorf("unmarshalling citations: %w", err)
		}
		session.Turns = append(session.Turns, turn)
	}
	return &session, rows.Err()
}

// AppendTurn appends a turn, creating the session if needed and
// evicting the oldest turns past the cap.
func (s *sessionStore) AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error {
	citationsJSON, err := json.Marshal(turn.Citations)
	if err != nil {
		return fmt.Errorf("marshalling citations: %w", err)
	}
	if turn.Citations == nil {
		citationsJSON = []byte("[]")
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := turn.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
	`, sessionID, now, now); err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	var nextPos int
	row := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), -1) + 1 FROM turns WHERE session_id = ?", sessionID)
	if err := row.Scan(&nextPos); err != nil {
		return fmt.Errorf("getting next position: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (session_id, position, question, answer, citations, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, nextPos, turn.Question, turn.Answer, string(citationsJSON), now); err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}

	// Evict oldest turns past the cap.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM turns WHERE session_id = ? AND position <= ? - ?
	`, sessionID, nextPos, s.store.sessionCap); err != nil {
		return fmt.Errorf("evicting turns: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes a session and its turns.
func (s *sessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// PurgeExpired removes sessions idle longer than ttl.
func (s *sessionStore) PurgeExpired(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-ttl)
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM sessions WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged sessions: %w", err)
	}
	return int(n), nil
}

// --- embedding blob helpers ---

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
