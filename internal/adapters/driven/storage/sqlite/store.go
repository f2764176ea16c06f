package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aquillm/aquillm/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.aquillm/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".aquillm", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
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

// CollectionStore returns a CollectionStore interface backed by this store.
func (s *Store) CollectionStore() driven.CollectionStore {
	return &collectionStore{store: s}
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// ConversationStore returns a ConversationStore interface backed by this store.
func (s *Store) ConversationStore() driven.ConversationStore {
	return &conversationStore{store: s}
}

// EventLog returns an EventLog interface backed by this store.
func (s *Store) EventLog() driven.EventLog {
	return &eventLog{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
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

// ==================== Collection Store ====================

// collectionStore implements driven.CollectionStore.
type collectionStore struct {
	store *Store
}

var _ driven.CollectionStore = (*collectionStore)(nil)

// Save stores or updates a collection.
func (s *collectionStore) Save(ctx context.Context, col *domain.Collection) error {
	var parentID sql.NullString
	if col.ParentID != nil {
		parentID = sql.NullString{String: *col.ParentID, Valid: true}
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO collections (id, name, parent_id, path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			parent_id = excluded.parent_id,
			path = excluded.path,
			updated_at = excluded.updated_at
	`, col.ID, col.Name, parentID, col.Path, col.CreatedAt, col.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}
	return nil
}

// Get retrieves a collection by ID.
func (s *collectionStore) Get(ctx context.Context, id string) (*domain.Collection, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, parent_id, path, created_at, updated_at
		FROM collections WHERE id = ?
	`, id)

	var col domain.Collection
	var parentID sql.NullString
	if err := row.Scan(&col.ID, &col.Name, &parentID, &col.Path, &col.CreatedAt, &col.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning collection: %w", err)
	}
	if parentID.Valid {
		col.ParentID = &parentID.String
	}
	return &col, nil
}

// List returns all collections.
func (s *collectionStore) List(ctx context.Context) ([]domain.Collection, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, parent_id, path, created_at, updated_at
		FROM collections ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	return scanCollections(rows)
}

// Children returns direct children of a collection.
func (s *collectionStore) Children(ctx context.Context, id string) ([]domain.Collection, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, parent_id, path, created_at, updated_at
		FROM collections WHERE parent_id = ? ORDER BY path
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying children: %w", err)
	}
	defer rows.Close()

	return scanCollections(rows)
}

// Delete removes a collection.
func (s *collectionStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanCollections scans multiple collection rows.
func scanCollections(rows *sql.Rows) ([]domain.Collection, error) {
	var cols []domain.Collection //nolint:prealloc // size unknown from query
	for rows.Next() {
		var col domain.Collection
		var parentID sql.NullString
		if err := rows.Scan(&col.ID, &col.Name, &parentID, &col.Path, &col.CreatedAt, &col.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		if parentID.Valid {
			col.ParentID = &parentID.String
		}
		cols = append(cols, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}

	return cols, nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, collection_id, kind, title, source_ref, state, ingest_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			collection_id = excluded.collection_id,
			kind = excluded.kind,
			title = excluded.title,
			source_ref = excluded.source_ref,
			state = excluded.state,
			ingest_error = excluded.ingest_error,
			updated_at = excluded.updated_at
	`, doc.ID, doc.CollectionID, string(doc.Kind), doc.Title, doc.SourceRef,
		string(doc.State), doc.IngestError, doc.CreatedAt, doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, collection_id, kind, title, source_ref, state, ingest_error, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	var kind, state string
	if err := row.Scan(&doc.ID, &doc.CollectionID, &kind, &doc.Title, &doc.SourceRef,
		&state, &doc.IngestError, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Kind = domain.SourceKind(kind)
	doc.State = domain.ProcessingState(state)
	return &doc, nil
}

// ListDocuments returns documents in a collection.
func (s *documentStore) ListDocuments(ctx context.Context, collectionID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, collection_id, kind, title, source_ref, state, ingest_error, created_at, updated_at
		FROM documents WHERE collection_id = ? ORDER BY created_at
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var kind, state string
		if err := rows.Scan(&doc.ID, &doc.CollectionID, &kind, &doc.Title, &doc.SourceRef,
			&state, &doc.IngestError, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Kind = domain.SourceKind(kind)
		doc.State = domain.ProcessingState(state)
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// SetState updates a document's processing state and error reason.
func (s *documentStore) SetState(ctx context.Context, id string, state domain.ProcessingState, ingestError string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET state = ?, ingest_error = ?, updated_at = ? WHERE id = ?
	`, string(state), ingestError, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("setting state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SaveChunks stores chunks for a document in one transaction.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, position, content, locator, embedding, token_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			position = excluded.position,
			content = excluded.content,
			locator = excluded.locator,
			embedding = excluded.embedding,
			token_count = excluded.token_count
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		locatorJSON, err := json.Marshal(chunk.Locator)
		if err != nil {
			return fmt.Errorf("marshalling locator: %w", err)
		}

		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Position,
			chunk.Content, string(locatorJSON), embeddingBlob, chunk.TokenCount); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunks retrieves all chunks for a document ordered by position.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, position, content, locator, embedding, token_count
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, position, content, locator, embedding, token_count
		FROM chunks WHERE id = ?
	`, id)

	return scanChunkRow(row)
}

// DeleteChunks removes all chunks for a document.
func (s *documentStore) DeleteChunks(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// DeleteDocument removes a document and its chunks.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ==================== Conversation Store ====================

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// SaveConversation stores or updates conversation metadata.
func (s *conversationStore) SaveConversation(ctx context.Context, convo *domain.Conversation) error {
	scopeJSON, err := json.Marshal(convo.CollectionIDs)
	if err != nil {
		return fmt.Errorf("marshalling scope: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO conversations (id, collection_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			collection_ids = excluded.collection_ids,
			updated_at = excluded.updated_at
	`, convo.ID, string(scopeJSON), convo.CreatedAt, convo.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation with all turns in order.
func (s *conversationStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, collection_ids, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id)

	var convo domain.Conversation
	var scopeJSON string
	if err := row.Scan(&convo.ID, &scopeJSON, &convo.CreatedAt, &convo.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}
	if err := json.Unmarshal([]byte(scopeJSON), &convo.CollectionIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling scope: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, role, content, citations, failed, ungrounded, created_at
		FROM turns WHERE conversation_id = ?
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var turn domain.Turn
		var role, citationsJSON string
		if err := rows.Scan(&turn.ID, &role, &turn.Content, &citationsJSON,
			&turn.Failed, &turn.Ungrounded, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turn.Role = domain.Role(role)
		if err := json.Unmarshal([]byte(citationsJSON), &turn.Citations); err != nil {
			return nil, fmt.Errorf("unmarshalling citations: %w", err)
		}
		convo.Turns = append(convo.Turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	return &convo, nil
}

// AppendTurn appends one turn to a conversation.
func (s *conversationStore) AppendTurn(ctx context.Context, conversationID string, turn *domain.Turn) error {
	citationsJSON, err := json.Marshal(turn.Citations)
	if err != nil {
		return fmt.Errorf("marshalling citations: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM conversations WHERE id = ?", conversationID).Scan(&exists); err != nil {
		return fmt.Errorf("checking conversation: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE conversation_id = ?", conversationID).Scan(&seq); err != nil {
		return fmt.Errorf("next turn seq: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (id, conversation_id, seq, role, content, citations, failed, ungrounded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, turn.ID, conversationID, seq, string(turn.Role), turn.Content,
		string(citationsJSON), turn.Failed, turn.Ungrounded, turn.CreatedAt); err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE id = ?", time.Now().UTC(), conversationID); err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// MarkTurnFailed flags an existing turn as failed.
func (s *conversationStore) MarkTurnFailed(ctx context.Context, conversationID, turnID string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE turns SET failed = 1 WHERE id = ? AND conversation_id = ?
	`, turnID, conversationID)
	if err != nil {
		return fmt.Errorf("marking turn failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListConversations returns all conversations, newest first.
func (s *conversationStore) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, collection_ids, created_at, updated_at
		FROM conversations ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convos []domain.Conversation //nolint:prealloc // size unknown from query
	for rows.Next() {
		var convo domain.Conversation
		var scopeJSON string
		if err := rows.Scan(&convo.ID, &scopeJSON, &convo.CreatedAt, &convo.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		if err := json.Unmarshal([]byte(scopeJSON), &convo.CollectionIDs); err != nil {
			return nil, fmt.Errorf("unmarshalling scope: %w", err)
		}
		convos = append(convos, convo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}

	return convos, nil
}

// ==================== Event Log ====================

// eventLog implements driven.EventLog.
type eventLog struct {
	store *Store
}

var _ driven.EventLog = (*eventLog)(nil)

// Append records an event.
func (l *eventLog) Append(ctx context.Context, event domain.StatusEvent) error {
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO events (seq, source_id, severity, message, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, event.Seq, event.SourceID, string(event.Severity), event.Message, event.Timestamp)
	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// Since returns retained events published after t, pruning expired
// entries first.
func (l *eventLog) Since(ctx context.Context, t time.Time) ([]domain.StatusEvent, error) {
	cutoff := time.Now().UTC().Add(-domain.EventRetention)
	if _, err := l.store.db.ExecContext(ctx, "DELETE FROM events WHERE timestamp <= ?", cutoff); err != nil {
		return nil, fmt.Errorf("pruning events: %w", err)
	}

	rows, err := l.store.db.QueryContext(ctx, `
		SELECT seq, source_id, severity, message, timestamp
		FROM events WHERE timestamp > ?
		ORDER BY seq
	`, t)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []domain.StatusEvent //nolint:prealloc // size unknown from query
	for rows.Next() {
		var ev domain.StatusEvent
		var severity string
		if err := rows.Scan(&ev.Seq, &ev.SourceID, &severity, &ev.Message, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.Severity = domain.Severity(severity)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return events, nil
}

// ==================== Helper Functions ====================

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

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var locatorJSON string
	var embeddingBlob []byte

	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Position,
		&chunk.Content, &locatorJSON, &embeddingBlob, &chunk.TokenCount); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if err := json.Unmarshal([]byte(locatorJSON), &chunk.Locator); err != nil {
		return nil, fmt.Errorf("unmarshalling locator: %w", err)
	}

	return &chunk, nil
}

// scanChunkRow scans a chunk from *sql.Row.
func scanChunkRow(row *sql.Row) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var locatorJSON string
	var embeddingBlob []byte

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Position,
		&chunk.Content, &locatorJSON, &embeddingBlob, &chunk.TokenCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if err := json.Unmarshal([]byte(locatorJSON), &chunk.Locator); err != nil {
		return nil, fmt.Errorf("unmarshalling locator: %w", err)
	}

	return &chunk, nil
}
