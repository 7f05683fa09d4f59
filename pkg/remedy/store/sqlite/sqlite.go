package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection; a single connection keeps foreign_keys on.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	name TEXT,
	category TEXT,
	doc TEXT NOT NULL,
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS record_labels (
	record_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	label TEXT NOT NULL,
	UNIQUE(record_id, kind, label),
	FOREIGN KEY(record_id) REFERENCES records(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_record_labels_label ON record_labels(kind, label);

CREATE TABLE IF NOT EXISTS cross_references (
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	target_name TEXT,
	target_category TEXT,
	similarity REAL NOT NULL,
	ordinal INTEGER NOT NULL,
	PRIMARY KEY(source_id, target_id),
	FOREIGN KEY(source_id) REFERENCES records(id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertRecord inserts or updates a record and its label index
func (s *sqliteStore) UpsertRecord(ctx context.Context, r remedy.Record) error {
	if err := store.CheckIDs([]remedy.Record{r}); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertRecord(ctx, tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertRecord(ctx context.Context, tx *sql.Tx, r remedy.Record) error {
	doc, err := r.MarshalJSON()
	if err != nil {
		return err
	}

	const stmt = `
INSERT INTO records (id, name, category, doc, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name,
	category=excluded.category,
	doc=excluded.doc,
	updated_at=excluded.updated_at;
`
	if _, err := tx.ExecContext(ctx, stmt, r.ID, r.NameText(), r.Category, string(doc), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return replaceLabels(ctx, tx, r)
}

func replaceLabels(ctx context.Context, tx *sql.Tx, r remedy.Record) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM record_labels WHERE record_id=?`, r.ID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO record_labels (record_id, kind, label) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for kind, labels := range store.Labels(r) {
		for _, label := range labels {
			if label == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, r.ID, string(kind), label); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetRecord returns a record by ID
func (s *sqliteStore) GetRecord(ctx context.Context, id string) (remedy.Record, bool, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM records WHERE id=?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return remedy.Record{}, false, nil
	}
	if err != nil {
		return remedy.Record{}, false, err
	}
	var r remedy.Record
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return remedy.Record{}, false, fmt.Errorf("decode record %s: %w", id, err)
	}
	return r, true, nil
}

// ListRecords returns all records in insertion order
func (s *sqliteStore) ListRecords(ctx context.Context) ([]remedy.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, doc FROM records ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []remedy.Record
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		var r remedy.Record
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", id, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordsByLabel returns IDs of records carrying label under kind
func (s *sqliteStore) RecordsByLabel(ctx context.Context, kind store.LabelKind, label string) ([]string, error) {
	return s.loadStringColumn(ctx,
		`SELECT record_id FROM record_labels WHERE kind=? AND label=? ORDER BY record_id`,
		string(kind), label)
}

// ReplaceCrossReferences swaps the outgoing edges of sourceID
func (s *sqliteStore) ReplaceCrossReferences(ctx context.Context, sourceID string, edges []remedy.Edge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceEdges(ctx, tx, sourceID, edges); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceEdges(ctx context.Context, tx *sql.Tx, sourceID string, edges []remedy.Edge) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cross_references WHERE source_id=?`, sourceID); err != nil {
		return err
	}
	if len(edges) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO cross_references (source_id, target_id, target_name, target_category, similarity, ordinal)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range edges {
		if _, err := stmt.ExecContext(ctx, sourceID, e.TargetID, e.TargetName, e.TargetCategory, e.Similarity, i); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceAll swaps the whole store content for records in one transaction.
// Deleting a record cascades to its labels and outgoing edges.
func (s *sqliteStore) ReplaceAll(ctx context.Context, records []remedy.Record) error {
	if err := store.CheckIDs(records); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return err
	}
	// records first so every edge source exists
	for _, r := range records {
		if err := upsertRecord(ctx, tx, r); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	for _, r := range records {
		if err := replaceEdges(ctx, tx, r.ID, r.CrossReferences); err != nil {
			return fmt.Errorf("cross-references %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Neighbors returns the k strongest outgoing edges of id (all when k <= 0)
func (s *sqliteStore) Neighbors(ctx context.Context, id string, k int) ([]remedy.Edge, error) {
	if k <= 0 {
		k = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT target_id, target_name, target_category, similarity
FROM cross_references
WHERE source_id=?
ORDER BY similarity DESC, ordinal ASC
LIMIT ?`, id, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []remedy.Edge
	for rows.Next() {
		var e remedy.Edge
		var name, category sql.NullString
		if err := rows.Scan(&e.TargetID, &name, &category, &e.Similarity); err != nil {
			return nil, err
		}
		e.TargetName = name.String
		e.TargetCategory = category.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) loadStringColumn(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
