package attachment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS attachments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	guid       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS attachment_meta (
	attachment_id INTEGER NOT NULL REFERENCES attachments(id) ON DELETE CASCADE,
	meta_key      TEXT NOT NULL,
	meta_value    TEXT NOT NULL,
	PRIMARY KEY (attachment_id, meta_key)
);`

// SQLiteStore is a SQLite-backed Store
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at dsn and applies the schema
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Error().Err(err).Str("dsn", dsn).Msg("failed to open database")
		return nil, fmt.Errorf("open attachment database: %w", err)
	}

	s, err := NewSQLiteStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database and applies the schema
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply attachment schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// FindByLocator matches substr literally against the guid column
func (s *SQLiteStore) FindByLocator(ctx context.Context, substr string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM attachments WHERE instr(guid, ?) > 0 ORDER BY id", substr)
	if err != nil {
		return nil, fmt.Errorf("find attachments by locator: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) GetMeta(ctx context.Context, id int64, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT meta_value FROM attachment_meta WHERE attachment_id = ? AND meta_key = ?", id, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get attachment meta: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) SetMeta(ctx context.Context, id int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO attachment_meta (attachment_id, meta_key, meta_value)
		VALUES (?, ?, ?)
		ON CONFLICT (attachment_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value`,
		id, key, value)
	if err != nil {
		return fmt.Errorf("set attachment meta: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, guid string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO attachments (guid) VALUES (?)", guid)
	if err != nil {
		return 0, fmt.Errorf("create attachment: %w", err)
	}
	return res.LastInsertId()
}

// Get returns a single attachment
func (s *SQLiteStore) Get(ctx context.Context, id int64) (Attachment, error) {
	a := Attachment{ID: id}
	err := s.db.QueryRowContext(ctx, "SELECT guid FROM attachments WHERE id = ?", id).Scan(&a.GUID)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
