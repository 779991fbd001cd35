package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pkt.systems/navygator/internal/kvstore"
	"pkt.systems/navygator/schema"
	"pkt.systems/pslog"
)

// SQLiteStore keeps history records in sqlite.
type SQLiteStore struct {
	db  *sql.DB
	log pslog.Logger
	now func() time.Time
}

// OpenSQLite opens (and creates) the history database at path.
func OpenSQLite(ctx context.Context, path string, logger pslog.Logger) (*SQLiteStore, error) {
	db, err := kvstore.OpenSQLiteDB(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_email ON history(email, created_at);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	return &SQLiteStore{db: db, log: logger.With("history_db", path), now: time.Now}, nil
}

func (s *SQLiteStore) CreateHistoryRecord(ctx context.Context, email, url string) error {
	if !validPair(email, url) {
		return nil
	}
	id := RecordID(email, url)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO history (id, email, url, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING;
	`, id, email, url, s.now().UTC())
	if err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.log.Debug("history record exists", "account", email, "url", url)
		return nil
	}
	s.log.Trace("history record created", "account", email, "url", url)
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, email string) ([]schema.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, url, created_at FROM history
		WHERE email = ?
		ORDER BY created_at ASC, rowid ASC;
	`, email)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	out := make([]schema.HistoryRecord, 0)
	for rows.Next() {
		var rec schema.HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.Email, &rec.URL, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, email, url string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE email = ? AND url = ?`, email, url); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
