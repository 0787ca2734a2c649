package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/gatehouse/gatehouse/internal/db"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

func (s *AccessLogStore) Append(ctx context.Context, rec store.AccessLogRecord) error {
	if rec.LoggedAt.IsZero() {
		rec.LoggedAt = time.Now().UTC()
	}
	loggedMs := ceilMillis(rec.LoggedAt)

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_logs(tag_uid, username, status, logged_at_ms)
VALUES (?, ?, ?, ?);
`, rec.Credential, rec.PrincipalName, string(rec.Decision), loggedMs); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}
		return nil
	})
}

// ceilMillis rounds t up to whole milliseconds so a reloaded entry is never
// earlier than the instant it was recorded at.
func ceilMillis(t time.Time) int64 {
	ms := t.UnixMilli()
	if t.After(time.UnixMilli(ms)) {
		ms++
	}
	return ms
}

func (s *AccessLogStore) Recent(ctx context.Context, n int) ([]store.AccessLogRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, tag_uid, username, status, logged_at_ms
FROM access_logs
ORDER BY logged_at_ms DESC, id DESC
LIMIT ?;
`, n)
	if err != nil {
		return nil, fmt.Errorf("Recent query: %w", err)
	}
	defer rows.Close()

	out := make([]store.AccessLogRecord, 0, n)
	for rows.Next() {
		var (
			rec      store.AccessLogRecord
			status   string
			loggedMs int64
		)
		if err := rows.Scan(&rec.ID, &rec.Credential, &rec.PrincipalName, &status, &loggedMs); err != nil {
			return nil, fmt.Errorf("Recent scan: %w", err)
		}
		rec.Decision = types.Decision(status)
		rec.LoggedAt = time.UnixMilli(loggedMs).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Recent rows: %w", err)
	}
	return out, nil
}

func (s *AccessLogStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM access_logs WHERE logged_at_ms < ?;`, cutoff.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("PruneOlderThan delete: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}
