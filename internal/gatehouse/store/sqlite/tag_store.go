package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/gatehouse/gatehouse/internal/db"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
)

type TagStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewTagStore(db *sql.DB, writer *dbpkg.Worker) *TagStore {
	return &TagStore{db: db, writer: writer}
}

func (s *TagStore) Lookup(ctx context.Context, credential string) (store.TagRecord, bool, error) {
	var (
		rec       store.TagRecord
		createdMs int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT tag_uid, username, image_file, created_at_ms
FROM rfid_tags
WHERE tag_uid = ?;
`, credential).Scan(&rec.Credential, &rec.PrincipalName, &rec.ImageRef, &createdMs)

	if errors.Is(err, sql.ErrNoRows) {
		return store.TagRecord{}, false, nil
	}
	if err != nil {
		return store.TagRecord{}, false, fmt.Errorf("Lookup query: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	return rec, true, nil
}

// Register inserts a new tag. The uniqueness checks and the insert share
// one writer transaction, so they cannot race another registration.
func (s *TagStore) Register(ctx context.Context, rec store.TagRecord) error {
	if rec.ImageRef == "" {
		rec.ImageRef = store.DefaultImageRef
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM rfid_tags WHERE tag_uid = ?;`, rec.Credential,
		).Scan(&n); err != nil {
			return fmt.Errorf("Register check uid: %w", err)
		}
		if n > 0 {
			return store.ErrDuplicateCredential
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM rfid_tags WHERE username = ?;`, rec.PrincipalName,
		).Scan(&n); err != nil {
			return fmt.Errorf("Register check username: %w", err)
		}
		if n > 0 {
			return store.ErrDuplicatePrincipal
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO rfid_tags(tag_uid, username, image_file, created_at_ms)
VALUES (?, ?, ?, ?);
`, rec.Credential, rec.PrincipalName, rec.ImageRef, rec.CreatedAt.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("Register insert: %w", err)
		}
		return nil
	})
}

func (s *TagStore) List(ctx context.Context) ([]store.TagRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT tag_uid, username, image_file, created_at_ms
FROM rfid_tags
ORDER BY username;
`)
	if err != nil {
		return nil, fmt.Errorf("List query: %w", err)
	}
	defer rows.Close()

	var out []store.TagRecord
	for rows.Next() {
		var (
			rec       store.TagRecord
			createdMs int64
		)
		if err := rows.Scan(&rec.Credential, &rec.PrincipalName, &rec.ImageRef, &createdMs); err != nil {
			return nil, fmt.Errorf("List scan: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
