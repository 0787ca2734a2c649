package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SeedDevOptions struct {
	// Tags maps credential -> principal name. When empty a single demo
	// tag is created so a bench scanner has something to grant.
	Tags map[string]string
}

// SeedDev inserts development tags. Existing rows are left alone, so
// re-running on every dev start is safe.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	tags := opt.Tags
	if len(tags) == 0 {
		tags = map[string]string{"DEADBEEF": "Demo Badge"}
	}

	for uid, name := range tags {
		uid, name = strings.TrimSpace(uid), strings.TrimSpace(name)
		if uid == "" || name == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO rfid_tags(tag_uid, username, image_file, created_at_ms)
VALUES (?, ?, 'default.jpg', ?);`, uid, name, now); err != nil {
			return fmt.Errorf("seed tag %s: %w", uid, err)
		}
	}

	return nil
}
