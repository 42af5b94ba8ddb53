package catalog

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"path"

	"github.com/google/uuid"
)

// Replica describes one physical copy of a data object for seeding.
type Replica struct {
	Number   int
	Status   string // ReplStatusNewest or "0" for a stale copy
	Content  []byte
	Created  int64
	Modified int64
}

// SeedDataObject inserts a data object with explicit replicas, bypassing the
// overwrite semantics of OpenWrite. Tests and local-mode fixtures use it to
// build multi-replica states the public mutation API cannot produce.
func (s *SQLite) SeedDataObject(ctx context.Context, p string, replicas ...Replica) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	cleaned := path.Clean(p)
	coll, leaf := path.Dir(cleaned), path.Base(cleaned)

	var collID string
	err = db.QueryRowContext(ctx, `SELECT id FROM colls WHERE name = ?`, coll).Scan(&collID)
	if err == sql.ErrNoRows {
		return "", NewError(CodeItemNotFound, "collection %q does not exist", coll)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve collection %q: %w", coll, err)
	}

	if len(replicas) == 0 {
		replicas = []Replica{{Status: ReplStatusNewest}}
	}
	id := uuid.NewString()
	for _, r := range replicas {
		if r.Status == "" {
			r.Status = ReplStatusNewest
		}
		if r.Created == 0 {
			r.Created = now()
		}
		if r.Modified == 0 {
			r.Modified = r.Created
		}
		sum := md5.Sum(r.Content)
		_, err = db.ExecContext(ctx,
			`INSERT INTO objs (id, coll_id, name, repl_num, repl_status, size, checksum, content, created, modified)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, collID, leaf, r.Number, r.Status, len(r.Content),
			hex.EncodeToString(sum[:]), r.Content, r.Created, r.Modified)
		if err != nil {
			return "", fmt.Errorf("failed to seed replica %d of %q: %w", r.Number, p, err)
		}
	}
	return id, nil
}
