package catalog

import (
	"bytes"
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteConfig configures the embedded catalog store.
type SQLiteConfig struct {
	// Path is the database file; ":memory:" gives a throwaway catalog.
	Path string
	// Zone is the administrative zone the store serves.
	Zone string
	// ChunkSize caps rows per query chunk. Zero means DefaultChunkSize.
	ChunkSize int
	Logger    zerolog.Logger
}

// DefaultChunkSize is the rows-per-chunk cap used when none is configured.
const DefaultChunkSize = 256

// SQLite is an in-process implementation of Client backed by modernc
// sqlite. It serves local mode and tests; the schema mirrors the catalog's
// logical model (collections, data object replicas, metadata, access rows,
// users) closely enough that compiled column queries execute for real,
// chunking included.
type SQLite struct {
	cfg SQLiteConfig
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLite creates an embedded catalog client. No connection is made until
// Connect.
func NewSQLite(cfg SQLiteConfig) *SQLite {
	if cfg.Zone == "" {
		cfg.Zone = "tempZone"
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &SQLite{cfg: cfg, log: cfg.Logger.With().Str("component", "catalog").Logger()}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	zone TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'rodsuser',
	UNIQUE (name, zone)
);

CREATE TABLE IF NOT EXISTS colls (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL UNIQUE,
	parent   TEXT NOT NULL,
	owner    TEXT NOT NULL DEFAULT '',
	created  INTEGER NOT NULL,
	modified INTEGER NOT NULL
);

-- One row per replica; replicas of one data object share coll_id and name.
CREATE TABLE IF NOT EXISTS objs (
	id          TEXT NOT NULL,
	coll_id     TEXT NOT NULL REFERENCES colls(id),
	name        TEXT NOT NULL,
	repl_num    INTEGER NOT NULL DEFAULT 0,
	repl_status TEXT NOT NULL DEFAULT '1',
	size        INTEGER NOT NULL DEFAULT 0,
	checksum    TEXT NOT NULL DEFAULT '',
	content     BLOB,
	created     INTEGER NOT NULL,
	modified    INTEGER NOT NULL,
	PRIMARY KEY (coll_id, name, repl_num)
);

CREATE TABLE IF NOT EXISTS meta (
	owner_kind TEXT NOT NULL CHECK (owner_kind IN ('c', 'd')),
	owner_id   TEXT NOT NULL,
	attr       TEXT NOT NULL,
	value      TEXT NOT NULL,
	units      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (owner_kind, owner_id, attr, value, units)
);

CREATE TABLE IF NOT EXISTS access (
	owner_kind TEXT NOT NULL CHECK (owner_kind IN ('c', 'd')),
	owner_id   TEXT NOT NULL,
	user_id    TEXT NOT NULL REFERENCES users(id),
	level      TEXT NOT NULL,
	PRIMARY KEY (owner_kind, owner_id, user_id)
);
`

// Connect opens the database and bootstraps the zone root collections.
func (s *SQLite) Connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	dsn := s.cfg.Path
	if dsn != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open catalog database: %w", err)
	}
	// One pooled connection: sqlite serializes writers anyway, and an
	// in-memory database exists per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	s.db = db

	for _, root := range []string{"/", "/" + s.cfg.Zone, "/" + s.cfg.Zone + "/home"} {
		if err := s.ensureCollection(ctx, root); err != nil {
			s.db = nil
			db.Close()
			return err
		}
	}
	s.log.Debug().Str("path", s.cfg.Path).Str("zone", s.cfg.Zone).Msg("connected to embedded catalog")
	return nil
}

// Disconnect closes the session. Safe to call on a closed client.
func (s *SQLite) Disconnect() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.log.Debug().Msg("disconnected from embedded catalog")
	return err
}

// Connected reports whether a session is live.
func (s *SQLite) Connected() bool {
	return s.db != nil
}

func (s *SQLite) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, ErrNotConnected
	}
	return s.db, nil
}

func now() int64 { return time.Now().Unix() }

func (s *SQLite) ensureCollection(ctx context.Context, name string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	var id string
	err = db.QueryRowContext(ctx, `SELECT id FROM colls WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to look up collection %q: %w", name, err)
	}
	parent := path.Dir(name)
	if name == "/" {
		parent = "/"
	}
	ts := now()
	_, err = db.ExecContext(ctx,
		`INSERT INTO colls (id, name, parent, created, modified) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), name, parent, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	return nil
}

// ResolvePath classifies a path as a collection, a data object, or absent.
func (s *SQLite) ResolvePath(ctx context.Context, p string) (*PathInfo, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	cleaned := path.Clean(p)

	var id string
	err = db.QueryRowContext(ctx, `SELECT id FROM colls WHERE name = ?`, cleaned).Scan(&id)
	switch {
	case err == nil:
		return &PathInfo{Exists: true, Kind: KindCollection, ID: id, Collection: cleaned}, nil
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("failed to resolve path %q: %w", p, err)
	}

	coll, leaf := path.Dir(cleaned), path.Base(cleaned)
	err = db.QueryRowContext(ctx,
		`SELECT o.id FROM objs o JOIN colls c ON o.coll_id = c.id
		 WHERE c.name = ? AND o.name = ? ORDER BY o.repl_num LIMIT 1`,
		coll, leaf).Scan(&id)
	switch {
	case err == nil:
		return &PathInfo{Exists: true, Kind: KindDataObject, ID: id, Collection: coll, Name: leaf}, nil
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("failed to resolve path %q: %w", p, err)
	}
	return &PathInfo{Exists: false, Kind: KindNone, Collection: coll, Name: leaf}, nil
}

// ListUsers returns identities matching name, and zone when non-empty.
func (s *SQLite) ListUsers(ctx context.Context, name, zone string) ([]User, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	q := `SELECT id, name, zone, type FROM users WHERE name = ?`
	args := []interface{}{name}
	if zone != "" {
		q += ` AND zone = ?`
		args = append(args, zone)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Zone, &u.Type); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AddUser registers an identity. Used by tests and local-mode bootstrap.
func (s *SQLite) AddUser(ctx context.Context, name, zone, userType string) (*User, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if zone == "" {
		zone = s.cfg.Zone
	}
	if userType == "" {
		userType = "rodsuser"
	}
	u := User{ID: uuid.NewString(), Name: name, Zone: zone, Type: userType}
	_, err = db.ExecContext(ctx, `INSERT INTO users (id, name, zone, type) VALUES (?, ?, ?, ?)`,
		u.ID, u.Name, u.Zone, u.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to add user %s#%s: %w", name, zone, err)
	}
	return &u, nil
}

func (s *SQLite) entityFor(ctx context.Context, p string) (kind string, id string, err error) {
	info, err := s.ResolvePath(ctx, p)
	if err != nil {
		return "", "", err
	}
	if !info.Exists {
		return "", "", NewError(CodeItemNotFound, "path %q does not exist", p)
	}
	if info.Kind == KindCollection {
		return "c", info.ID, nil
	}
	return "d", info.ID, nil
}

// SetAccess grants level to userID on the entity at path, recursing into a
// collection's subtree when asked. Level "null" revokes.
func (s *SQLite) SetAccess(ctx context.Context, p string, recurse bool, userID, level string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	kind, id, err := s.entityFor(ctx, p)
	if err != nil {
		return err
	}

	type entity struct{ kind, id string }
	targets := []entity{{kind, id}}
	if recurse && kind == "c" {
		rows, err := db.QueryContext(ctx,
			`SELECT 'c', id FROM colls WHERE name LIKE ? UNION ALL
			 SELECT DISTINCT 'd', o.id FROM objs o JOIN colls c ON o.coll_id = c.id
			 WHERE c.name = ? OR c.name LIKE ?`,
			p+"/%", p, p+"/%")
		if err != nil {
			return fmt.Errorf("failed to walk collection %q: %w", p, err)
		}
		defer rows.Close()
		for rows.Next() {
			var e entity
			if err := rows.Scan(&e.kind, &e.id); err != nil {
				return err
			}
			targets = append(targets, e)
		}
		if err := rows.Err(); err != nil {
			return err
		}
	}

	for _, e := range targets {
		if level == "null" {
			_, err = db.ExecContext(ctx,
				`DELETE FROM access WHERE owner_kind = ? AND owner_id = ? AND user_id = ?`,
				e.kind, e.id, userID)
		} else {
			_, err = db.ExecContext(ctx,
				`INSERT INTO access (owner_kind, owner_id, user_id, level) VALUES (?, ?, ?, ?)
				 ON CONFLICT (owner_kind, owner_id, user_id) DO UPDATE SET level = excluded.level`,
				e.kind, e.id, userID, level)
		}
		if err != nil {
			return fmt.Errorf("failed to set access on %q: %w", p, err)
		}
	}
	return nil
}

// AddMetadata attaches an AVU to the entity at path.
func (s *SQLite) AddMetadata(ctx context.Context, p, attr, value, units string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	kind, id, err := s.entityFor(ctx, p)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT OR IGNORE INTO meta (owner_kind, owner_id, attr, value, units) VALUES (?, ?, ?, ?, ?)`,
		kind, id, attr, value, units)
	if err != nil {
		return fmt.Errorf("failed to add metadata %s=%s to %q: %w", attr, value, p, err)
	}
	return nil
}

// RemoveMetadata detaches an AVU from the entity at path. Removing an AVU
// that is not attached is an item-not-found catalog error.
func (s *SQLite) RemoveMetadata(ctx context.Context, p, attr, value, units string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	kind, id, err := s.entityFor(ctx, p)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`DELETE FROM meta WHERE owner_kind = ? AND owner_id = ? AND attr = ? AND value = ? AND units = ?`,
		kind, id, attr, value, units)
	if err != nil {
		return fmt.Errorf("failed to remove metadata %s=%s from %q: %w", attr, value, p, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NewError(CodeItemNotFound, "no AVU %s=%s (%s) on %q", attr, value, units, p)
	}
	return nil
}

// Move renames a data object or a collection subtree. Moving a data object
// to an existing collection keeps its leaf name.
func (s *SQLite) Move(ctx context.Context, from, to string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	src, err := s.ResolvePath(ctx, from)
	if err != nil {
		return err
	}
	if !src.Exists {
		return NewError(CodeItemNotFound, "path %q does not exist", from)
	}

	if src.Kind == KindDataObject {
		destColl, destName := path.Dir(path.Clean(to)), path.Base(path.Clean(to))
		if dest, err := s.ResolvePath(ctx, to); err == nil && dest.Exists && dest.Kind == KindCollection {
			destColl, destName = path.Clean(to), src.Name
		}
		var collID string
		err := db.QueryRowContext(ctx, `SELECT id FROM colls WHERE name = ?`, destColl).Scan(&collID)
		if err == sql.ErrNoRows {
			return NewError(CodeItemNotFound, "destination collection %q does not exist", destColl)
		}
		if err != nil {
			return fmt.Errorf("failed to resolve destination %q: %w", to, err)
		}
		_, err = db.ExecContext(ctx,
			`UPDATE objs SET coll_id = ?, name = ?, modified = ? WHERE id = ?`,
			collID, destName, now(), src.ID)
		if err != nil {
			return fmt.Errorf("failed to move %q to %q: %w", from, to, err)
		}
		return nil
	}

	oldName := path.Clean(from)
	newName := path.Clean(to)
	ts := now()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`UPDATE colls SET name = ?, parent = ?, modified = ? WHERE id = ?`,
		newName, path.Dir(newName), ts, src.ID); err != nil {
		return fmt.Errorf("failed to rename collection %q: %w", from, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE colls SET name = ? || substr(name, ?), parent = ? || substr(parent, ?)
		 WHERE name LIKE ?`,
		newName, len(oldName)+1, newName, len(oldName)+1, oldName+"/%"); err != nil {
		return fmt.Errorf("failed to rename subtree of %q: %w", from, err)
	}
	return tx.Commit()
}

// RemoveDataObject deletes all replicas of a data object, with its metadata
// and access rows.
func (s *SQLite) RemoveDataObject(ctx context.Context, p string, force bool) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	info, err := s.ResolvePath(ctx, p)
	if err != nil {
		return err
	}
	if !info.Exists || info.Kind != KindDataObject {
		return NewError(CodeItemNotFound, "data object %q does not exist", p)
	}
	_, err = db.ExecContext(ctx, `DELETE FROM objs WHERE id = ?`, info.ID)
	if err != nil {
		return fmt.Errorf("failed to remove %q: %w", p, err)
	}
	_, _ = db.ExecContext(ctx, `DELETE FROM meta WHERE owner_kind = 'd' AND owner_id = ?`, info.ID)
	_, _ = db.ExecContext(ctx, `DELETE FROM access WHERE owner_kind = 'd' AND owner_id = ?`, info.ID)
	return nil
}

// CreateCollection creates a collection, and with parents set, any missing
// ancestors. Without parents, an existing collection is a name-exists error.
func (s *SQLite) CreateCollection(ctx context.Context, p string, parents bool) error {
	cleaned := path.Clean(p)
	info, err := s.ResolvePath(ctx, cleaned)
	if err != nil {
		return err
	}
	if info.Exists {
		if parents && info.Kind == KindCollection {
			return nil
		}
		return NewError(CodeNameExists, "path %q already exists", p)
	}

	if parents {
		segs := strings.Split(strings.TrimPrefix(cleaned, "/"), "/")
		name := ""
		for _, seg := range segs {
			name += "/" + seg
			if err := s.ensureCollection(ctx, name); err != nil {
				return err
			}
		}
		return nil
	}

	parent, err := s.ResolvePath(ctx, path.Dir(cleaned))
	if err != nil {
		return err
	}
	if !parent.Exists || parent.Kind != KindCollection {
		return NewError(CodeItemNotFound, "parent collection of %q does not exist", p)
	}
	return s.ensureCollection(ctx, cleaned)
}

// RemoveCollection deletes a collection. A non-empty collection requires
// force, which removes the whole subtree.
func (s *SQLite) RemoveCollection(ctx context.Context, p string, force bool) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	cleaned := path.Clean(p)
	info, err := s.ResolvePath(ctx, cleaned)
	if err != nil {
		return err
	}
	if !info.Exists || info.Kind != KindCollection {
		return NewError(CodeItemNotFound, "collection %q does not exist", p)
	}

	var children int
	err = db.QueryRowContext(ctx,
		`SELECT (SELECT count(*) FROM colls WHERE parent = ? AND name != '/') +
		        (SELECT count(*) FROM objs WHERE coll_id = ?)`,
		cleaned, info.ID).Scan(&children)
	if err != nil {
		return fmt.Errorf("failed to inspect collection %q: %w", p, err)
	}
	if children > 0 && !force {
		return NewError(CodeCollectionNotEmpty, "collection %q is not empty", p)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM objs WHERE coll_id IN (SELECT id FROM colls WHERE name = ? OR name LIKE ?)`,
		cleaned, cleaned+"/%"); err != nil {
		return fmt.Errorf("failed to remove contents of %q: %w", p, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM colls WHERE name = ? OR name LIKE ?`, cleaned, cleaned+"/%"); err != nil {
		return fmt.Errorf("failed to remove collection %q: %w", p, err)
	}
	return tx.Commit()
}

// Checksum returns the registered checksum of the newest replica,
// calculating and registering a fresh one when calculate is set or none is
// registered yet.
func (s *SQLite) Checksum(ctx context.Context, p string, calculate bool) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	info, err := s.ResolvePath(ctx, p)
	if err != nil {
		return "", err
	}
	if !info.Exists || info.Kind != KindDataObject {
		return "", NewError(CodeItemNotFound, "data object %q does not exist", p)
	}

	var checksum string
	var content []byte
	err = db.QueryRowContext(ctx,
		`SELECT checksum, content FROM objs WHERE id = ? AND repl_status = ? ORDER BY repl_num LIMIT 1`,
		info.ID, ReplStatusNewest).Scan(&checksum, &content)
	if err != nil {
		return "", fmt.Errorf("failed to read replica of %q: %w", p, err)
	}
	if checksum != "" && !calculate {
		return checksum, nil
	}

	sum := md5.Sum(content)
	checksum = hex.EncodeToString(sum[:])
	if _, err := db.ExecContext(ctx,
		`UPDATE objs SET checksum = ? WHERE id = ? AND repl_status = ?`,
		checksum, info.ID, ReplStatusNewest); err != nil {
		return "", fmt.Errorf("failed to register checksum of %q: %w", p, err)
	}
	return checksum, nil
}

// OpenRead streams the content of the newest replica.
func (s *SQLite) OpenRead(ctx context.Context, p string) (io.ReadCloser, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	info, err := s.ResolvePath(ctx, p)
	if err != nil {
		return nil, err
	}
	if !info.Exists || info.Kind != KindDataObject {
		return nil, NewError(CodeItemNotFound, "data object %q does not exist", p)
	}
	var content []byte
	err = db.QueryRowContext(ctx,
		`SELECT content FROM objs WHERE id = ? AND repl_status = ? ORDER BY repl_num LIMIT 1`,
		info.ID, ReplStatusNewest).Scan(&content)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", p, err)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

type sqliteWriter struct {
	s    *SQLite
	ctx  context.Context
	path string
	buf  bytes.Buffer
}

func (w *sqliteWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Close commits the buffered content as the single newest replica,
// overwriting any pre-existing data object at the path.
func (w *sqliteWriter) Close() error {
	db, err := w.s.conn()
	if err != nil {
		return err
	}
	cleaned := path.Clean(w.path)
	coll, leaf := path.Dir(cleaned), path.Base(cleaned)
	var collID string
	err = db.QueryRowContext(w.ctx, `SELECT id FROM colls WHERE name = ?`, coll).Scan(&collID)
	if err == sql.ErrNoRows {
		return NewError(CodeItemNotFound, "collection %q does not exist", coll)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve collection %q: %w", coll, err)
	}

	content := w.buf.Bytes()
	sum := md5.Sum(content)
	ts := now()

	var id string
	var created int64 = ts
	err = db.QueryRowContext(w.ctx,
		`SELECT id, created FROM objs WHERE coll_id = ? AND name = ? ORDER BY repl_num LIMIT 1`,
		collID, leaf).Scan(&id, &created)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.NewString()
	case err != nil:
		return fmt.Errorf("failed to look up %q: %w", w.path, err)
	default:
		// Overwrite replaces every replica with a single fresh one.
		if _, err := db.ExecContext(w.ctx, `DELETE FROM objs WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to supersede replicas of %q: %w", w.path, err)
		}
	}

	_, err = db.ExecContext(w.ctx,
		`INSERT INTO objs (id, coll_id, name, repl_num, repl_status, size, checksum, content, created, modified)
		 VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`,
		id, collID, leaf, ReplStatusNewest, len(content), hex.EncodeToString(sum[:]), content, created, ts)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", w.path, err)
	}
	return nil
}

// OpenWrite returns a writer whose Close commits the content, overwriting
// any existing data object at the path.
func (s *SQLite) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	if _, err := s.conn(); err != nil {
		return nil, err
	}
	return &sqliteWriter{s: s, ctx: ctx, path: p}, nil
}

var _ Client = (*SQLite)(nil)
