package catalog

import (
	"context"
	"io"
)

// Kind classifies what a resolved path names.
type Kind int

const (
	KindNone Kind = iota
	KindCollection
	KindDataObject
)

func (k Kind) String() string {
	switch k {
	case KindCollection:
		return "collection"
	case KindDataObject:
		return "data-item"
	default:
		return "none"
	}
}

// PathInfo is the result of resolving a path against the catalog.
type PathInfo struct {
	Exists bool
	Kind   Kind
	// ID is the catalog's opaque internal identifier for the entity,
	// usable in queries that key on entity identity (e.g. ACL lookup).
	ID         string
	Collection string
	Name       string
}

// User is one catalog identity.
type User struct {
	ID   string
	Name string
	Zone string
	Type string
}

// Client is the catalog store capability canto drives. One client holds at
// most one live session; Connect and Disconnect bracket it, and every other
// call requires it. Implementations must be safe for the single-worker
// access pattern the pipeline guarantees, not for general concurrent use.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Connected() bool

	// RunQuery executes one submission of a compiled query: one chunk of
	// rows, or ErrNoRows when there are none (matched nothing, or end of
	// chunks - the caller distinguishes).
	RunQuery(ctx context.Context, q *Query) (*Chunk, error)

	// ResolvePath classifies a catalog path. A path that exists but is
	// neither a collection nor a data object is an error, not a PathInfo.
	ResolvePath(ctx context.Context, path string) (*PathInfo, error)

	// ListUsers returns the identities matching name (and zone, when
	// non-empty).
	ListUsers(ctx context.Context, name, zone string) ([]User, error)

	// Mutations.
	SetAccess(ctx context.Context, path string, recurse bool, userID, level string) error
	AddMetadata(ctx context.Context, path, attr, value, units string) error
	RemoveMetadata(ctx context.Context, path, attr, value, units string) error
	Move(ctx context.Context, from, to string) error
	RemoveDataObject(ctx context.Context, path string, force bool) error
	CreateCollection(ctx context.Context, path string, parents bool) error
	RemoveCollection(ctx context.Context, path string, force bool) error

	// Checksum returns the registered checksum of a data object,
	// calculating and registering it first when calculate is set.
	Checksum(ctx context.Context, path string, calculate bool) (string, error)

	// Streaming transfer of data object content.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)
	OpenWrite(ctx context.Context, path string) (io.WriteCloser, error)
}

// QueryRunner is the query-only slice of Client consumed by the executor.
type QueryRunner interface {
	RunQuery(ctx context.Context, q *Query) (*Chunk, error)
}

// UserFinder is the identity-lookup slice of Client consumed by the
// predicate compiler when resolving access clauses.
type UserFinder interface {
	ListUsers(ctx context.Context, name, zone string) ([]User, error)
}
