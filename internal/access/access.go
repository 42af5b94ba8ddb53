// Package access translates between the user-facing permission vocabulary
// (null, read, write, own) and the catalog's internal permission tokens, and
// resolves owner names to catalog identities.
package access

import (
	"context"
	"fmt"

	"github.com/canto-cli/canto/internal/catalog"
)

// User-facing permission levels.
const (
	LevelNull  = "null"
	LevelRead  = "read"
	LevelWrite = "write"
	LevelOwn   = "own"
)

// Catalog-internal permission tokens.
const (
	tokenNull  = "null"
	tokenRead  = "read object"
	tokenWrite = "modify object"
	tokenOwn   = "own"
)

// ToCatalog maps a user-facing level to the catalog's internal token. An
// absent level means null.
func ToCatalog(level string) (string, error) {
	switch level {
	case "", LevelNull:
		return tokenNull, nil
	case LevelRead:
		return tokenRead, nil
	case LevelWrite:
		return tokenWrite, nil
	case LevelOwn:
		return tokenOwn, nil
	default:
		return "", fmt.Errorf("invalid permission level %q: expected one of null, read, write, own", level)
	}
}

// FromCatalog maps a catalog-internal token back to the user-facing level.
func FromCatalog(token string) (string, error) {
	switch token {
	case tokenNull:
		return LevelNull, nil
	case tokenRead:
		return LevelRead, nil
	case tokenWrite:
		return LevelWrite, nil
	case tokenOwn:
		return LevelOwn, nil
	default:
		return "", fmt.Errorf("unknown catalog permission token %q", token)
	}
}

// ResolveOwner looks up the single catalog identity for an owner name,
// optionally qualified by zone. Zero or more than one match is an error.
func ResolveOwner(ctx context.Context, finder catalog.UserFinder, name, zone string) (*catalog.User, error) {
	if name == "" {
		return nil, fmt.Errorf("access clause has no owner")
	}
	users, err := finder.ListUsers(ctx, name, zone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up owner %q: %w", name, err)
	}
	switch len(users) {
	case 1:
		return &users[0], nil
	case 0:
		return nil, fmt.Errorf("owner %q does not match any catalog identity", name)
	default:
		return nil, fmt.Errorf("owner %q matches %d catalog identities", name, len(users))
	}
}
