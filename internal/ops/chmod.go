package ops

import (
	"context"
	"fmt"

	"github.com/canto-cli/canto/internal/access"
	"github.com/canto-cli/canto/internal/models"
)

// handleChmod applies the item's access clauses to one path, optionally
// recursing into a collection subtree. Each clause's owner is resolved to a
// catalog identity and its level translated to the catalog's token before
// the grant.
func handleChmod(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error) {
	info, err := d.resolveExisting(ctx, item.GetTarget())
	if err != nil {
		return nil, err
	}
	p := item.GetTarget().Path()

	clauses := item.SearchAccess()
	if len(clauses) == 0 {
		return nil, fmt.Errorf("permission change on %q given no access clauses", p)
	}

	for _, clause := range clauses {
		user, err := access.ResolveOwner(ctx, d.client, clause.Owner, clause.Zone)
		if err != nil {
			return nil, err
		}
		token, err := access.ToCatalog(clause.Level)
		if err != nil {
			return nil, err
		}
		if err := d.client.SetAccess(ctx, p, flags.Recurse, user.ID, token); err != nil {
			return nil, err
		}
	}
	return pathResult(info), nil
}
