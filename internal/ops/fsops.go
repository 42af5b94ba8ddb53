package ops

import (
	"context"
	"fmt"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/models"
	"github.com/canto-cli/canto/internal/query"
)

// handleMove renames a data object or collection. The destination is the
// "path" argument.
func handleMove(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error) {
	target := item.GetTarget()
	dest := item.Args().Path
	if dest == "" {
		return nil, fmt.Errorf("move of %q names no destination path", target.Path())
	}
	if _, err := d.resolveExisting(ctx, target); err != nil {
		return nil, err
	}
	if err := d.client.Move(ctx, target.Path(), dest); err != nil {
		return nil, err
	}
	coll, leaf := models.SplitPath(dest)
	return map[string]interface{}{
		query.LabelCollection: coll,
		query.LabelDataObject: leaf,
	}, nil
}

// handleRemove deletes a data object.
func handleRemove(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error) {
	info, err := d.resolveExisting(ctx, item.GetTarget())
	if err != nil {
		return nil, err
	}
	if info.Kind != catalog.KindDataObject {
		return nil, catalog.NewError(catalog.CodeInvalidArgument,
			"%q is a collection; use rmcoll to remove collections", item.GetTarget().Path())
	}
	if err := d.client.RemoveDataObject(ctx, item.GetTarget().Path(), flags.Force); err != nil {
		return nil, err
	}
	return pathResult(info), nil
}

// handleMkColl creates a collection, with missing ancestors when the
// parents flag is set.
func handleMkColl(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error) {
	target := item.GetTarget()
	if !target.IsCollection() {
		return nil, fmt.Errorf("mkcoll target %q names a data object", target.Path())
	}
	if err := d.client.CreateCollection(ctx, target.Collection, flags.Parents); err != nil {
		return nil, err
	}
	return map[string]interface{}{query.LabelCollection: target.Collection}, nil
}

// handleRmColl removes a collection; force removes a non-empty subtree.
func handleRmColl(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error) {
	info, err := d.resolveExisting(ctx, item.GetTarget())
	if err != nil {
		return nil, err
	}
	if info.Kind != catalog.KindCollection {
		return nil, catalog.NewError(catalog.CodeInvalidArgument,
			"%q is a data object; use rm to remove data objects", item.GetTarget().Path())
	}
	if err := d.client.RemoveCollection(ctx, info.Collection, flags.Force); err != nil {
		return nil, err
	}
	return map[string]interface{}{query.LabelCollection: info.Collection}, nil
}
