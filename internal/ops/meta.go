package ops

import (
	"context"
	"fmt"

	"github.com/canto-cli/canto/internal/models"
	"github.com/canto-cli/canto/internal/query"
)

// handleMetaQuery runs a metadata search scoped by the target's collection
// path and the item's AVU/access/timestamp clauses.
func handleMetaQuery(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error) {
	target := item.GetTarget()
	spec := query.SearchSpec{
		AVUs:       item.SearchAVUs(),
		Access:     item.SearchAccess(),
		Timestamps: item.SearchTimestamps(),
		Zone:       flags.Zone,
	}
	if target != nil && target.IsCollection() {
		spec.Collection = target.Collection
	}
	return d.search.Search(ctx, spec, flags.enrichOptions())
}

// handleMetaMod adds, removes, or supersedes AVUs on one path. The
// sub-operation is the "operation" argument: add, rem, or supersede.
func handleMetaMod(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error) {
	info, err := d.resolveExisting(ctx, item.GetTarget())
	if err != nil {
		return nil, err
	}
	p := item.GetTarget().Path()

	avus := item.SearchAVUs()
	subOp := item.Args().Operation
	switch subOp {
	case models.MetaAdd, models.MetaRemove:
		if len(avus) == 0 {
			return nil, fmt.Errorf("metadata %s on %q given no avus", subOp, p)
		}
		for _, avu := range avus {
			if subOp == models.MetaAdd {
				err = d.client.AddMetadata(ctx, p, avu.Attribute, avu.Value, avu.Units)
			} else {
				err = d.client.RemoveMetadata(ctx, p, avu.Attribute, avu.Value, avu.Units)
			}
			if err != nil {
				return nil, err
			}
		}
	case models.MetaSupersede:
		if err := d.supersedeMetadata(ctx, item.GetTarget(), avus); err != nil {
			return nil, err
		}
	case "":
		return nil, fmt.Errorf("metadata modification on %q names no sub-operation (add, rem, supersede)", p)
	default:
		return nil, fmt.Errorf("unrecognized metadata sub-operation %q (expected add, rem, supersede)", subOp)
	}
	return pathResult(info), nil
}

// supersedeMetadata reconciles the path's current AVU set C against the
// target set T: every AVU in C not structurally present in T is removed,
// then every AVU in T not in C is added, in that order. There is no
// transaction: a failure aborts the remaining steps for this item without
// rolling back AVUs already changed, and the item reports that single most
// recent error.
func (d *Dispatcher) supersedeMetadata(ctx context.Context, target *models.Target, want []models.AVU) error {
	t := models.Target{Collection: target.Collection, DataObject: target.DataObject}
	current, err := d.search.CurrentAVUs(ctx, t)
	if err != nil {
		return err
	}
	p := t.Path()

	for _, avu := range current {
		if models.ContainsAVU(want, avu) {
			continue
		}
		if err := d.client.RemoveMetadata(ctx, p, avu.Attribute, avu.Value, avu.Units); err != nil {
			return err
		}
	}
	for _, avu := range want {
		if models.ContainsAVU(current, avu) {
			continue
		}
		if err := d.client.AddMetadata(ctx, p, avu.Attribute, avu.Value, avu.Units); err != nil {
			return err
		}
	}
	return nil
}
