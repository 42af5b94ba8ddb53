package ops

import (
	"context"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/models"
	"github.com/canto-cli/canto/internal/query"
)

// handleList reports one path as a JSON object, optionally enriched with
// size, checksum, ACL, AVU, and timestamp sub-documents, and for a
// collection, with its immediate contents.
func handleList(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error) {
	info, err := d.resolveExisting(ctx, item.GetTarget())
	if err != nil {
		return nil, err
	}

	result := pathResult(info)
	if info.Kind == catalog.KindDataObject {
		if err := d.statObject(ctx, result, flags); err != nil {
			return nil, err
		}
	}
	if err := d.search.Enrich(ctx, result, flags.enrichOptions()); err != nil {
		return nil, err
	}

	if info.Kind == catalog.KindCollection && flags.PrintContents {
		contents, err := d.search.Contents(ctx, info.Collection, flags.PrintSize)
		if err != nil {
			return nil, err
		}
		for _, entry := range contents {
			if err := d.search.Enrich(ctx, entry, flags.enrichOptions()); err != nil {
				return nil, err
			}
		}
		result["contents"] = contents
	}
	return result, nil
}

// statObject attaches the size and checksum of a data object when asked.
func (d *Dispatcher) statObject(ctx context.Context, entry map[string]interface{}, flags *Flags) error {
	if !flags.PrintSize && !flags.PrintChecksum {
		return nil
	}
	t := models.Target{}
	t.Collection, _ = entry[query.LabelCollection].(string)
	t.DataObject, _ = entry[query.LabelDataObject].(string)
	size, checksum, err := d.search.ObjectStat(ctx, t)
	if err != nil {
		return err
	}
	if flags.PrintSize {
		entry[query.LabelSize] = size
	}
	if flags.PrintChecksum && checksum != "" {
		entry[query.LabelChecksum] = checksum
	}
	return nil
}
