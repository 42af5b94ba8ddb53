package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/models"
	"github.com/canto-cli/canto/internal/query"
)

// handleGet fetches a data object's content. With the save flag the content
// lands in a local file named by the target's directory/file fields; with
// the raw flag it is embedded in the result as a string; otherwise it is
// ingested as JSON and embedded as a structured value.
func handleGet(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error) {
	info, err := d.resolveExisting(ctx, item.GetTarget())
	if err != nil {
		return nil, err
	}
	if info.Kind != catalog.KindDataObject {
		return nil, catalog.NewError(catalog.CodeInvalidArgument,
			"%q is a collection; only data objects can be fetched", item.GetTarget().Path())
	}
	target := item.GetTarget()

	r, err := d.client.OpenRead(ctx, target.Path())
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if flags.Save {
		local := target.LocalPath()
		f, err := os.Create(local)
		if err != nil {
			return nil, fmt.Errorf("failed to create local file %q: %w", local, err)
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write local file %q: %w", local, err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("failed to write local file %q: %w", local, err)
		}
		return pathResult(info), nil
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", target.Path(), err)
	}

	result := pathResult(info)
	if flags.Raw {
		result["data"] = string(content)
		return result, nil
	}
	var parsed interface{}
	if err := json.Unmarshal(content, &parsed); err != nil {
		return nil, fmt.Errorf("content of %q is not JSON (use the raw option for opaque content): %w",
			target.Path(), err)
	}
	result["data"] = parsed
	return result, nil
}

// handlePut uploads a local file to the target path, overwriting any
// pre-existing data object so that repeated puts of identical content are
// idempotent in effect. Verify mode compares the registered checksum
// against a locally computed one afterwards.
func handlePut(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error) {
	target := item.GetTarget()
	if target.IsCollection() {
		return nil, fmt.Errorf("put target %q names no data object", target.Path())
	}
	local := target.LocalPath()

	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("failed to open local file %q: %w", local, err)
	}
	defer f.Close()

	w, err := d.client.OpenWrite(ctx, target.Path())
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write %q: %w", target.Path(), err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		query.LabelCollection: target.Collection,
		query.LabelDataObject: target.DataObject,
	}

	if flags.Checksum != ChecksumNone {
		registered, err := d.client.Checksum(ctx, target.Path(), true)
		if err != nil {
			return nil, err
		}
		if flags.Checksum == ChecksumVerify {
			computed, err := localChecksum(local)
			if err != nil {
				return nil, err
			}
			if computed != registered {
				return nil, catalog.NewError(catalog.CodeChecksumMismatch,
					"uploaded %q but the catalog registered checksum %s, not %s", target.Path(), registered, computed)
			}
		}
		result[query.LabelChecksum] = registered
	}
	return result, nil
}

func localChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return hashReader(f)
}
