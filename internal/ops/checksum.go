package ops

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/models"
	"github.com/canto-cli/canto/internal/query"
)

// handleChecksum reports a data object's checksum. Calculate mode forces a
// fresh server-side calculation and registration; verify mode additionally
// reads the content back and compares, failing on a mismatch.
func handleChecksum(ctx context.Context, d *Dispatcher, item *models.WorkItem, flags *Flags) (interface{}, error) {
	info, err := d.resolveExisting(ctx, item.GetTarget())
	if err != nil {
		return nil, err
	}
	if info.Kind != catalog.KindDataObject {
		return nil, catalog.NewError(catalog.CodeInvalidArgument,
			"%q is a collection; checksums apply to data objects", item.GetTarget().Path())
	}
	p := item.GetTarget().Path()

	registered, err := d.client.Checksum(ctx, p, flags.Checksum == ChecksumCalculate)
	if err != nil {
		return nil, err
	}

	if flags.Checksum == ChecksumVerify {
		computed, err := d.computeChecksum(ctx, p)
		if err != nil {
			return nil, err
		}
		if computed != registered {
			return nil, catalog.NewError(catalog.CodeChecksumMismatch,
				"checksum of %q is %s but the catalog has %s registered", p, computed, registered)
		}
	}

	result := pathResult(info)
	result[query.LabelChecksum] = registered
	return result, nil
}

// computeChecksum streams a data object's content and hashes it.
func (d *Dispatcher) computeChecksum(ctx context.Context, p string) (string, error) {
	r, err := d.client.OpenRead(ctx, p)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return hashReader(r)
}

func hashReader(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
