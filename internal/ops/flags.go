// Package ops routes work items to operation handlers: listing, permission
// changes, checksums, metadata search and modification, transfer, and
// namespace mutations. Handlers return a JSON-serializable result or an
// error; the pipeline decides what is fatal.
package ops

import (
	"fmt"

	"github.com/canto-cli/canto/internal/models"
	"github.com/canto-cli/canto/internal/query"
)

// ChecksumMode selects the checksum behavior of an operation. Calculate and
// verify are mutually exclusive.
type ChecksumMode int

const (
	ChecksumNone ChecksumMode = iota
	ChecksumCalculate
	ChecksumVerify
)

// Flags is the validated record of a work item's operation arguments:
// named booleans and enums instead of a bitset, checked once at parse time.
type Flags struct {
	PrintACL        bool
	PrintAVUs       bool
	PrintChecksum   bool
	PrintSize       bool
	PrintTimestamps bool
	PrintContents   bool

	Checksum ChecksumMode

	Recurse      bool
	Force        bool
	Parents      bool
	Save         bool
	Raw          bool
	SingleServer bool

	Zone string
}

// ParseFlags validates a work item's arguments into a Flags record.
func ParseFlags(args *models.Arguments) (*Flags, error) {
	if args.Calculate && args.Verify {
		return nil, fmt.Errorf("the calculate and verify checksum options are mutually exclusive")
	}
	mode := ChecksumNone
	if args.Calculate {
		mode = ChecksumCalculate
	}
	if args.Verify {
		mode = ChecksumVerify
	}
	return &Flags{
		PrintACL:        args.ACL,
		PrintAVUs:       args.AVU,
		PrintChecksum:   args.Checksum,
		PrintSize:       args.Size,
		PrintTimestamps: args.Timestamp,
		PrintContents:   args.Contents,
		Checksum:        mode,
		Recurse:         args.Recurse,
		Force:           args.Force,
		Parents:         args.Parents,
		Save:            args.Save,
		Raw:             args.Raw,
		SingleServer:    args.SingleServer,
		Zone:            args.Zone,
	}, nil
}

// enrichOptions converts print flags to search enrichment options.
func (f *Flags) enrichOptions() query.Options {
	return query.Options{
		WithACL:        f.PrintACL,
		WithAVUs:       f.PrintAVUs,
		WithTimestamps: f.PrintTimestamps,
		WithSize:       f.PrintSize,
		WithChecksum:   f.PrintChecksum,
	}
}
