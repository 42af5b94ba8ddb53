package models

import (
	"encoding/json"
	"fmt"
)

// Operation names accepted in an envelope's "operation" field.
const (
	OpList      = "list"
	OpChmod     = "chmod"
	OpChecksum  = "checksum"
	OpMetaQuery = "metaquery"
	OpMetaMod   = "metamod"
	OpGet       = "get"
	OpPut       = "put"
	OpMove      = "move"
	OpRemove    = "rm"
	OpMkColl    = "mkcoll"
	OpRmColl    = "rmcoll"
)

// Metadata sub-operations for metamod.
const (
	MetaAdd       = "add"
	MetaRemove    = "rem"
	MetaSupersede = "supersede"
)

// Arguments carries the operation-specific options of a work item. Boolean
// fields request output enrichment or modify handler behavior; clause fields
// supply search predicates when they are not attached to the target itself.
type Arguments struct {
	// Sub-operation selector (metamod: add | rem | supersede).
	Operation string `json:"operation,omitempty"`

	// Search clauses, accepted here as well as on the target.
	AVUs       []AVU       `json:"avus,omitempty"`
	Access     []Access    `json:"access,omitempty"`
	Timestamps []Timestamp `json:"timestamps,omitempty"`

	Zone string `json:"zone,omitempty"`

	// Output enrichment.
	ACL        bool `json:"acl,omitempty"`
	AVU        bool `json:"avu,omitempty"`
	Checksum   bool `json:"checksum,omitempty"`
	Size       bool `json:"size,omitempty"`
	Timestamp  bool `json:"timestamp,omitempty"`
	Replicates bool `json:"replicate,omitempty"`
	Contents   bool `json:"contents,omitempty"`

	// Behavior switches.
	Recurse      bool `json:"recurse,omitempty"`
	Force        bool `json:"force,omitempty"`
	Parents      bool `json:"parents,omitempty"`
	Calculate    bool `json:"calculate,omitempty"`
	Verify       bool `json:"verify,omitempty"`
	Save         bool `json:"save,omitempty"`
	Raw          bool `json:"raw,omitempty"`
	SingleServer bool `json:"single_server,omitempty"`

	// Move destination.
	Path string `json:"path,omitempty"`
}

// CantoError is the embeddable per-item error record. Code carries the
// catalog's own error code when the failure originated there.
type CantoError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *CantoError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Envelope is one work item of the JSON stream in its explicit form: a named
// operation applied to a target with arguments. Result and Err are populated
// during processing and travel back to the output stream on the same value.
type Envelope struct {
	Operation string          `json:"operation,omitempty"`
	Target    *Target         `json:"target,omitempty"`
	Arguments *Arguments      `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Err       *CantoError     `json:"error,omitempty"`
}

// WorkItem is the tagged union produced by input parsing: either an explicit
// envelope or a legacy bare target, decided once at parse time. Defaults
// supplies arguments for the bare form, which cannot carry its own; the
// dispatcher installs them from the invoking command's flags.
type WorkItem struct {
	Envelope *Envelope
	Bare     *Target
	Defaults *Arguments
}

// Target returns the work item's target regardless of form.
func (w *WorkItem) GetTarget() *Target {
	if w.Envelope != nil {
		return w.Envelope.Target
	}
	return w.Bare
}

// Args returns the work item's arguments, never nil.
func (w *WorkItem) Args() *Arguments {
	if w.Envelope != nil && w.Envelope.Arguments != nil {
		return w.Envelope.Arguments
	}
	if w.Defaults != nil {
		return w.Defaults
	}
	return &Arguments{}
}

// ParseWorkItem decides between the envelope and bare-target forms of a raw
// input value. A value carrying an "operation" or "target" key is an
// envelope; anything else is treated as a bare target.
func ParseWorkItem(raw json.RawMessage) (*WorkItem, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("work item is not a JSON object: %w", err)
	}

	if _, ok := probe["operation"]; ok {
		return parseEnvelope(raw)
	}
	if _, ok := probe["target"]; ok {
		return parseEnvelope(raw)
	}

	var t Target
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("malformed target: %w", err)
	}
	return &WorkItem{Bare: &t}, nil
}

func parseEnvelope(raw json.RawMessage) (*WorkItem, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed operation envelope: %w", err)
	}
	if env.Target == nil {
		return nil, fmt.Errorf("operation envelope has no target")
	}
	return &WorkItem{Envelope: &env}, nil
}

// SearchAVUs returns the AVU clauses of a work item, preferring those given
// in the arguments over those attached to the target.
func (w *WorkItem) SearchAVUs() []AVU {
	if args := w.Args(); len(args.AVUs) > 0 {
		return args.AVUs
	}
	if t := w.GetTarget(); t != nil {
		return t.AVUs
	}
	return nil
}

// SearchAccess returns the access clauses of a work item, arguments first.
func (w *WorkItem) SearchAccess() []Access {
	if args := w.Args(); len(args.Access) > 0 {
		return args.Access
	}
	if t := w.GetTarget(); t != nil {
		return t.Access
	}
	return nil
}

// SearchTimestamps returns the timestamp clauses of a work item, arguments
// first.
func (w *WorkItem) SearchTimestamps() []Timestamp {
	if args := w.Args(); len(args.Timestamps) > 0 {
		return args.Timestamps
	}
	if t := w.GetTarget(); t != nil {
		return t.Timestamps
	}
	return nil
}
