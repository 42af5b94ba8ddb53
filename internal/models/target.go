// Package models defines the core data structures used throughout canto:
// path targets, AVU metadata triples, access clauses, timestamps, and the
// work-item envelope read from and written to the JSON stream.
package models

import (
	"fmt"
	"path"
	"strings"
)

// Target identifies a collection or a data object in the catalog's
// hierarchical namespace. A target with an empty DataObject names a
// collection; otherwise it names the data object DataObject inside
// Collection.
type Target struct {
	Collection string `json:"collection,omitempty"`
	DataObject string `json:"data_object,omitempty"`

	// Optional input clauses attached directly to the target.
	AVUs       []AVU       `json:"avus,omitempty"`
	Access     []Access    `json:"access,omitempty"`
	Timestamps []Timestamp `json:"timestamps,omitempty"`

	// Local filesystem location for get/put.
	Directory string `json:"directory,omitempty"`
	File      string `json:"file,omitempty"`
}

// IsCollection reports whether the target names a collection rather than a
// data object.
func (t *Target) IsCollection() bool {
	return t.DataObject == ""
}

// Path returns the full catalog path of the target.
func (t *Target) Path() string {
	if t.IsCollection() {
		return t.Collection
	}
	return path.Join(t.Collection, t.DataObject)
}

// LocalPath returns the local filesystem path for get/put operations,
// defaulting the file name to the data object name.
func (t *Target) LocalPath() string {
	file := t.File
	if file == "" {
		file = t.DataObject
	}
	if t.Directory == "" {
		return file
	}
	return path.Join(t.Directory, file)
}

// Validate checks that the target is well-formed enough to resolve.
func (t *Target) Validate() error {
	if t.Collection == "" {
		return fmt.Errorf("target has no collection: %+v", t)
	}
	if strings.Contains(t.DataObject, "/") {
		return fmt.Errorf("data object name %q contains a path separator", t.DataObject)
	}
	return nil
}

// SplitPath splits a full catalog path into a collection/data-object target.
// A trailing slash or a known-collection path should be split by the caller
// after resolution; this is the syntactic split only.
func SplitPath(p string) (collection, leaf string) {
	cleaned := path.Clean(p)
	if cleaned == "/" {
		return "/", ""
	}
	return path.Dir(cleaned), path.Base(cleaned)
}
