package models

// AVU is an attribute-value-units metadata triple. Units default to the
// empty string when absent; the catalog itself represents missing units as
// an empty string, so the two are interchangeable. Operator is only
// meaningful in search specifications and is absent for tagging.
type AVU struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Units     string `json:"units,omitempty"`
	Operator  string `json:"operator,omitempty"`
}

// Equals reports structural equality on the attribute/value/units triple.
// The operator is a search artifact and does not participate.
func (a AVU) Equals(b AVU) bool {
	return a.Attribute == b.Attribute && a.Value == b.Value && a.Units == b.Units
}

// ContainsAVU reports whether avus contains an AVU structurally equal to a.
func ContainsAVU(avus []AVU, a AVU) bool {
	for _, b := range avus {
		if a.Equals(b) {
			return true
		}
	}
	return false
}

// Access is one access-control clause: a permission level granted to an
// owner, optionally qualified by zone.
type Access struct {
	Owner string `json:"owner"`
	Level string `json:"level,omitempty"`
	Zone  string `json:"zone,omitempty"`
}

// Timestamp is one creation/modification timestamp clause. Exactly one of
// Created/Modified must be set; values are ISO-8601 strings. Replicates
// identifies which replica a reported timestamp belongs to.
type Timestamp struct {
	Created    string `json:"created,omitempty"`
	Modified   string `json:"modified,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Replicates *int   `json:"replicates,omitempty"`
}
