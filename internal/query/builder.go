// Package query contains the predicate compiler that turns JSON search
// specifications into column-oriented catalog queries, the executor that
// drives their chunked evaluation, and the search orchestrator that combines
// collection and data-object passes with optional result enrichment.
package query

import (
	"fmt"
	"strings"

	"github.com/canto-cli/canto/internal/catalog"
)

// Operators accepted in AVU and timestamp clauses. The n-prefixed tokens
// request numeric comparison.
var validOperators = []string{"=", "like", ">", "<", "n>", "n<", ">=", "<=", "n>=", "n<="}

// normalizeOperator defaults an absent operator to equality and rejects
// anything outside the whitelist, naming the valid set.
func normalizeOperator(op string) (string, error) {
	if op == "" {
		return "=", nil
	}
	for _, valid := range validOperators {
		if op == valid {
			return op, nil
		}
	}
	return "", fmt.Errorf("invalid operator %q: expected one of %s",
		op, strings.Join(validOperators, ", "))
}

// Builder accumulates the conditions, output columns, and zone scope of one
// compiled query. Conditions form a set: appending a condition whose
// (column, rendered value) pair is already present is a no-op, which makes
// the clause sub-builders idempotent when invoked twice against the same
// query.
type Builder struct {
	conditions []catalog.Condition
	selects    []catalog.Selection
	zone       string
}

// NewBuilder returns an empty query builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Condition appends a condition unless an identical one is already present.
func (b *Builder) Condition(col catalog.Column, op, literal string) {
	next := catalog.Condition{Column: col, Op: op, Literal: literal}
	rendered := next.Render()
	for _, existing := range b.conditions {
		if existing.Column == col && existing.Render() == rendered {
			return
		}
	}
	b.conditions = append(b.conditions, next)
}

// Select adds an output column under the given label, once.
func (b *Builder) Select(col catalog.Column, label string) {
	for _, existing := range b.selects {
		if existing.Column == col {
			return
		}
	}
	b.selects = append(b.selects, catalog.Selection{Column: col, Label: label})
}

// Zone sets the query's zone scope unless one is already set. SetZone
// overrides unconditionally; explicit caller-supplied zones use it to take
// precedence over zones inferred from paths.
func (b *Builder) Zone(zone string) {
	if b.zone == "" {
		b.zone = zone
	}
}

// SetZone overrides the zone scope.
func (b *Builder) SetZone(zone string) {
	b.zone = zone
}

// ConditionCount reports the number of accumulated conditions.
func (b *Builder) ConditionCount() int {
	return len(b.conditions)
}

// Build produces the compiled query.
func (b *Builder) Build() *catalog.Query {
	return &catalog.Query{
		Conditions: b.conditions,
		Select:     b.selects,
		Zone:       b.zone,
	}
}
