// Package catalog defines the client capability canto consumes: a narrow
// interface over the remote catalog store (connection, column-oriented
// queries, path resolution, entity mutation, streaming transfer) together
// with the column and error vocabularies those calls speak. An embedded
// SQLite implementation backs tests and local mode; a remote driver plugs in
// behind the same interface.
package catalog

// Column identifies one queryable column of the catalog's general query
// interface. Collections and data objects expose distinct column sets; a
// query may only mix columns from one scope (plus the user columns joined
// through access rows).
type Column int

// Collection-scope columns.
const (
	ColCollID         Column = 500
	ColCollName       Column = 501
	ColCollParentName Column = 502
	ColCollOwnerName  Column = 503
	ColCollCreateTime Column = 504
	ColCollModifyTime Column = 505

	ColCollAttribute Column = 510
	ColCollValue     Column = 511
	ColCollUnits     Column = 512

	ColCollAccessUserID Column = 520
	ColCollAccessLevel  Column = 521
)

// Data-object-scope columns.
const (
	ColDataID         Column = 600
	ColDataName       Column = 601
	ColDataSize       Column = 602
	ColDataChecksum   Column = 603
	ColDataCreateTime Column = 604
	ColDataModifyTime Column = 605
	ColDataReplNum    Column = 606
	ColDataReplStatus Column = 607

	ColDataAttribute Column = 610
	ColDataValue     Column = 611
	ColDataUnits     Column = 612

	ColDataAccessUserID Column = 620
	ColDataAccessLevel  Column = 621
)

// User columns, joinable from either scope's access rows.
const (
	ColUserID   Column = 700
	ColUserName Column = 701
	ColUserZone Column = 702
)

// ReplStatusNewest is the replica status marker of the structurally newest
// replica of a data object. Restricting on it avoids duplicate rows for
// multi-replica items.
const ReplStatusNewest = "1"

// Condition is one normalized query condition: a column compared against a
// literal with one of the general-query operator tokens (=, like, >, <,
// n>, n<, >=, <=, n>=, n<=). The n-prefixed tokens request numeric
// comparison.
type Condition struct {
	Column  Column
	Op      string
	Literal string
}

// Render returns the condition's value part as the query interface encodes
// it, operator token included. This rendering is also the de-duplication key
// used by the predicate compiler.
func (c Condition) Render() string {
	return c.Op + " '" + c.Literal + "'"
}

// Selection names one output column and the JSON label its values
// materialize under.
type Selection struct {
	Column Column
	Label  string
}

// Query is a compiled column-oriented catalog query: an order-irrelevant set
// of conditions, the selected output columns, an optional zone scope, and
// the chunking state of a paginated execution.
type Query struct {
	Conditions []Condition
	Select     []Selection
	Zone       string

	// Continue is the continuation token of a chunked execution: zero on
	// the first submission, then whatever the previous chunk returned.
	Continue int

	// MaxRows caps the rows per chunk; zero means the client's default.
	MaxRows int
}

// Chunk is one page of query results. Rows are raw column values in
// Selection order; Continue is non-zero when more chunks may follow.
type Chunk struct {
	Rows     [][]string
	Continue int
}
