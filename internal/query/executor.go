package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/rs/zerolog"
)

// Executor drives the chunked evaluation of compiled queries and
// materializes raw rows into labeled JSON objects.
type Executor struct {
	runner catalog.QueryRunner
	log    zerolog.Logger
}

// NewExecutor creates an executor over a query runner.
func NewExecutor(runner catalog.QueryRunner, log zerolog.Logger) *Executor {
	return &Executor{runner: runner, log: log.With().Str("component", "query").Logger()}
}

// Execute runs a compiled query to completion and returns the materialized
// rows. The catalog reuses one sentinel for "matched nothing" and "end of
// chunks"; both are terminal, not errors, and are told apart only by
// whether a chunk was already obtained. A query that matches nothing
// returns an empty (non-nil) slice.
func (e *Executor) Execute(ctx context.Context, q *catalog.Query) ([]map[string]interface{}, error) {
	results := []map[string]interface{}{}
	for chunkIndex := 0; ; chunkIndex++ {
		chunk, err := e.runner.RunQuery(ctx, q)
		if errors.Is(err, catalog.ErrNoRows) {
			// First submission: the query matched nothing. Later
			// submission: the previous chunk was the last.
			return results, nil
		}
		if err != nil {
			return nil, fmt.Errorf("query failed at chunk %d: %w", chunkIndex, err)
		}
		for _, row := range chunk.Rows {
			results = append(results, e.materialize(row, q.Select))
		}
		if chunk.Continue == 0 {
			return results, nil
		}
		q.Continue = chunk.Continue
	}
}

// materialize converts one raw row into a JSON object keyed by the declared
// labels. Empty string values are omitted entirely (the catalog encodes an
// absent AVU unit as an empty string); numeric columns become JSON
// integers; text is validated as UTF-8 with a Latin-1 recovery pass, and a
// value that still does not decode is dropped from the row with a warning
// rather than failing the query.
func (e *Executor) materialize(row []string, selects []catalog.Selection) map[string]interface{} {
	obj := make(map[string]interface{}, len(selects))
	for i, sel := range selects {
		if i >= len(row) || row[i] == "" {
			continue
		}
		raw := row[i]

		if numericColumn(sel.Column) {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				e.log.Warn().Str("label", sel.Label).Str("value", raw).
					Msg("dropped non-numeric value from numeric column")
				continue
			}
			obj[sel.Label] = n
			continue
		}

		value, ok := repairUTF8(raw)
		if !ok {
			e.log.Warn().Str("label", sel.Label).
				Msg("dropped value that is not valid UTF-8 even after Latin-1 recovery")
			continue
		}
		obj[sel.Label] = value
	}
	return obj
}

func numericColumn(c catalog.Column) bool {
	return c == catalog.ColDataSize || c == catalog.ColDataReplNum
}

// repairUTF8 passes valid UTF-8 through byte-for-byte. Anything else is
// reinterpreted as an 8-bit Latin-1 string and re-encoded, which preserves
// the original code points for genuinely Latin-1 data.
func repairUTF8(s string) (string, bool) {
	if utf8.ValidString(s) {
		return s, true
	}
	runes := make([]rune, 0, len(s))
	for _, b := range []byte(s) {
		runes = append(runes, rune(b))
	}
	recovered := string(runes)
	if !utf8.ValidString(recovered) {
		return "", false
	}
	return recovered, true
}
