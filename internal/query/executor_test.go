package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedRunner serves a fixed row set in chunks of chunkSize, reproducing
// the catalog's continuation-token protocol: a full final chunk hands out a
// token whose redemption yields the no-rows sentinel.
type chunkedRunner struct {
	rows      [][]string
	chunkSize int
	calls     int
	failAt    int // 1-based call number to fail on; 0 disables
}

func (r *chunkedRunner) RunQuery(ctx context.Context, q *catalog.Query) (*catalog.Chunk, error) {
	r.calls++
	if r.failAt > 0 && r.calls == r.failAt {
		return nil, fmt.Errorf("socket reset")
	}
	offset := q.Continue
	if offset >= len(r.rows) {
		return nil, catalog.ErrNoRows
	}
	end := offset + r.chunkSize
	if end > len(r.rows) {
		end = len(r.rows)
	}
	chunk := &catalog.Chunk{Rows: r.rows[offset:end]}
	if end-offset == r.chunkSize {
		chunk.Continue = end
	}
	return chunk, nil
}

func selections() []catalog.Selection {
	return []catalog.Selection{
		{Column: catalog.ColCollName, Label: LabelCollection},
		{Column: catalog.ColDataName, Label: LabelDataObject},
	}
}

func TestExecute_NoMatches(t *testing.T) {
	runner := &chunkedRunner{chunkSize: 2}
	e := NewExecutor(runner, logging.Discard())

	results, err := e.Execute(context.Background(), &catalog.Query{Select: selections()})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, 1, runner.calls)
}

func TestExecute_ExactChunkMultiple(t *testing.T) {
	// Four rows in chunks of two: the last chunk is full, so termination
	// comes from the sentinel on a third call, not from an empty token.
	runner := &chunkedRunner{
		rows: [][]string{
			{"/z/a", "1.json"}, {"/z/a", "2.json"},
			{"/z/b", "3.json"}, {"/z/b", "4.json"},
		},
		chunkSize: 2,
	}
	e := NewExecutor(runner, logging.Discard())

	results, err := e.Execute(context.Background(), &catalog.Query{Select: selections()})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, "4.json", results[3][LabelDataObject])
}

func TestExecute_PartialFinalChunk(t *testing.T) {
	runner := &chunkedRunner{
		rows: [][]string{
			{"/z/a", "1.json"}, {"/z/a", "2.json"}, {"/z/b", "3.json"},
		},
		chunkSize: 2,
	}
	e := NewExecutor(runner, logging.Discard())

	results, err := e.Execute(context.Background(), &catalog.Query{Select: selections()})
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, 2, runner.calls)
}

func TestExecute_ErrorNamesChunk(t *testing.T) {
	runner := &chunkedRunner{
		rows: [][]string{
			{"/z/a", "1.json"}, {"/z/a", "2.json"}, {"/z/b", "3.json"},
		},
		chunkSize: 2,
		failAt:    2,
	}
	e := NewExecutor(runner, logging.Discard())

	_, err := e.Execute(context.Background(), &catalog.Query{Select: selections()})
	require.Error(t, err)
	assert.ErrorContains(t, err, "query failed at chunk 1")
	assert.ErrorContains(t, err, "socket reset")
}

func TestMaterialize_EmptyValuesOmitted(t *testing.T) {
	e := NewExecutor(&chunkedRunner{}, logging.Discard())
	sels := []catalog.Selection{
		{Column: catalog.ColDataAttribute, Label: LabelAttribute},
		{Column: catalog.ColDataValue, Label: LabelValue},
		{Column: catalog.ColDataUnits, Label: LabelUnits},
	}

	obj := e.materialize([]string{"project", "alpha", ""}, sels)
	assert.Equal(t, "project", obj[LabelAttribute])
	assert.Equal(t, "alpha", obj[LabelValue])
	_, present := obj[LabelUnits]
	assert.False(t, present)
}

func TestMaterialize_NumericColumns(t *testing.T) {
	e := NewExecutor(&chunkedRunner{}, logging.Discard())
	sels := []catalog.Selection{
		{Column: catalog.ColDataSize, Label: LabelSize},
		{Column: catalog.ColDataReplNum, Label: LabelReplicates},
	}

	obj := e.materialize([]string{"1024", "2"}, sels)
	assert.Equal(t, int64(1024), obj[LabelSize])
	assert.Equal(t, int64(2), obj[LabelReplicates])

	// Non-numeric text in a numeric column is dropped, not failed.
	obj = e.materialize([]string{"big", "2"}, sels)
	_, present := obj[LabelSize]
	assert.False(t, present)
	assert.Equal(t, int64(2), obj[LabelReplicates])
}

func TestMaterialize_Latin1Recovery(t *testing.T) {
	e := NewExecutor(&chunkedRunner{}, logging.Discard())
	sels := []catalog.Selection{{Column: catalog.ColDataName, Label: LabelDataObject}}

	obj := e.materialize([]string{"caf\xe9.json"}, sels)
	assert.Equal(t, "café.json", obj[LabelDataObject])
}

func TestRepairUTF8(t *testing.T) {
	got, ok := repairUTF8("plain")
	assert.True(t, ok)
	assert.Equal(t, "plain", got)

	got, ok = repairUTF8("caf\xe9")
	assert.True(t, ok)
	assert.Equal(t, "café", got)

	// Valid UTF-8 passes through untouched even when it contains bytes
	// above 0x7f.
	got, ok = repairUTF8("café")
	assert.True(t, ok)
	assert.Equal(t, "café", got)
}
