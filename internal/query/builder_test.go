package query

import (
	"testing"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOperator(t *testing.T) {
	op, err := normalizeOperator("")
	require.NoError(t, err)
	assert.Equal(t, "=", op)

	for _, valid := range []string{"=", "like", ">", "<", "n>", "n<", ">=", "<=", "n>=", "n<="} {
		op, err := normalizeOperator(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, op)
	}

	_, err = normalizeOperator("!=")
	require.Error(t, err)
	assert.ErrorContains(t, err, `invalid operator "!="`)
	assert.ErrorContains(t, err, "=, like, >, <, n>, n<, >=, <=, n>=, n<=")
}

func TestBuilder_ConditionDedupe(t *testing.T) {
	b := NewBuilder()
	b.Condition(catalog.ColDataAttribute, "=", "project")
	b.Condition(catalog.ColDataAttribute, "=", "project")
	assert.Equal(t, 1, b.ConditionCount())

	// Same column, different operator or literal: distinct conditions.
	b.Condition(catalog.ColDataAttribute, "like", "project")
	b.Condition(catalog.ColDataAttribute, "=", "study")
	assert.Equal(t, 3, b.ConditionCount())
}

func TestBuilder_SelectDedupe(t *testing.T) {
	b := NewBuilder()
	b.Select(catalog.ColCollName, "collection")
	b.Select(catalog.ColCollName, "collection")
	b.Select(catalog.ColDataName, "data_object")

	q := b.Build()
	require.Len(t, q.Select, 2)
	assert.Equal(t, "collection", q.Select[0].Label)
	assert.Equal(t, "data_object", q.Select[1].Label)
}

func TestBuilder_ZonePrecedence(t *testing.T) {
	b := NewBuilder()
	b.Zone("fromPath")
	b.Zone("ignored")
	assert.Equal(t, "fromPath", b.Build().Zone)

	b.SetZone("explicit")
	assert.Equal(t, "explicit", b.Build().Zone)
}

func TestCondition_Render(t *testing.T) {
	c := catalog.Condition{Column: catalog.ColDataValue, Op: "like", Literal: "alpha%"}
	assert.Equal(t, "like 'alpha%'", c.Render())
}
