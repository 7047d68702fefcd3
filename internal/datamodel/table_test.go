package datamodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocprofvis/datamodel/pkg/fingerprint"
	"github.com/rocprofvis/datamodel/pkg/types"
)

func TestTableFingerprintIdentityForIdenticalQuery(t *testing.T) {
	sql := "SELECT name FROM rocpd_region WHERE pid = 1"
	id1 := fingerprint.Table(sql)
	id2 := fingerprint.Table(sql)
	assert.Equal(t, id1, id2)

	tbl := NewQueryResultTable(id1, []string{"name"})
	assert.Equal(t, id1, tbl.ID())
}

func TestQueryResultTableAppendAndCell(t *testing.T) {
	tbl := NewQueryResultTable(types.TableId(1), []string{"name", "duration"})
	tbl.AppendRow([]TableCell{
		{Kind: types.ValueString, Str: "kernelA"},
		{Kind: types.ValueInt, Int: 42},
	})

	require.Equal(t, 1, tbl.NumRows())
	cell, ok := tbl.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, "kernelA", cell.Str)

	cell, ok = tbl.Cell(0, 1)
	require.True(t, ok)
	assert.Equal(t, int64(42), cell.Int)

	_, ok = tbl.Cell(1, 0)
	assert.False(t, ok)
}

func TestQueryResultTableColumnsAreCopied(t *testing.T) {
	cols := []string{"a", "b"}
	tbl := NewQueryResultTable(types.TableId(2), cols)
	cols[0] = "mutated"
	assert.Equal(t, "a", tbl.Columns()[0])
}
