package datamodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocprofvis/datamodel/pkg/types"
)

func TestFlowTraceExistsDedup(t *testing.T) {
	ft := NewFlowTraceTable()
	from := types.NewEventId(1, types.OpLaunch)
	to := types.NewEventId(2, types.OpDispatch)

	assert.False(t, ft.Exists(from))
	ft.AddLink(FlowLink{From: from, To: to, Name: "launch"})
	assert.True(t, ft.Exists(from))
}

func TestFlowTraceLinksPreservesFanOut(t *testing.T) {
	ft := NewFlowTraceTable()
	from := types.NewEventId(1, types.OpLaunch)
	ft.AddLink(FlowLink{From: from, To: types.NewEventId(2, types.OpDispatch), Name: "a"})
	ft.AddLink(FlowLink{From: from, To: types.NewEventId(3, types.OpDispatch), Name: "b"})

	links, ok := ft.Links(from)
	require.True(t, ok)
	assert.Len(t, links, 2)
}

func TestFlowTraceLinksUnknownIdIsMiss(t *testing.T) {
	ft := NewFlowTraceTable()
	_, ok := ft.Links(types.NewEventId(99, types.OpLaunch))
	assert.False(t, ok)
}
