package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradientworks/tensorbridge/internal/blob"
	"github.com/gradientworks/tensorbridge/internal/engine/enginetest"
	"github.com/gradientworks/tensorbridge/internal/netdef"
	"github.com/gradientworks/tensorbridge/internal/workspace"
)

func copyNet() *netdef.NetDef {
	return &netdef.NetDef{
		Name: "copynet",
		Ops: []netdef.OperatorDef{
			{Type: "Copy", Inputs: []string{"in"}, Outputs: []string{"out"}},
		},
		ExternalInputs:  []string{"in"},
		ExternalOutputs: []string{"out"},
	}
}

func TestNewFeedsParametersAndCreatesNet(t *testing.T) {
	fake := enginetest.New()
	ws := workspace.New(fake)
	ctx := context.Background()

	params := []blob.Named{
		{Name: "w", Tensor: blob.Vector(0.5)},
		{Name: "b", Tensor: blob.Vector(0.1)},
	}
	m, err := New(ctx, ws, copyNet(), params, []string{"in"}, []string{"out"})
	require.NoError(t, err)
	assert.Equal(t, "copynet", m.Name())

	for _, name := range []string{"w", "b"} {
		has, err := ws.HasBlob(ctx, name)
		require.NoError(t, err)
		assert.True(t, has, "parameter %s should be staged", name)
	}
}

func TestRunCopiesInputToOutput(t *testing.T) {
	ws := workspace.New(enginetest.New())
	ctx := context.Background()

	m, err := New(ctx, ws, copyNet(), nil, []string{"in"}, []string{"out"})
	require.NoError(t, err)

	outputs, err := m.Run(ctx, []*blob.Tensor{blob.Vector(5, 6)})
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, []float64{5, 6}, outputs[0].Values)
}

func TestRunArityMismatchStagesNothing(t *testing.T) {
	ws := workspace.New(enginetest.New())
	ctx := context.Background()

	m, err := New(ctx, ws, copyNet(), nil, []string{"in"}, []string{"out"})
	require.NoError(t, err)

	_, err = m.Run(ctx, []*blob.Tensor{blob.Vector(1), blob.Vector(2)})

	var arityErr *ArityError
	require.ErrorAs(t, err, &arityErr)
	assert.Equal(t, 1, arityErr.Want)
	assert.Equal(t, 2, arityErr.Got)

	// Nothing was fed: "in" still holds the empty placeholder blob
	// created alongside the net.
	in, err := ws.Fetch(ctx, "in")
	require.NoError(t, err)
	assert.Zero(t, in.Len())

	// And the net never ran.
	has, err := ws.HasBlob(ctx, "out")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRunEmptyInputsAgainstZeroInputModel(t *testing.T) {
	ws := workspace.New(enginetest.New())
	ctx := context.Background()

	net := &netdef.NetDef{
		Name: "constnet",
		Ops: []netdef.OperatorDef{
			{Type: "ConstantFill", Outputs: []string{"out"}, Args: map[string]any{"value": 3.0, "length": 2.0}},
		},
		ExternalOutputs: []string{"out"},
	}
	m, err := New(ctx, ws, net, nil, nil, []string{"out"})
	require.NoError(t, err)

	outputs, err := m.Run(ctx, nil)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, []float64{3, 3}, outputs[0].Values)
}

func TestNewReturnsCreationErrorWhenEngineRejects(t *testing.T) {
	fake := enginetest.New()
	fake.FailCreateNet = true
	ws := workspace.New(fake)

	_, err := New(context.Background(), ws, copyNet(), nil, []string{"in"}, []string{"out"})

	var creationErr *CreationError
	require.ErrorAs(t, err, &creationErr)
	assert.Equal(t, "copynet", creationErr.Net)
}

func TestRunReturnsExecutionErrorOnEngineFailure(t *testing.T) {
	fake := enginetest.New()
	ws := workspace.New(fake)
	ctx := context.Background()

	m, err := New(ctx, ws, copyNet(), nil, []string{"in"}, []string{"out"})
	require.NoError(t, err)

	fake.FailRuns = true
	outputs, err := m.Run(ctx, []*blob.Tensor{blob.Vector(1)})

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Nil(t, outputs)
}
