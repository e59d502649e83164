package enginetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradientworks/tensorbridge/internal/blob"
	"github.com/gradientworks/tensorbridge/internal/engine"
	"github.com/gradientworks/tensorbridge/internal/netdef"
)

func TestSwitchCreatesAndIsolatesWorkspaces(t *testing.T) {
	f := New()
	ctx := context.Background()

	require.NoError(t, f.FeedBlob(ctx, "x", blob.Vector(1), nil))
	require.NoError(t, f.SwitchWorkspace(ctx, "other", true))

	has, err := f.HasBlob(ctx, "x")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, f.SwitchWorkspace(ctx, "default", false))
	has, err = f.HasBlob(ctx, "x")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSwitchWithoutCreateFailsForUnknown(t *testing.T) {
	f := New()

	err := f.SwitchWorkspace(context.Background(), "nowhere", false)

	var switchErr *engine.SwitchError
	assert.ErrorAs(t, err, &switchErr)
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name string
		op   netdef.OperatorDef
		want []float64
	}{
		{
			name: "Sum adds elementwise",
			op:   netdef.OperatorDef{Type: "Sum", Inputs: []string{"a", "b"}, Outputs: []string{"out"}},
			want: []float64{5, 7},
		},
		{
			name: "Scale multiplies by arg",
			op:   netdef.OperatorDef{Type: "Scale", Inputs: []string{"a"}, Outputs: []string{"out"}, Args: map[string]any{"scale": 2.0}},
			want: []float64{2, 4},
		},
		{
			name: "Copy clones",
			op:   netdef.OperatorDef{Type: "Copy", Inputs: []string{"a"}, Outputs: []string{"out"}},
			want: []float64{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New()
			ctx := context.Background()
			require.NoError(t, f.FeedBlob(ctx, "a", blob.Vector(1, 2), nil))
			require.NoError(t, f.FeedBlob(ctx, "b", blob.Vector(4, 5), nil))

			require.NoError(t, f.RunOperatorOnce(ctx, netdef.Def(&tt.op)))

			out, err := f.FetchBlob(ctx, "out")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Values)
		})
	}
}

func TestUnsupportedOperator(t *testing.T) {
	f := New()
	err := f.RunOperatorOnce(context.Background(), netdef.Def(&netdef.OperatorDef{Type: "Conv"}))
	assert.Error(t, err)
}

func TestRunPlanHonorsIterations(t *testing.T) {
	f := New()
	ctx := context.Background()
	require.NoError(t, f.FeedBlob(ctx, "x", blob.Vector(1), nil))

	plan := &netdef.PlanDef{
		Name: "double-thrice",
		Nets: []netdef.NetDef{
			{
				Name: "double",
				Ops: []netdef.OperatorDef{
					{Type: "Scale", Inputs: []string{"x"}, Outputs: []string{"x"}, Args: map[string]any{"scale": 2.0}},
				},
			},
		},
		Steps: []netdef.RunStep{{Net: "double", Iterations: 3}},
	}
	require.NoError(t, f.RunPlan(ctx, netdef.Def(plan)))

	out, err := f.FetchBlob(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{8}, out.Values)
}

func TestCreateNetRequiresDeclaredInputs(t *testing.T) {
	f := New()
	ctx := context.Background()

	net := &netdef.NetDef{Name: "n", ExternalInputs: []string{"missing"}}
	assert.Error(t, f.CreateNet(ctx, netdef.Def(net)))

	require.NoError(t, f.CreateBlob(ctx, "missing"))
	assert.NoError(t, f.CreateNet(ctx, netdef.Def(net)))
	assert.NoError(t, f.RunNet(ctx, "n"))
}

func TestFetchClonesStorage(t *testing.T) {
	f := New()
	ctx := context.Background()
	require.NoError(t, f.FeedBlob(ctx, "x", blob.Vector(1, 2), nil))

	out, err := f.FetchBlob(ctx, "x")
	require.NoError(t, err)
	out.Values[0] = 99

	again, err := f.FetchBlob(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, again.Values)
}
