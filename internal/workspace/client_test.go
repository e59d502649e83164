package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradientworks/tensorbridge/internal/blob"
	"github.com/gradientworks/tensorbridge/internal/engine"
	"github.com/gradientworks/tensorbridge/internal/engine/enginetest"
	"github.com/gradientworks/tensorbridge/internal/netdef"
)

func TestWithRestoresAfterSuccess(t *testing.T) {
	fake := enginetest.New()
	c := New(fake)
	ctx := context.Background()

	entered := false
	err := c.With(ctx, "scratch", func(ctx context.Context, ops *Ops) error {
		entered = true
		name, err := fake.CurrentWorkspace(ctx)
		require.NoError(t, err)
		assert.Equal(t, "scratch", name)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, entered)

	name, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "default", name)
}

func TestWithRestoresAfterBlockFailure(t *testing.T) {
	fake := enginetest.New()
	c := New(fake)
	ctx := context.Background()

	blockErr := errors.New("block failed")
	err := c.With(ctx, "scratch", func(context.Context, *Ops) error {
		return blockErr
	})
	assert.ErrorIs(t, err, blockErr)

	name, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "default", name)
}

func TestWithSwitchFailureSkipsBlock(t *testing.T) {
	fake := enginetest.New()
	fake.FailSwitchTo = "broken"
	c := New(fake)
	ctx := context.Background()

	entered := false
	err := c.With(ctx, "broken", func(context.Context, *Ops) error {
		entered = true
		return nil
	})

	var switchErr *engine.SwitchError
	require.ErrorAs(t, err, &switchErr)
	assert.Equal(t, "broken", switchErr.Name)
	assert.False(t, entered)

	name, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "default", name)
}

func TestWithEmptyTarget(t *testing.T) {
	c := New(enginetest.New())

	err := c.With(context.Background(), "", func(context.Context, *Ops) error {
		t.Fatal("block should not run")
		return nil
	})
	assert.Error(t, err)
}

func TestWithCreatesTargetWorkspace(t *testing.T) {
	fake := enginetest.New()
	c := New(fake)

	err := c.With(context.Background(), "fresh", func(context.Context, *Ops) error {
		return nil
	})
	require.NoError(t, err)
	assert.Contains(t, fake.Workspaces(), "fresh")
}

func TestWithSerializesConcurrentGuards(t *testing.T) {
	fake := enginetest.New()
	c := New(fake)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := fmt.Sprintf("ws-%d", i)
			err := c.With(ctx, target, func(ctx context.Context, ops *Ops) error {
				// The lock is held for the whole block, so the
				// engine's pointer must be ours here.
				name, err := fake.CurrentWorkspace(ctx)
				if err != nil {
					return err
				}
				if name != target {
					return fmt.Errorf("expected %s, engine says %s", target, name)
				}
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	name, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "default", name)
}

func TestResetCreatesRootFolder(t *testing.T) {
	fake := enginetest.New()
	c := New(fake)
	ctx := context.Background()

	root := filepath.Join(t.TempDir(), "run", "workspace")
	require.NoError(t, c.Reset(ctx, root))
	assert.DirExists(t, root)

	got, err := c.RootFolder(ctx)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestResetKeepsRootWhenEmpty(t *testing.T) {
	fake := enginetest.New()
	c := New(fake)
	ctx := context.Background()

	root := t.TempDir()
	require.NoError(t, c.Reset(ctx, root))
	require.NoError(t, c.Feed(ctx, "junk", blob.Vector(1), nil))

	require.NoError(t, c.Reset(ctx, ""))

	got, err := c.RootFolder(ctx)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	blobs, err := c.Blobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, blobs)
}

func TestCreateNetPreCreatesInputBlobs(t *testing.T) {
	fake := enginetest.New()
	c := New(fake)
	ctx := context.Background()

	net := &netdef.NetDef{
		Name:           "passthrough",
		Ops:            []netdef.OperatorDef{{Type: "Copy", Inputs: []string{"in"}, Outputs: []string{"out"}}},
		ExternalInputs: []string{"in"},
	}
	require.NoError(t, c.CreateNet(ctx, netdef.Def(net), "in"))

	has, err := c.HasBlob(ctx, "in")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRunOperatorsOnceStopsAtFirstFailure(t *testing.T) {
	fake := enginetest.New()
	c := New(fake)
	ctx := context.Background()

	require.NoError(t, c.Feed(ctx, "a", blob.Vector(1, 2), nil))

	defs := []netdef.Payload{
		netdef.Def(&netdef.OperatorDef{Type: "Copy", Inputs: []string{"a"}, Outputs: []string{"b"}}),
		netdef.Def(&netdef.OperatorDef{Type: "Copy", Inputs: []string{"missing"}, Outputs: []string{"c"}}),
		netdef.Def(&netdef.OperatorDef{Type: "Copy", Inputs: []string{"a"}, Outputs: []string{"d"}}),
	}
	err := c.RunOperatorsOnce(ctx, defs)
	assert.Error(t, err)

	has, err := c.HasBlob(ctx, "b")
	require.NoError(t, err)
	assert.True(t, has)

	// The third operator never ran.
	has, err = c.HasBlob(ctx, "d")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestFeedFetchRoundTrip(t *testing.T) {
	c := New(enginetest.New())
	ctx := context.Background()

	in := blob.Vector(1, 2, 3)
	require.NoError(t, c.Feed(ctx, "x", in, &netdef.DeviceOption{Type: "cpu"}))

	out, err := c.Fetch(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, in.Values, out.Values)

	_, err = c.Fetch(ctx, "absent")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}
