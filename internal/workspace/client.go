package workspace

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/gradientworks/tensorbridge/internal/blob"
	"github.com/gradientworks/tensorbridge/internal/engine"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/logging"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/monitoring"
	"github.com/gradientworks/tensorbridge/internal/netdef"
)

// Client drives the engine's workspace surface. The engine holds a
// single process-wide "current workspace" pointer, so every operation
// that reads or moves that pointer serializes behind one exclusive
// lock; a scoped switch holds the lock for its entire block.
type Client struct {
	engine  engine.Engine
	log     *logging.Logger
	metrics *monitoring.Metrics
	mu      sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithLogger attaches a logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) { c.log = log.Named("workspace") }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a workspace client over an engine.
func New(eng engine.Engine, opts ...Option) *Client {
	c := &Client{
		engine: eng,
		log:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ops exposes workspace operations inside a scoped switch. The guard's
// lock is already held, so Ops methods call the engine directly.
type Ops struct {
	c *Client
}

// With saves the current workspace name, switches to target (creating
// it if absent), runs fn, and unconditionally restores the previous
// workspace afterward, even when fn fails. If the switch itself fails,
// fn never runs and the original workspace stays active.
func (c *Client) With(ctx context.Context, target string, fn func(ctx context.Context, ops *Ops) error) error {
	if target == "" {
		return fmt.Errorf("empty target workspace name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, err := c.engine.CurrentWorkspace(ctx)
	if err != nil {
		return fmt.Errorf("read current workspace: %w", err)
	}
	if err := c.engine.SwitchWorkspace(ctx, target, true); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.GuardEntries.Inc()
	}

	fnErr := fn(ctx, &Ops{c: c})

	if err := c.engine.SwitchWorkspace(ctx, prev, false); err != nil {
		if fnErr != nil {
			// The block failure is the primary error; the failed
			// restore still has to be visible somewhere.
			c.log.Error("failed to restore workspace",
				zap.String("workspace", prev), zap.Error(err))
			return fnErr
		}
		return fmt.Errorf("restore workspace %q: %w", prev, err)
	}
	return fnErr
}

// Switch makes the named workspace current, creating it if requested.
func (c *Client) Switch(ctx context.Context, name string, create bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.SwitchWorkspace(ctx, name, create)
}

// Current returns the name of the active workspace.
func (c *Client) Current(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.CurrentWorkspace(ctx)
}

// RootFolder returns the active workspace's on-disk root.
func (c *Client) RootFolder(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.RootFolder(ctx)
}

// Reset clears the active workspace. A non-empty rootFolder is created
// on disk if missing and becomes the workspace root; an empty one keeps
// the current root setting.
func (c *Client) Reset(ctx context.Context, rootFolder string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (&Ops{c: c}).Reset(ctx, rootFolder)
}

// CreateNet pre-creates the declared input blobs, then compiles the
// network into the active workspace.
func (c *Client) CreateNet(ctx context.Context, def netdef.Payload, inputBlobs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (&Ops{c: c}).CreateNet(ctx, def, inputBlobs...)
}

// RunNet runs a previously created network by name.
func (c *Client) RunNet(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.RunNet(ctx, name)
}

// RunNetOnce compiles and runs a network a single time.
func (c *Client) RunNetOnce(ctx context.Context, def netdef.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.RunNetOnce(ctx, def)
}

// RunOperatorOnce executes one operator definition.
func (c *Client) RunOperatorOnce(ctx context.Context, def netdef.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.RunOperatorOnce(ctx, def)
}

// RunOperatorsOnce executes operator definitions in order, stopping at
// the first failure.
func (c *Client) RunOperatorsOnce(ctx context.Context, defs []netdef.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, def := range defs {
		if err := c.engine.RunOperatorOnce(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

// RunPlan executes a plan definition.
func (c *Client) RunPlan(ctx context.Context, def netdef.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.RunPlan(ctx, def)
}

// Feed stages a tensor into the active workspace.
func (c *Client) Feed(ctx context.Context, name string, t *blob.Tensor, device *netdef.DeviceOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.FeedBlob(ctx, name, t, device)
}

// Fetch retrieves a tensor from the active workspace.
func (c *Client) Fetch(ctx context.Context, name string) (*blob.Tensor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.FetchBlob(ctx, name)
}

// HasBlob reports whether the active workspace holds the blob.
func (c *Client) HasBlob(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.HasBlob(ctx, name)
}

// Blobs lists the blob names held by the active workspace.
func (c *Client) Blobs(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Blobs(ctx)
}

// Reset clears the workspace active inside the guard.
func (o *Ops) Reset(ctx context.Context, rootFolder string) error {
	if rootFolder != "" {
		if err := os.MkdirAll(rootFolder, 0o755); err != nil {
			return fmt.Errorf("create root folder: %w", err)
		}
	}
	return o.c.engine.ResetWorkspace(ctx, rootFolder)
}

// CreateNet pre-creates declared input blobs, then compiles the net.
func (o *Ops) CreateNet(ctx context.Context, def netdef.Payload, inputBlobs ...string) error {
	for _, name := range inputBlobs {
		if err := o.c.engine.CreateBlob(ctx, name); err != nil {
			return err
		}
	}
	return o.c.engine.CreateNet(ctx, def)
}

// Feed stages a tensor into the workspace active inside the guard.
func (o *Ops) Feed(ctx context.Context, name string, t *blob.Tensor, device *netdef.DeviceOption) error {
	return o.c.engine.FeedBlob(ctx, name, t, device)
}

// Fetch retrieves a tensor from the workspace active inside the guard.
func (o *Ops) Fetch(ctx context.Context, name string) (*blob.Tensor, error) {
	return o.c.engine.FetchBlob(ctx, name)
}

// Blobs lists blob names in the workspace active inside the guard.
func (o *Ops) Blobs(ctx context.Context) ([]string, error) {
	return o.c.engine.Blobs(ctx)
}

// RunOperatorOnce executes one operator inside the guard.
func (o *Ops) RunOperatorOnce(ctx context.Context, def netdef.Payload) error {
	return o.c.engine.RunOperatorOnce(ctx, def)
}

// RunNet runs a created network by name inside the guard.
func (o *Ops) RunNet(ctx context.Context, name string) error {
	return o.c.engine.RunNet(ctx, name)
}
