package engine

import (
	"context"

	"github.com/gradientworks/tensorbridge/internal/blob"
	"github.com/gradientworks/tensorbridge/internal/netdef"
)

// Engine is the call boundary to the native tensor-computation engine.
// The engine owns workspaces, blobs, compiled nets, and all execution;
// this layer only drives it. All calls are synchronous and block until
// the engine responds.
type Engine interface {
	// SwitchWorkspace makes the named workspace current. With create
	// set, an absent workspace is created; without it, switching to an
	// absent workspace fails.
	SwitchWorkspace(ctx context.Context, name string, create bool) error

	// CurrentWorkspace returns the name of the active workspace.
	CurrentWorkspace(ctx context.Context) (string, error)

	// RootFolder returns the on-disk root of the active workspace.
	RootFolder(ctx context.Context) (string, error)

	// ResetWorkspace clears the active workspace. An empty rootFolder
	// keeps the current root setting.
	ResetWorkspace(ctx context.Context, rootFolder string) error

	// CreateBlob declares an empty blob in the active workspace.
	CreateBlob(ctx context.Context, name string) error

	// CreateNet compiles a network into the active workspace.
	CreateNet(ctx context.Context, def netdef.Payload) error

	// RunNet runs a previously created network by name.
	RunNet(ctx context.Context, name string) error

	// RunNetOnce compiles and runs a network a single time.
	RunNetOnce(ctx context.Context, def netdef.Payload) error

	// RunOperatorOnce executes one operator definition.
	RunOperatorOnce(ctx context.Context, def netdef.Payload) error

	// RunPlan executes a plan definition.
	RunPlan(ctx context.Context, def netdef.Payload) error

	// FeedBlob stages a named value into the active workspace. A nil
	// device leaves placement to the engine.
	FeedBlob(ctx context.Context, name string, t *blob.Tensor, device *netdef.DeviceOption) error

	// FetchBlob retrieves a named value from the active workspace.
	// Returns ErrNotFound if the blob does not exist.
	FetchBlob(ctx context.Context, name string) (*blob.Tensor, error)

	// HasBlob reports whether the active workspace holds the blob.
	HasBlob(ctx context.Context, name string) (bool, error)

	// Blobs lists the blob names held by the active workspace.
	Blobs(ctx context.Context) ([]string, error)
}
