// Package immediate implements the interactive debugging mode: single
// operators are run inside a disposable shadow workspace so the
// caller's main workspace is never touched. Every activation gets a
// fresh temporary root folder that is torn down on Stop.
//
// Immediate mode is for debugging only. Every call pays a full
// workspace switch and restore, and anything the engine holds open in
// the shadow workspace can interfere with normal runs until Stop.
package immediate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gradientworks/tensorbridge/internal/blob"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/logging"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/monitoring"
	"github.com/gradientworks/tensorbridge/internal/netdef"
	"github.com/gradientworks/tensorbridge/internal/workspace"
)

// WorkspaceName is the fixed identifier of the shadow workspace.
const WorkspaceName = "_TENSORBRIDGE_IMMEDIATE"

// ErrNotActive is returned by delegated operations on a stopped
// session. A stopped session never silently recreates the shadow
// workspace.
var ErrNotActive = errors.New("immediate session not active")

// disclaimerOnce gates the activation disclaimer to once per process.
var disclaimerOnce sync.Once

// Session is an immediate-mode handle. Obtain one from Start; Stop
// releases the shadow workspace and its temporary root folder.
type Session struct {
	ws      *workspace.Client
	log     *logging.Logger
	metrics *monitoring.Metrics
	ack     bool

	mu         sync.Mutex
	active     bool
	rootFolder string
}

// Option configures a Session at Start.
type Option func(*Session)

// WithLogger attaches a logger.
func WithLogger(log *logging.Logger) Option {
	return func(s *Session) { s.log = log.Named("immediate") }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// AcknowledgeCaveats suppresses the activation disclaimer.
func AcknowledgeCaveats() Option {
	return func(s *Session) { s.ack = true }
}

// Start activates a new immediate session: a fresh temporary root
// folder is allocated and the shadow workspace is reset onto it.
func Start(ctx context.Context, ws *workspace.Client, opts ...Option) (*Session, error) {
	s := &Session{
		ws:  ws,
		log: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Start (re)activates the session. An already active session is torn
// down first, so calling Start twice is equivalent to Stop then Start.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		if err := s.stopLocked(ctx); err != nil {
			return fmt.Errorf("tear down previous session: %w", err)
		}
	}

	root := filepath.Join(os.TempDir(), "tensorbridge-immediate-"+uuid.NewString())
	if err := os.MkdirAll(root, 0o700); err != nil {
		return fmt.Errorf("create immediate root folder: %w", err)
	}

	err := s.ws.With(ctx, WorkspaceName, func(ctx context.Context, ops *workspace.Ops) error {
		return ops.Reset(ctx, root)
	})
	if err != nil {
		if rmErr := os.RemoveAll(root); rmErr != nil {
			s.log.Warn("failed to remove immediate root folder", zap.Error(rmErr))
		}
		return err
	}

	s.active = true
	s.rootFolder = root
	if s.metrics != nil {
		s.metrics.SessionsActive.Inc()
		s.metrics.SessionsStarted.Inc()
	}

	if !s.ack {
		disclaimerOnce.Do(func() {
			s.log.Warn("immediate mode is experimental: operators run one at a time " +
				"inside a single shadow workspace, inputs must already exist there, " +
				"and engine resources held by the shadow workspace can interfere " +
				"with normal runs until Stop is called")
		})
	}
	return nil
}

// Stop deactivates the session: the shadow workspace is reset on the
// engine and the temporary root folder is deleted. Stopping an
// inactive session is a no-op.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil
	}
	return s.stopLocked(ctx)
}

// stopLocked releases engine and disk resources. Caller holds s.mu.
func (s *Session) stopLocked(ctx context.Context) error {
	err := s.ws.With(ctx, WorkspaceName, func(ctx context.Context, ops *workspace.Ops) error {
		return ops.Reset(ctx, "")
	})
	if err != nil {
		// Engine resources were not released; stay active so the
		// caller can try again.
		return err
	}

	if err := os.RemoveAll(s.rootFolder); err != nil {
		// The session is over either way; the leaked directory is
		// only worth a warning.
		s.log.Warn("failed to remove immediate root folder",
			zap.String("path", s.rootFolder), zap.Error(err))
	}

	s.rootFolder = ""
	s.active = false
	if s.metrics != nil {
		s.metrics.SessionsActive.Dec()
	}
	return nil
}

// Active reports whether the session is active.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// RootFolder returns the session's temporary root folder, empty when
// inactive.
func (s *Session) RootFolder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootFolder
}

// Feed stages a tensor into the shadow workspace.
func (s *Session) Feed(ctx context.Context, name string, t *blob.Tensor, device *netdef.DeviceOption) error {
	return s.delegate(ctx, func(ctx context.Context, ops *workspace.Ops) error {
		return ops.Feed(ctx, name, t, device)
	})
}

// Fetch retrieves a tensor from the shadow workspace.
func (s *Session) Fetch(ctx context.Context, name string) (*blob.Tensor, error) {
	var out *blob.Tensor
	err := s.delegate(ctx, func(ctx context.Context, ops *workspace.Ops) error {
		t, err := ops.Fetch(ctx, name)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RunOperatorOnce executes one operator inside the shadow workspace.
func (s *Session) RunOperatorOnce(ctx context.Context, def netdef.Payload) error {
	return s.delegate(ctx, func(ctx context.Context, ops *workspace.Ops) error {
		return ops.RunOperatorOnce(ctx, def)
	})
}

// Blobs lists the blobs currently held by the shadow workspace.
func (s *Session) Blobs(ctx context.Context) ([]string, error) {
	var out []string
	err := s.delegate(ctx, func(ctx context.Context, ops *workspace.Ops) error {
		names, err := ops.Blobs(ctx)
		if err != nil {
			return err
		}
		out = names
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// delegate runs fn inside the shadow workspace, restoring the caller's
// workspace afterward. The session lock is held across the guarded
// block so Stop cannot interleave with a delegated operation.
func (s *Session) delegate(ctx context.Context, fn func(ctx context.Context, ops *workspace.Ops) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ErrNotActive
	}
	return s.ws.With(ctx, WorkspaceName, fn)
}
