package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/gradientworks/tensorbridge/internal/blob"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/logging"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/monitoring"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/resilience"
	"github.com/gradientworks/tensorbridge/internal/netdef"
)

// Remote talks to the engine daemon over its HTTP surface. Every call
// goes through a circuit breaker so a dead daemon sheds calls quickly
// instead of timing out one by one. Nothing is retried: the engine's
// failures are not transient in this layer's contract.
type Remote struct {
	http    *resty.Client
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// RemoteOption configures a Remote client.
type RemoteOption func(*Remote)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) { r.http.SetTimeout(d) }
}

// WithMetrics attaches a metrics collector to the client.
func WithMetrics(m *monitoring.Metrics) RemoteOption {
	return func(r *Remote) { r.metrics = m }
}

// WithLogger attaches a logger to the client.
func WithLogger(log *logging.Logger) RemoteOption {
	return func(r *Remote) { r.log = log.Named("engine") }
}

// NewRemote creates a client for the engine daemon at addr.
func NewRemote(addr string, opts ...RemoteOption) *Remote {
	client := resty.New().
		SetBaseURL(addr).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal

	r := &Remote{
		http: client,
		log:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.breaker = resilience.New(resilience.Settings{
		Probes:   3,
		Cooldown: 10 * time.Second,
		Trip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(from, to resilience.State) {
			r.log.Warn("engine breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return r
}

// envelope is the daemon's uniform response shape.
type envelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r *Remote) call(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()
	var notFound bool
	err := r.breaker.Do(func() error {
		req := r.http.R().SetContext(ctx)
		if body != nil {
			req.SetBody(body)
		}

		var env envelope
		req.SetResult(&env)

		resp, err := req.Post(path)
		if err != nil {
			return fmt.Errorf("transport: %w", err)
		}
		if resp.StatusCode() == http.StatusNotFound || env.Code == "not_found" {
			// A missing blob is an answer from a healthy daemon, not
			// a failure the breaker should count.
			notFound = true
			return nil
		}
		if resp.IsError() {
			return fmt.Errorf("engine returned status %d", resp.StatusCode())
		}
		if !env.Success {
			msg := env.Error
			if msg == "" {
				msg = "unspecified engine failure"
			}
			return fmt.Errorf("%s", msg)
		}
		if out != nil {
			if err := sonic.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	})
	if r.metrics != nil {
		r.metrics.ObserveEngineCall(method, start, err)
	}
	if err != nil {
		return &CallError{Method: method, Err: err}
	}
	if notFound {
		return ErrNotFound
	}
	return nil
}

// SwitchWorkspace makes the named workspace current on the daemon.
func (r *Remote) SwitchWorkspace(ctx context.Context, name string, create bool) error {
	body := map[string]any{"name": name, "create": create}
	if err := r.call(ctx, "switch_workspace", "/v1/workspace/switch", body, nil); err != nil {
		return &SwitchError{Name: name, Err: err}
	}
	return nil
}

// CurrentWorkspace returns the daemon's active workspace name.
func (r *Remote) CurrentWorkspace(ctx context.Context) (string, error) {
	var out struct {
		envelope
		Name string `json:"name"`
	}
	if err := r.call(ctx, "current_workspace", "/v1/workspace/current", nil, &out); err != nil {
		return "", err
	}
	return out.Name, nil
}

// RootFolder returns the active workspace's on-disk root.
func (r *Remote) RootFolder(ctx context.Context) (string, error) {
	var out struct {
		envelope
		Root string `json:"root"`
	}
	if err := r.call(ctx, "root_folder", "/v1/workspace/root", nil, &out); err != nil {
		return "", err
	}
	return out.Root, nil
}

// ResetWorkspace clears the active workspace on the daemon.
func (r *Remote) ResetWorkspace(ctx context.Context, rootFolder string) error {
	body := map[string]any{"root": rootFolder}
	return r.call(ctx, "reset_workspace", "/v1/workspace/reset", body, nil)
}

// CreateBlob declares an empty blob in the active workspace.
func (r *Remote) CreateBlob(ctx context.Context, name string) error {
	body := map[string]any{"name": name}
	return r.call(ctx, "create_blob", "/v1/blob/create", body, nil)
}

// CreateNet compiles a network into the active workspace.
func (r *Remote) CreateNet(ctx context.Context, def netdef.Payload) error {
	return r.runDef(ctx, "create_net", "/v1/net/create", def)
}

// RunNet runs a previously created network by name.
func (r *Remote) RunNet(ctx context.Context, name string) error {
	body := map[string]any{"name": name}
	return r.call(ctx, "run_net", "/v1/net/run", body, nil)
}

// RunNetOnce compiles and runs a network a single time.
func (r *Remote) RunNetOnce(ctx context.Context, def netdef.Payload) error {
	return r.runDef(ctx, "run_net_once", "/v1/net/run-once", def)
}

// RunOperatorOnce executes one operator definition.
func (r *Remote) RunOperatorOnce(ctx context.Context, def netdef.Payload) error {
	return r.runDef(ctx, "run_operator_once", "/v1/operator/run-once", def)
}

// RunPlan executes a plan definition.
func (r *Remote) RunPlan(ctx context.Context, def netdef.Payload) error {
	return r.runDef(ctx, "run_plan", "/v1/plan/run", def)
}

func (r *Remote) runDef(ctx context.Context, method, path string, def netdef.Payload) error {
	raw, err := def.Bytes()
	if err != nil {
		return &CallError{Method: method, Err: err}
	}
	body := map[string]any{"def": string(raw)}
	return r.call(ctx, method, path, body, nil)
}

// FeedBlob stages a tensor into the active workspace.
func (r *Remote) FeedBlob(ctx context.Context, name string, t *blob.Tensor, device *netdef.DeviceOption) error {
	body := map[string]any{"name": name, "tensor": t}
	if device != nil {
		body["device"] = device
	}
	return r.call(ctx, "feed_blob", "/v1/blob/feed", body, nil)
}

// FetchBlob retrieves a tensor from the active workspace.
func (r *Remote) FetchBlob(ctx context.Context, name string) (*blob.Tensor, error) {
	var out struct {
		envelope
		Tensor *blob.Tensor `json:"tensor"`
	}
	body := map[string]any{"name": name}
	if err := r.call(ctx, "fetch_blob", "/v1/blob/fetch", body, &out); err != nil {
		return nil, err
	}
	if out.Tensor == nil {
		return nil, ErrNotFound
	}
	return out.Tensor, nil
}

// HasBlob reports whether the active workspace holds the blob.
func (r *Remote) HasBlob(ctx context.Context, name string) (bool, error) {
	var out struct {
		envelope
		Present bool `json:"present"`
	}
	body := map[string]any{"name": name}
	if err := r.call(ctx, "has_blob", "/v1/blob/has", body, &out); err != nil {
		return false, err
	}
	return out.Present, nil
}

// Blobs lists the blob names held by the active workspace.
func (r *Remote) Blobs(ctx context.Context) ([]string, error) {
	var out struct {
		envelope
		Blobs []string `json:"blobs"`
	}
	if err := r.call(ctx, "blobs", "/v1/blob/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Blobs, nil
}

var _ Engine = (*Remote)(nil)
