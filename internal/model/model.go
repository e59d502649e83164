// Package model wraps a compiled network together with its parameters,
// input/output bindings, and device placement, for single-call
// inference against a workspace.
package model

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gradientworks/tensorbridge/internal/blob"
	"github.com/gradientworks/tensorbridge/internal/infrastructure/logging"
	"github.com/gradientworks/tensorbridge/internal/netdef"
	"github.com/gradientworks/tensorbridge/internal/workspace"
)

// CreationError reports that the engine rejected the network at
// construction time (malformed graph, missing declared inputs).
type CreationError struct {
	Net string
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create model net %q: %v", e.Net, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// ExecutionError reports that the engine failed to run the network.
// No outputs are returned when this occurs.
type ExecutionError struct {
	Net string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("run model net %q: %v", e.Net, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ArityError reports a Run call whose input count does not match the
// model's declared input names. Nothing is staged when this occurs.
type ArityError struct {
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("model expects %d inputs, got %d", e.Want, e.Got)
}

// Model binds a created network to its parameter blobs and ordered
// input/output names.
type Model struct {
	ws      *workspace.Client
	name    string
	inputs  []string
	outputs []string
	device  *netdef.DeviceOption
	log     *logging.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithLogger attaches a logger.
func WithLogger(log *logging.Logger) Option {
	return func(m *Model) { m.log = log.Named("model") }
}

// WithDevice overrides the net's own device placement for parameter
// and input staging.
func WithDevice(device *netdef.DeviceOption) Option {
	return func(m *Model) { m.device = device }
}

// New stages every parameter into the active workspace under the
// model's device placement, then creates the network. The network must
// be created after its parameter blobs exist.
func New(ctx context.Context, ws *workspace.Client, net *netdef.NetDef, params []blob.Named, inputs, outputs []string, opts ...Option) (*Model, error) {
	m := &Model{
		ws:      ws,
		name:    net.Name,
		inputs:  inputs,
		outputs: outputs,
		device:  net.Device,
		log:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, param := range params {
		m.log.Debug("feeding parameter", zap.String("name", param.Name))
		if err := ws.Feed(ctx, param.Name, param.Tensor, m.device); err != nil {
			return nil, &CreationError{Net: net.Name, Err: fmt.Errorf("feed parameter %q: %w", param.Name, err)}
		}
	}
	if err := ws.CreateNet(ctx, netdef.Def(net), inputs...); err != nil {
		return nil, &CreationError{Net: net.Name, Err: err}
	}
	return m, nil
}

// Name returns the network name.
func (m *Model) Name() string { return m.name }

// Run stages the inputs under their declared names, runs the network
// once, and returns the declared outputs in order. The input count
// must match the declared input names exactly; on mismatch nothing is
// staged and nothing runs.
func (m *Model) Run(ctx context.Context, inputs []*blob.Tensor) ([]*blob.Tensor, error) {
	if len(inputs) != len(m.inputs) {
		return nil, &ArityError{Want: len(m.inputs), Got: len(inputs)}
	}

	for i, t := range inputs {
		if err := m.ws.Feed(ctx, m.inputs[i], t, m.device); err != nil {
			return nil, &ExecutionError{Net: m.name, Err: fmt.Errorf("feed input %q: %w", m.inputs[i], err)}
		}
	}
	if err := m.ws.RunNet(ctx, m.name); err != nil {
		return nil, &ExecutionError{Net: m.name, Err: err}
	}

	outputs := make([]*blob.Tensor, len(m.outputs))
	for i, name := range m.outputs {
		t, err := m.ws.Fetch(ctx, name)
		if err != nil {
			return nil, &ExecutionError{Net: m.name, Err: fmt.Errorf("fetch output %q: %w", name, err)}
		}
		outputs[i] = t
	}
	return outputs, nil
}
