// Package enginetest provides an in-memory engine for tests. It models
// named workspaces holding blobs and compiled nets, and executes a
// handful of trivial operators. It is test infrastructure, not an
// engine: real kernels, devices, and planning live in the daemon.
package enginetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/gradientworks/tensorbridge/internal/blob"
	"github.com/gradientworks/tensorbridge/internal/engine"
	"github.com/gradientworks/tensorbridge/internal/netdef"
)

type workspaceState struct {
	blobs map[string]*blob.Tensor
	nets  map[string]*netdef.NetDef
	root  string
}

func newWorkspaceState() *workspaceState {
	return &workspaceState{
		blobs: make(map[string]*blob.Tensor),
		nets:  make(map[string]*netdef.NetDef),
	}
}

// Fake is an in-memory engine.Engine. Workspaces are created implicitly
// on switch with create=true, matching the daemon's semantics.
type Fake struct {
	mu         sync.Mutex
	workspaces map[string]*workspaceState
	current    string

	// FailSwitchTo makes switching to the named workspace fail, for
	// exercising guard error paths.
	FailSwitchTo string
	// FailRuns makes all run calls report failure.
	FailRuns bool
	// FailCreateNet makes CreateNet report failure.
	FailCreateNet bool
}

// New creates a fake engine with a single default workspace active.
func New() *Fake {
	f := &Fake{workspaces: make(map[string]*workspaceState)}
	f.workspaces["default"] = newWorkspaceState()
	f.current = "default"
	return f
}

func (f *Fake) active() *workspaceState {
	return f.workspaces[f.current]
}

// SwitchWorkspace implements engine.Engine.
func (f *Fake) SwitchWorkspace(_ context.Context, name string, create bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "" {
		return &engine.SwitchError{Name: name, Err: fmt.Errorf("empty workspace name")}
	}
	if f.FailSwitchTo != "" && name == f.FailSwitchTo {
		return &engine.SwitchError{Name: name, Err: fmt.Errorf("injected switch failure")}
	}
	if _, ok := f.workspaces[name]; !ok {
		if !create {
			return &engine.SwitchError{Name: name, Err: fmt.Errorf("workspace does not exist")}
		}
		f.workspaces[name] = newWorkspaceState()
	}
	f.current = name
	return nil
}

// CurrentWorkspace implements engine.Engine.
func (f *Fake) CurrentWorkspace(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

// RootFolder implements engine.Engine.
func (f *Fake) RootFolder(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active().root, nil
}

// ResetWorkspace implements engine.Engine. The active workspace loses
// all blobs and nets; a non-empty rootFolder replaces the root setting.
func (f *Fake) ResetWorkspace(_ context.Context, rootFolder string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws := newWorkspaceState()
	if rootFolder != "" {
		ws.root = rootFolder
	} else {
		ws.root = f.active().root
	}
	f.workspaces[f.current] = ws
	return nil
}

// CreateBlob implements engine.Engine.
func (f *Fake) CreateBlob(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.active().blobs[name]; !ok {
		f.active().blobs[name] = &blob.Tensor{}
	}
	return nil
}

// CreateNet implements engine.Engine.
func (f *Fake) CreateNet(_ context.Context, def netdef.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreateNet {
		return &engine.CallError{Method: "create_net", Err: fmt.Errorf("injected create failure")}
	}
	net, err := decodeNet(def)
	if err != nil {
		return &engine.CallError{Method: "create_net", Err: err}
	}
	for _, in := range net.ExternalInputs {
		if _, ok := f.active().blobs[in]; !ok {
			return &engine.CallError{
				Method: "create_net",
				Err:    fmt.Errorf("declared input %q not present", in),
			}
		}
	}
	f.active().nets[net.Name] = net
	return nil
}

// RunNet implements engine.Engine.
func (f *Fake) RunNet(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRuns {
		return &engine.CallError{Method: "run_net", Err: fmt.Errorf("injected run failure")}
	}
	net, ok := f.active().nets[name]
	if !ok {
		return &engine.CallError{Method: "run_net", Err: fmt.Errorf("net %q not created", name)}
	}
	return f.runOps(net.Ops)
}

// RunNetOnce implements engine.Engine.
func (f *Fake) RunNetOnce(_ context.Context, def netdef.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRuns {
		return &engine.CallError{Method: "run_net_once", Err: fmt.Errorf("injected run failure")}
	}
	net, err := decodeNet(def)
	if err != nil {
		return &engine.CallError{Method: "run_net_once", Err: err}
	}
	return f.runOps(net.Ops)
}

// RunOperatorOnce implements engine.Engine.
func (f *Fake) RunOperatorOnce(_ context.Context, def netdef.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRuns {
		return &engine.CallError{Method: "run_operator_once", Err: fmt.Errorf("injected run failure")}
	}
	op, err := decode[netdef.OperatorDef](def)
	if err != nil {
		return &engine.CallError{Method: "run_operator_once", Err: err}
	}
	return f.runOps([]netdef.OperatorDef{*op})
}

// RunPlan implements engine.Engine.
func (f *Fake) RunPlan(_ context.Context, def netdef.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRuns {
		return &engine.CallError{Method: "run_plan", Err: fmt.Errorf("injected run failure")}
	}
	plan, err := decode[netdef.PlanDef](def)
	if err != nil {
		return &engine.CallError{Method: "run_plan", Err: err}
	}
	nets := make(map[string]*netdef.NetDef, len(plan.Nets))
	for i := range plan.Nets {
		nets[plan.Nets[i].Name] = &plan.Nets[i]
	}
	steps := plan.Steps
	if len(steps) == 0 {
		for _, n := range plan.Nets {
			steps = append(steps, netdef.RunStep{Net: n.Name, Iterations: 1})
		}
	}
	for _, step := range steps {
		net, ok := nets[step.Net]
		if !ok {
			return &engine.CallError{Method: "run_plan", Err: fmt.Errorf("step references unknown net %q", step.Net)}
		}
		iters := step.Iterations
		if iters <= 0 {
			iters = 1
		}
		for i := 0; i < iters; i++ {
			if err := f.runOps(net.Ops); err != nil {
				return err
			}
		}
	}
	return nil
}

// FeedBlob implements engine.Engine.
func (f *Fake) FeedBlob(_ context.Context, name string, t *blob.Tensor, _ *netdef.DeviceOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t == nil {
		return &engine.CallError{Method: "feed_blob", Err: fmt.Errorf("nil tensor")}
	}
	f.active().blobs[name] = t.Clone()
	return nil
}

// FetchBlob implements engine.Engine.
func (f *Fake) FetchBlob(_ context.Context, name string) (*blob.Tensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.active().blobs[name]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return t.Clone(), nil
}

// HasBlob implements engine.Engine.
func (f *Fake) HasBlob(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.active().blobs[name]
	return ok, nil
}

// Blobs implements engine.Engine.
func (f *Fake) Blobs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.active().blobs))
	for name := range f.active().blobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Workspaces returns all workspace names, for test assertions.
func (f *Fake) Workspaces() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.workspaces))
	for name := range f.workspaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// runOps executes operators against the active workspace. Caller holds
// the lock.
func (f *Fake) runOps(ops []netdef.OperatorDef) error {
	for _, op := range ops {
		if err := f.runOp(op); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) runOp(op netdef.OperatorDef) error {
	fail := func(format string, args ...any) error {
		return &engine.CallError{Method: "run_operator", Err: fmt.Errorf(format, args...)}
	}
	ws := f.active()

	switch op.Type {
	case "Copy":
		if len(op.Inputs) != 1 || len(op.Outputs) != 1 {
			return fail("Copy expects 1 input and 1 output")
		}
		src, ok := ws.blobs[op.Inputs[0]]
		if !ok {
			return fail("Copy input %q missing", op.Inputs[0])
		}
		ws.blobs[op.Outputs[0]] = src.Clone()

	case "Sum":
		if len(op.Inputs) == 0 || len(op.Outputs) != 1 {
			return fail("Sum expects inputs and 1 output")
		}
		first, ok := ws.blobs[op.Inputs[0]]
		if !ok {
			return fail("Sum input %q missing", op.Inputs[0])
		}
		out := first.Clone()
		for _, name := range op.Inputs[1:] {
			t, ok := ws.blobs[name]
			if !ok {
				return fail("Sum input %q missing", name)
			}
			if t.Len() != out.Len() {
				return fail("Sum input %q has mismatched length", name)
			}
			floats.Add(out.Values, t.Values)
		}
		ws.blobs[op.Outputs[0]] = out

	case "Scale":
		if len(op.Inputs) != 1 || len(op.Outputs) != 1 {
			return fail("Scale expects 1 input and 1 output")
		}
		src, ok := ws.blobs[op.Inputs[0]]
		if !ok {
			return fail("Scale input %q missing", op.Inputs[0])
		}
		scale := 1.0
		if v, ok := op.Args["scale"]; ok {
			s, ok := v.(float64)
			if !ok {
				return fail("Scale arg must be a number")
			}
			scale = s
		}
		out := src.Clone()
		floats.Scale(scale, out.Values)
		ws.blobs[op.Outputs[0]] = out

	case "ConstantFill":
		if len(op.Outputs) != 1 {
			return fail("ConstantFill expects 1 output")
		}
		value := 0.0
		if v, ok := op.Args["value"].(float64); ok {
			value = v
		}
		length := 1
		if v, ok := op.Args["length"].(float64); ok {
			length = int(v)
		}
		values := make([]float64, length)
		for i := range values {
			values[i] = value
		}
		ws.blobs[op.Outputs[0]] = blob.Vector(values...)

	default:
		return fail("unsupported operator type %q", op.Type)
	}
	return nil
}

var _ engine.Engine = (*Fake)(nil)
