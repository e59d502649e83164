package netdef

// DeviceOption describes which compute device an operator, net, or fed
// blob is bound to. The engine interprets it; this layer only carries it.
type DeviceOption struct {
	Type string `json:"type"` // "cpu", "cuda", ...
	ID   int    `json:"id,omitempty"`
}

// OperatorDef is one operator invocation in a net, or a standalone
// operator for single-shot execution.
type OperatorDef struct {
	Type    string         `json:"type"`
	Name    string         `json:"name,omitempty"`
	Inputs  []string       `json:"inputs,omitempty"`
	Outputs []string       `json:"outputs,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Device  *DeviceOption  `json:"device,omitempty"`
}

// NetDef is a compiled graph of operators with declared external
// inputs and outputs.
type NetDef struct {
	Name            string        `json:"name"`
	Ops             []OperatorDef `json:"ops"`
	ExternalInputs  []string      `json:"external_inputs,omitempty"`
	ExternalOutputs []string      `json:"external_outputs,omitempty"`
	Device          *DeviceOption `json:"device,omitempty"`
}

// PlanDef is an execution plan grouping nets with run counts.
type PlanDef struct {
	Name  string    `json:"name"`
	Nets  []NetDef  `json:"nets"`
	Steps []RunStep `json:"steps,omitempty"`
}

// RunStep names a net inside a plan and how many times to run it.
type RunStep struct {
	Net        string `json:"net"`
	Iterations int    `json:"iterations"`
}
