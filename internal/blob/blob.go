package blob

import "fmt"

// Tensor is the payload exchanged with the engine for a single blob.
// The engine owns the real tensor representation; this is the wire shape.
type Tensor struct {
	Dims   []int64   `json:"dims"`
	Values []float64 `json:"values"`
}

// New creates a tensor from dims and values, validating that the
// element count matches the shape.
func New(dims []int64, values []float64) (*Tensor, error) {
	want := int64(1)
	for _, d := range dims {
		if d < 0 {
			return nil, fmt.Errorf("invalid dim %d", d)
		}
		want *= d
	}
	if want != int64(len(values)) {
		return nil, fmt.Errorf("shape %v expects %d values, got %d", dims, want, len(values))
	}
	return &Tensor{Dims: dims, Values: values}, nil
}

// Vector creates a rank-1 tensor.
func Vector(values ...float64) *Tensor {
	return &Tensor{Dims: []int64{int64(len(values))}, Values: values}
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.Values)
}

// Clone returns a deep copy. The engine boundary never shares backing
// slices between workspaces.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{
		Dims:   make([]int64, len(t.Dims)),
		Values: make([]float64, len(t.Values)),
	}
	copy(c.Dims, t.Dims)
	copy(c.Values, t.Values)
	return c
}

// Named pairs a tensor with the blob name it should be staged under.
// Model parameters are passed around as []Named.
type Named struct {
	Name   string  `json:"name"`
	Tensor *Tensor `json:"tensor"`
}
