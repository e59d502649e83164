package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by FetchBlob when the blob does not exist in
// the active workspace.
var ErrNotFound = errors.New("blob not found")

// SwitchError reports a failure to enter a workspace. The previously
// active workspace is still current when this is returned.
type SwitchError struct {
	Name string
	Err  error
}

func (e *SwitchError) Error() string {
	return fmt.Sprintf("switch to workspace %q: %v", e.Name, e.Err)
}

func (e *SwitchError) Unwrap() error { return e.Err }

// CallError reports an engine call that the engine rejected or that
// failed in transport. Method is the boundary operation name.
type CallError struct {
	Method string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Method, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }
