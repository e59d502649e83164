package netdef

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Payload is the serialized form handed to the engine for create/run
// calls. It is an explicit two-variant union: either pre-serialized
// bytes, or a structured definition serialized on demand. Exactly one
// variant is set.
type Payload struct {
	raw []byte
	msg any
}

// Raw wraps bytes that are already in the engine's wire format.
func Raw(b []byte) Payload {
	return Payload{raw: b}
}

// Def wraps a structured definition (NetDef, OperatorDef, PlanDef).
func Def(msg any) Payload {
	return Payload{msg: msg}
}

// Bytes is the single conversion point from either variant to the wire
// form sent to the engine.
func (p Payload) Bytes() ([]byte, error) {
	if p.raw != nil {
		return p.raw, nil
	}
	if p.msg == nil {
		return nil, fmt.Errorf("empty payload")
	}
	b, err := sonic.Marshal(p.msg)
	if err != nil {
		return nil, fmt.Errorf("serialize definition: %w", err)
	}
	return b, nil
}

// IsZero reports whether neither variant is set.
func (p Payload) IsZero() bool {
	return p.raw == nil && p.msg == nil
}
