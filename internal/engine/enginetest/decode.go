package enginetest

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/gradientworks/tensorbridge/internal/netdef"
)

func decode[T any](def netdef.Payload) (*T, error) {
	raw, err := def.Bytes()
	if err != nil {
		return nil, err
	}
	var out T
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	return &out, nil
}

func decodeNet(def netdef.Payload) (*netdef.NetDef, error) {
	net, err := decode[netdef.NetDef](def)
	if err != nil {
		return nil, err
	}
	if net.Name == "" {
		return nil, fmt.Errorf("net definition missing name")
	}
	return net, nil
}
