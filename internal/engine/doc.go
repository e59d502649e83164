// Package engine defines the call boundary to the native tensor
// engine and a Remote client for its HTTP surface. Everything behind
// the boundary (kernels, memory planning, device dispatch, graph
// execution) belongs to the engine daemon and is opaque to this layer.
package engine
