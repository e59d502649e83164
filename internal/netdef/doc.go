// Package netdef carries the serialized definitions (operators, nets,
// plans, device placement) handed to the engine.
package netdef
