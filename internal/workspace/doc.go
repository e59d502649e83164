// Package workspace drives the engine's named execution contexts.
//
// The engine keeps one process-wide "current workspace" pointer. Client
// serializes every operation that touches that pointer behind a single
// exclusive lock, and With implements the scoped switch: save the
// current name, switch to a target, run a block, restore the previous
// workspace on every exit path.
package workspace
