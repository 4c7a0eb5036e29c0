package dxvm

import (
	"fmt"

	"github.com/dnxscript/dxvm/value"
)

// FunctionHandler is the host's implementation of call_external (§4.3,
// §6): dispatch a named external function against positional arguments
// and return its result. Argument and registration validation beyond
// this bare interface are explicitly out of scope (§1) — the host owns
// that.
type FunctionHandler interface {
	Invoke(name string, args []value.Value) (value.Value, error)
}

// NativeFunc pairs a name with its callback, mirroring the corpus's
// name/func registry shape (taivm.NativeFunc) rather than inventing a
// new one.
type NativeFunc struct {
	Name string
	Func func(args []value.Value) (value.Value, error)
}

// Registry is a convenience FunctionHandler keyed by function name. It
// is offered purely as a default — §1 scopes external-function
// registration itself as a host collaborator concern, so hosts remain
// free to implement FunctionHandler directly instead.
type Registry struct {
	funcs map[string]NativeFunc
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]NativeFunc)}
}

// Register adds or replaces the function named name.
func (r *Registry) Register(name string, fn func(args []value.Value) (value.Value, error)) {
	r.funcs[name] = NativeFunc{Name: name, Func: fn}
}

// Invoke implements FunctionHandler.
func (r *Registry) Invoke(name string, args []value.Value) (value.Value, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return value.Value{}, fmt.Errorf("dxvm: external function %q: %w", name, ErrNotFound)
	}
	return fn.Func(args)
}
