package driver

import "sync"

var (
	builtinMu sync.Mutex
	builtins  []func() Driver
)

// RegisterBuiltin records a driver constructor for NewBuiltinRegistry.
// Driver packages call this from init(); the blank-import list in
// internal/registry decides which drivers a build carries.
func RegisterBuiltin(f func() Driver) {
	builtinMu.Lock()
	builtins = append(builtins, f)
	builtinMu.Unlock()
}

// NewBuiltinRegistry builds a registry holding every registered builtin
// driver, in registration order.
func NewBuiltinRegistry() (*Registry, error) {
	builtinMu.Lock()
	factories := make([]func() Driver, len(builtins))
	copy(factories, builtins)
	builtinMu.Unlock()

	r := NewRegistry()
	for _, f := range factories {
		if err := r.Register(f()); err != nil {
			return nil, err
		}
	}
	return r, nil
}
