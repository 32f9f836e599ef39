package topology

import (
	"fmt"
	"sort"
	"sync"
)

// Factory maps topology types to compilers
type Factory struct {
	mu        sync.RWMutex
	compilers map[Type]Compiler
}

// NewFactory returns a factory with the four built-in compilers registered
func NewFactory() *Factory {
	f := &Factory{compilers: make(map[Type]Compiler)}
	f.Register(SingleCompiler{})
	f.Register(StarCompiler{})
	f.Register(BlackboardCompiler{})
	f.Register(MeshCompiler{})
	return f
}

// Register adds or replaces the compiler for c.Type()
func (f *Factory) Register(c Compiler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compilers[c.Type()] = c
}

// New returns the compiler for t
func (f *Factory) New(t Type) (Compiler, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.compilers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q, available: %v", ErrUnknownTopology, t, f.available())
	}
	return c, nil
}

// Available lists registered types in sorted order
func (f *Factory) Available() []Type {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.available()
}

func (f *Factory) available() []Type {
	out := make([]Type, 0, len(f.compilers))
	for t := range f.compilers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var defaultFactory = NewFactory()

// New returns a built-in compiler by type
func New(t Type) (Compiler, error) {
	return defaultFactory.New(t)
}
