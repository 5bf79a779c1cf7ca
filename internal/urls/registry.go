package urls

import (
	"sync"

	"github.com/rotisserie/eris"
)

// ErrFrozen is returned when a converter is registered after routes were compiled.
var ErrFrozen = eris.New("converter registry is frozen")

// Registry is the segment-type table consulted when compiling route patterns.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]Converter
	frozen     bool
}

// NewRegistry returns a registry holding the built-in str, int and slug converters.
func NewRegistry() *Registry {
	return &Registry{
		converters: map[string]Converter{
			"str":  StringConverter{},
			"int":  IntConverter{},
			"slug": SlugConverter{},
		},
	}
}

// Default is the process-wide registry. It is populated during startup and frozen
// once the first router compiles against it.
var Default = NewRegistry()

// Register adds a converter under name.
func (r *Registry) Register(name string, converter Converter) error {
	if name == "" {
		return eris.New("converter name is required")
	}
	if converter == nil {
		return eris.New("converter is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return eris.Wrapf(ErrFrozen, "registering converter %s", name)
	}
	if _, exists := r.converters[name]; exists {
		return eris.Errorf("converter %s is already registered", name)
	}

	r.converters[name] = converter
	return nil
}

// Lookup returns the converter registered under name.
func (r *Registry) Lookup(name string) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	converter, ok := r.converters[name]
	return converter, ok
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Register adds a converter to the Default registry.
func Register(name string, converter Converter) error {
	return Default.Register(name, converter)
}
