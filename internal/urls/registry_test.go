package urls

import (
	"testing"

	"github.com/rotisserie/eris"
)

func TestRegistryProvidesBuiltins(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	for _, name := range []string{"str", "int", "slug"} {
		if _, ok := registry.Lookup(name); !ok {
			t.Errorf("expected built-in converter %s", name)
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	if err := registry.Register("year4", FourDigitYearConverter{}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if err := registry.Register("year4", FourDigitYearConverter{}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestRegistryRejectsRegistrationAfterFreeze(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Freeze()

	err := registry.Register("year4", FourDigitYearConverter{})
	if !eris.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}

	if _, ok := registry.Lookup("year4"); ok {
		t.Fatalf("expected converter not to be registered")
	}
}
