package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestUUIDv7Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		id := gen()
		if id <= prev {
			t.Fatalf("not increasing: %q after %q", id, prev)
		}
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("uuid.Parse(%q): %v", id, err)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("pass_", UUIDv7())()
	if !strings.HasPrefix(id, "pass_") || len(id) != len("pass_")+36 {
		t.Errorf("Prefixed: got %q", id)
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("p")
	for _, want := range []string{"p1", "p2", "p3"} {
		if got := gen(); got != want {
			t.Errorf("Sequence: got %q, want %q", got, want)
		}
	}
}

func TestDefaultPassIDs(t *testing.T) {
	a, b := Default(), Default()
	if !strings.HasPrefix(a, "pass_") || a == b {
		t.Fatalf("Default: got %q then %q", a, b)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(a, "pass_")); err != nil {
		t.Errorf("Default suffix is not a UUID: %v", err)
	}
}
