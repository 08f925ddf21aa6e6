package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestParseSimulationID(t *testing.T) {
	id := NewSimulationID()
	parsed, err := ParseSimulationID("  " + id.String() + " ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != id {
		t.Errorf("expected %s, got %s", id, parsed)
	}

	for _, bad := range []string{"", "   ", "not-a-uuid"} {
		if _, err := ParseSimulationID(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestHashJSON_Deterministic(t *testing.T) {
	type payload struct {
		A int
		B map[string]float64
	}
	h1, err := HashJSON(payload{A: 1, B: map[string]float64{"x": 1, "y": 2}})
	if err != nil {
		t.Fatal(err)
	}
	h2, _ := HashJSON(payload{A: 1, B: map[string]float64{"y": 2, "x": 1}})
	h3, _ := HashJSON(payload{A: 2})

	if h1 != h2 {
		t.Errorf("equal values hashed differently: %s vs %s", h1, h2)
	}
	if h1 == h3 {
		t.Errorf("different values share a hash")
	}
	if len(h1.Short()) != 12 {
		t.Errorf("short hash should be 12 chars, got %q", h1.Short())
	}
}

func TestNewNumericError_WrapsSentinel(t *testing.T) {
	err := NewNumericError(40, ErrNoConvergence)
	if !IsNumericError(err) {
		t.Errorf("expected numeric error, got %v", err)
	}
	plain := NewNumericError(40, errString("boom"))
	if !IsNumericError(plain) {
		t.Errorf("expected plain error to be wrapped as numeric, got %v", plain)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
