package security

import (
	"strings"
	"testing"
)

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"f47ac10b-58cc-4372-a567-0e02b2c3d479",
		"F47AC10B-58CC-4372-A567-0E02B2C3D479",
		"00000000-0000-4000-8000-000000000000",
		"ffffffff-ffff-4fff-bfff-ffffffffffff",
	}
	for _, s := range valid {
		if !IsValidUUID(s) {
			t.Errorf("IsValidUUID(%q) = false, want true", s)
		}
	}

	invalid := []string{
		"",
		"not-a-uuid",
		"f47ac10b-58cc-4372-a567-0e02b2c3d47",   // too short
		"f47ac10b-58cc-4372-a567-0e02b2c3d4790", // too long
		"f47ac10b-58cc-1372-a567-0e02b2c3d479",  // wrong version
		"f47ac10b-58cc-4372-c567-0e02b2c3d479",  // wrong variant
		"f47ac10b58cc-4372-a567-0e02b2c3d4790",  // misplaced dash
		"g47ac10b-58cc-4372-a567-0e02b2c3d479",  // non-hex digit
		"f47ac10b-58cc-4372-a567-0e02b2c3d47 ",  // trailing space
	}
	for _, s := range invalid {
		if IsValidUUID(s) {
			t.Errorf("IsValidUUID(%q) = true, want false", s)
		}
	}
}

func TestNormalizeUUIDLowercases(t *testing.T) {
	id, ok := NormalizeUUID("F47AC10B-58CC-4372-A567-0E02B2C3D479")
	if !ok {
		t.Fatal("uppercase UUID must be accepted")
	}
	if id != "f47ac10b-58cc-4372-a567-0e02b2c3d479" {
		t.Fatalf("normalized to %q", id)
	}

	if _, ok := NormalizeUUID("nope"); ok {
		t.Fatal("invalid input must be rejected")
	}
}

func TestGenerateUUIDProducesValidDistinctIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateUUID()
		if !IsValidUUID(id) {
			t.Fatalf("generated id %q is not a valid UUID", id)
		}
		if id != strings.ToLower(id) {
			t.Fatalf("generated id %q is not lowercase", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestGenerateULIDOrderingAndUniqueness(t *testing.T) {
	first := GenerateULID()
	second := GenerateULID()
	if len(first) != 26 || len(second) != 26 {
		t.Fatalf("ULID lengths %d/%d, want 26", len(first), len(second))
	}
	if first == second {
		t.Fatal("consecutive ULIDs must differ")
	}
}
