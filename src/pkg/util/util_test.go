package util

import (
	"fmt"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct{ val, min, max, want int }{
		{5, 1, 10, 5},
		{-3, 1, 10, 1},
		{42, 1, 10, 10},
	}
	for _, tt := range tests {
		if got := Clamp(tt.val, tt.min, tt.max); got != tt.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.val, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestMissingFlags(t *testing.T) {
	defer func() { requiredFlags = nil }()

	item := ""
	price := "10k"
	RequiredFlag(&item, "item")
	RequiredFlag(&price, "-price")

	if got := fmt.Sprint(MissingFlags()); got != "[--item]" {
		t.Fatalf("MissingFlags() = %s", got)
	}
	item = "sword"
	if got := MissingFlags(); len(got) != 0 {
		t.Fatalf("MissingFlags() = %v", got)
	}
}

func TestNormalizeFlagName(t *testing.T) {
	for in, want := range map[string]string{"item": "--item", "-item": "--item", "--item": "--item", " x ": "--x"} {
		if got := normalizeFlagName(in); got != want {
			t.Errorf("normalizeFlagName(%q) = %q, want %q", in, got, want)
		}
	}
}
