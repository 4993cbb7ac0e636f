package envutil

import (
	"testing"
	"time"
)

func TestParseBool(t *testing.T) {
	cases := map[string]bool{
		"1":     true,
		"true":  true,
		"TRUE":  true,
		"yes":   true,
		"on":    true,
		"false": false,
		"0":     false,
		"":      false,
	}
	for input, want := range cases {
		if got := ParseBool(input); got != want {
			t.Fatalf("ParseBool(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestDurationFallback(t *testing.T) {
	t.Setenv("UIGEN_TEST_TTL", "90m")
	if got := Duration("UIGEN_TEST_TTL", time.Hour); got != 90*time.Minute {
		t.Fatalf("expected 90m, got %s", got)
	}
	t.Setenv("UIGEN_TEST_TTL", "soon")
	if got := Duration("UIGEN_TEST_TTL", time.Hour); got != time.Hour {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestProduction(t *testing.T) {
	t.Setenv("UIGEN_ENV", "")
	t.Setenv("NODE_ENV", "production")
	if !Production() {
		t.Fatalf("expected NODE_ENV=production to count")
	}
	t.Setenv("UIGEN_ENV", "development")
	if Production() {
		t.Fatalf("expected UIGEN_ENV to take precedence")
	}
}
