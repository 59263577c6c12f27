package env

import "testing"

func TestGetPrefersPrefixedVariable(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	if got := Get("LOG_FORMAT", "json"); got != "console" {
		t.Fatalf("expected bare fallback, got %q", got)
	}

	t.Setenv("STOREFRONT_LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "console"); got != "json" {
		t.Fatalf("expected prefixed value, got %q", got)
	}
}

func TestGetFallback(t *testing.T) {
	if got := Get("STOREFRONT_UNSET_FOR_TEST", "x"); got != "x" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
