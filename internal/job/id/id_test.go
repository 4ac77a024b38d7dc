package id

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	got := Generate()

	if !strings.HasPrefix(got, "job-") {
		t.Errorf("expected ID to start with 'job-', got %s", got)
	}
	if parts := strings.Split(got, "-"); len(parts) != 3 {
		t.Errorf("expected job-<unix>-<hex>, got %s", got)
	}

	if again := Generate(); got == again {
		t.Error("expected different IDs for consecutive calls")
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		got := Generate()
		if seen[got] {
			t.Errorf("duplicate ID generated: %s", got)
		}
		seen[got] = true
	}
}
