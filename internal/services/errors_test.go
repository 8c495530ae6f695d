package services_test

import (
	"errors"
	"strings"
	"testing"

	"tico/internal/services"
)

func TestWrapTagsWithMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrTransient, "crhoy", "fetch index", "2024-06-01", base)

	if !errors.Is(err, services.ErrTransient) {
		t.Error("expected transient marker")
	}
	if errors.Is(err, services.ErrParse) {
		t.Error("unexpected parse marker")
	}
	if !errors.Is(err, base) {
		t.Error("expected wrapped cause to survive")
	}
	for _, part := range []string{"crhoy", "fetch index", "2024-06-01", "connection refused"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("message missing %q: %s", part, err)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrConfiguration, "config", "", "api key required", nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Error("expected configuration marker")
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "x", "y", "z", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Error("nil marker should default to transient")
	}
}
