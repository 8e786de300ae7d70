package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized"},
		{"ErrForbidden", ErrForbidden, "forbidden"},
		{"ErrUnsupportedBackend", ErrUnsupportedBackend, "unsupported search backend"},
		{"ErrEngineUnavailable", ErrEngineUnavailable, "index engine unavailable"},
		{"ErrEngineClosed", ErrEngineClosed, "index engine closed"},
		{"ErrQueueFull", ErrQueueFull, "indexing queue full"},
		{"ErrJobNotFound", ErrJobNotFound, "job not found"},
		{"ErrLockHeld", ErrLockHeld, "lock held by another process"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrUnsupportedBackend,
		ErrEngineUnavailable,
		ErrEngineClosed,
		ErrQueueFull,
		ErrJobNotFound,
		ErrLockHeld,
		ErrExtractionUnsupported,
		ErrExcludedProperty,
	}

	for i, a := range allErrors {
		for j, b := range allErrors {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

func TestMappingError(t *testing.T) {
	ref := ContentRef{Type: UnitTypeProperty, Wiki: "xwiki", Space: "Main", Page: "WebHome", ObjectType: "XWiki.XWikiUsers", PropertyName: "password"}
	err := fmt.Errorf("indexing: %w", NewMappingError(ref, ErrExcludedProperty))

	if !IsMappingError(err) {
		t.Fatal("expected wrapped mapping error to be detected")
	}
	if !errors.Is(err, ErrExcludedProperty) {
		t.Error("expected mapping error to unwrap to its cause")
	}

	var me *MappingError
	if !errors.As(err, &me) {
		t.Fatal("expected errors.As to find MappingError")
	}
	if me.Unit != ref.String() {
		t.Errorf("expected unit %q, got %q", ref.String(), me.Unit)
	}
	if IsMappingError(ErrEngineUnavailable) {
		t.Error("engine error must not be a mapping error")
	}
}
