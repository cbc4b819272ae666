package app

import (
	"errors"
	"testing"

	"github.com/dshills/scriptmatch/internal/integration/debug/paths"
)

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *OperationError
		expected string
	}{
		{"nil error", nil, ""},
		{"op only", &OperationError{Op: "endpoint"}, "endpoint"},
		{"op and target", &OperationError{Op: "regex", Target: "/srv/app.js"}, "regex /srv/app.js"},
		{
			"full chain",
			&OperationError{Op: "regex", Target: "app.js", Err: errors.New("relative path")},
			"regex app.js: relative path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	err := NewOperationError("match", "file://host/x", &paths.URLError{Input: "file://host/x", Err: paths.ErrNotFileURL})

	if !errors.Is(err, paths.ErrNotFileURL) {
		t.Error("errors.Is should reach the wrapped sentinel")
	}

	var urlErr *paths.URLError
	if !errors.As(err, &urlErr) {
		t.Error("errors.As should find the URLError")
	}

	var nilErr *OperationError
	if nilErr.Unwrap() != nil {
		t.Error("nil receiver should unwrap to nil")
	}
}

func TestUsageError(t *testing.T) {
	err := usageError("%s requires %d argument(s)", "regex", 1)
	if !errors.Is(err, ErrUsage) {
		t.Errorf("expected ErrUsage, got %v", err)
	}
	if err.Error() != "usage error: regex requires 1 argument(s)" {
		t.Errorf("Error() = %q", err.Error())
	}
}
