package api

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestAppErrorInterface(t *testing.T) {
	var _ error = &AppError{}
}

func TestAppErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			"without cause",
			NewNotFound("unknown route 'x'"),
			"not_found: unknown route 'x'",
		},
		{
			"with cause",
			NewInternal("failed to read bundle").WithCause(io.ErrUnexpectedEOF),
			"internal: failed to read bundle: unexpected EOF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
	}{
		{"bad request", NewBadRequest("route pattern must be provided"), ErrorCodeBadRequest},
		{"not found", NewNotFound("resource not found"), ErrorCodeNotFound},
		{"upstream failure", NewUpstreamFailure("backend failed"), ErrorCodeUpstreamFailure},
		{"internal", NewInternal("boom"), ErrorCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.Cause() != nil {
				t.Errorf("Cause() = %v, want nil", tt.err.Cause())
			}
		})
	}
}

func TestWithCauseDoesNotMutateReceiver(t *testing.T) {
	base := NewUpstreamFailure("backend failed")
	wrapped := base.WithCause(io.EOF)

	if base.Cause() != nil {
		t.Errorf("base cause = %v, want nil", base.Cause())
	}
	if !errors.Is(wrapped, io.EOF) {
		t.Error("errors.Is(wrapped, io.EOF) = false, want true")
	}
}

func TestEnvelopeOmitsCause(t *testing.T) {
	err := NewInternal("failed to read bundle").WithCause(errors.New("open /secret/path: permission denied"))

	data, marshalErr := json.Marshal(err.Response())
	if marshalErr != nil {
		t.Fatalf("marshal error: %v", marshalErr)
	}

	got := string(data)
	want := `{"code":"internal","message":"failed to read bundle"}`
	if got != want {
		t.Errorf("envelope = %s, want %s", got, want)
	}
	if strings.Contains(got, "secret") {
		t.Errorf("envelope leaks cause: %s", got)
	}
}

func TestAsAppError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		if got := AsAppError(nil); got != nil {
			t.Errorf("AsAppError(nil) = %v, want nil", got)
		}
	})

	t.Run("wrapped app error", func(t *testing.T) {
		orig := NewBadRequest("bad")
		got := AsAppError(errors.Join(errors.New("context"), orig))
		if got != orig {
			t.Errorf("AsAppError returned %v, want the wrapped AppError", got)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		plain := errors.New("disk on fire")
		got := AsAppError(plain)
		if got.Code != ErrorCodeInternal {
			t.Errorf("Code = %q, want %q", got.Code, ErrorCodeInternal)
		}
		if strings.Contains(got.Message, "disk") {
			t.Errorf("Message %q leaks the cause", got.Message)
		}
		if !errors.Is(got, plain) {
			t.Error("cause not preserved")
		}
	})
}
