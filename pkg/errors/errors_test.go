package errors

import (
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := &Error{Type: ErrorTypeRateLimit, Message: "slow down", Code: 429}
	if got, want := e.Error(), "rate_limit error (code 429): slow down"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	e = New(ErrorTypeNetwork, "connection reset")
	if got, want := e.Error(), "network error: connection reset"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestRetryableAndFatalClassification(t *testing.T) {
	retryable := []ErrorType{ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeChecksum}
	for _, typ := range retryable {
		if !IsRetryable(typ) {
			t.Errorf("%s should be retryable", typ)
		}
		if IsFatal(typ) {
			t.Errorf("%s should not be fatal", typ)
		}
	}

	fatal := []ErrorType{ErrorTypeAuth, ErrorTypeFilesystem}
	for _, typ := range fatal {
		if IsRetryable(typ) {
			t.Errorf("%s should not be retryable", typ)
		}
		if !IsFatal(typ) {
			t.Errorf("%s should be fatal", typ)
		}
	}

	for _, typ := range []ErrorType{ErrorTypeNotFound, ErrorTypeParsing, ErrorTypeUnknown} {
		if IsRetryable(typ) || IsFatal(typ) {
			t.Errorf("%s should fail only its own item", typ)
		}
	}
}

func TestTypeOfUnwrapsChains(t *testing.T) {
	inner := Newf(ErrorTypeServerError, "bad gateway")
	wrapped := fmt.Errorf("listing albums: %w", inner)

	if got := TypeOf(wrapped); got != ErrorTypeServerError {
		t.Errorf("TypeOf = %v, want server_error", got)
	}
	if !IsRetryableError(wrapped) {
		t.Error("wrapped server error should stay retryable")
	}
	if IsFatalError(wrapped) {
		t.Error("wrapped server error should not be fatal")
	}

	if got := TypeOf(fmt.Errorf("plain failure")); got != ErrorTypeUnknown {
		t.Errorf("TypeOf(plain) = %v, want unknown", got)
	}
	if got := TypeOf(nil); got != ErrorTypeUnknown {
		t.Errorf("TypeOf(nil) = %v, want unknown", got)
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{0, true},
		{429, true},
		{500, true},
		{503, true},
		{599, true},
		{401, false},
		{403, false},
		{404, false},
		{200, false},
	}
	for _, c := range cases {
		if got := IsRetryableStatusCode(c.code); got != c.want {
			t.Errorf("IsRetryableStatusCode(%d) = %v, want %v", c.code, got, c.want)
		}
	}
}
