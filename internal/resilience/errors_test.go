package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"), 503)
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("upstream hiccup"), 502)
	wrapped := fmt.Errorf("api call failed: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_QuotaError(t *testing.T) {
	err := NewQuotaError(errors.New("too many requests"), 429, 0)
	if !IsTransient(err) {
		t.Error("expected QuotaError to be transient")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	err := errors.New("invalid input: missing field")
	if IsTransient(err) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	err := fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
	if !IsTransient(err) {
		t.Error("ECONNRESET should be transient")
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	patterns := []string{
		"connection reset by peer",
		"broken pipe",
		"TLS handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range patterns {
		err := errors.New(p)
		if !IsTransient(err) {
			t.Errorf("expected %q to be transient", p)
		}
	}
}

func TestIsQuota_ExplicitQuotaError(t *testing.T) {
	err := NewQuotaError(errors.New("usage limit reached"), 429, 0)
	if !IsQuota(err) {
		t.Error("expected QuotaError to be a quota condition")
	}
}

func TestIsQuota_WrappedQuotaError(t *testing.T) {
	inner := NewQuotaError(errors.New("usage limit reached"), 429, 0)
	wrapped := fmt.Errorf("generate assessment: %w", inner)
	if !IsQuota(wrapped) {
		t.Error("expected wrapped QuotaError to be a quota condition")
	}
}

func TestIsQuota_MessagePatterns(t *testing.T) {
	for _, msg := range []string{
		"API quota exceeded after 3 attempts",
		"rate limit hit, slow down",
		"unexpected status 429",
	} {
		if !IsQuota(errors.New(msg)) {
			t.Errorf("expected %q to be a quota condition", msg)
		}
	}

	if IsQuota(errors.New("invalid request body")) {
		t.Error("plain error should not be a quota condition")
	}
	if IsQuota(nil) {
		t.Error("nil should not be a quota condition")
	}
}

func TestRetryHint(t *testing.T) {
	err := NewQuotaError(errors.New("slow down"), 429, 7*time.Second)
	wrapped := fmt.Errorf("anthropic: %w", err)

	hint, ok := RetryHint(wrapped)
	if !ok {
		t.Fatal("expected a retry hint")
	}
	if hint != 7*time.Second {
		t.Errorf("expected 7s hint, got %v", hint)
	}

	if _, ok := RetryHint(errors.New("no hint here")); ok {
		t.Error("expected no hint on plain error")
	}
	if _, ok := RetryHint(NewQuotaError(errors.New("x"), 429, 0)); ok {
		t.Error("expected no hint when RetryAfter is zero")
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	transient := []int{408, 429, 500, 502, 503, 504, 529}
	for _, code := range transient {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be transient", code)
		}
	}

	permanent := []int{200, 201, 400, 401, 403, 404, 405, 409, 422}
	for _, code := range permanent {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to NOT be transient", code)
		}
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, 500)

	if !errors.Is(te, inner) {
		t.Error("TransientError.Unwrap should return the inner error")
	}

	if te.StatusCode != 500 {
		t.Errorf("expected StatusCode 500, got %d", te.StatusCode)
	}
}

func TestQuotaError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	qe := NewQuotaError(inner, 429, time.Second)

	if !errors.Is(qe, inner) {
		t.Error("QuotaError.Unwrap should return the inner error")
	}
	if qe.Error() != "root cause" {
		t.Errorf("unexpected message %q", qe.Error())
	}
}
