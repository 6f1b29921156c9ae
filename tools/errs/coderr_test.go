package errs

import (
	"errors"
	"testing"
)

func TestCodeErrorIs(t *testing.T) {
	err := ErrUnauthenticated.WrapMsg("token expired")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("wrapped error should match its sentinel")
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatalf("different codes must not match")
	}
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	_ = ErrUnknownEvent.WithDetail("make_coffee")
	if ErrUnknownEvent.Detail != "" {
		t.Fatalf("sentinel mutated: %q", ErrUnknownEvent.Detail)
	}
}

func TestErrorString(t *testing.T) {
	e := NewCodeError(42, "boom").WithDetail("ctx")
	want := "42 boom ctx"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "msg") != nil {
		t.Fatalf("wrapping nil should stay nil")
	}
}
