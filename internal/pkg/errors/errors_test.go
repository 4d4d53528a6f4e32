package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindOfWrappedError(t *testing.T) {
	t.Parallel()

	base := Newf(KindProviderTimeout, "deadline exceeded")
	wrapped := fmt.Errorf("send message: %w", base)

	if got := KindOf(wrapped); got != KindProviderTimeout {
		t.Fatalf("KindOf through wrapping: got=%q want=%q", got, KindProviderTimeout)
	}
	if !IsKind(wrapped, KindProviderTimeout) {
		t.Fatalf("IsKind should see through wrapping")
	}
	if IsKind(wrapped, KindProviderAuth) {
		t.Fatalf("IsKind matched the wrong kind")
	}
}

func TestKindOfPlainError(t *testing.T) {
	t.Parallel()

	if got := KindOf(stderrors.New("plain")); got != "" {
		t.Fatalf("plain error should have no kind, got %q", got)
	}
	if KindOf(nil) != "" {
		t.Fatalf("nil error should have no kind")
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	if !Retryable(Newf(KindProviderTimeout, "slow")) {
		t.Fatalf("timeout should be retryable")
	}
	for _, kind := range []Kind{KindProviderAuth, KindProviderProtocol, KindNoActiveProvider, KindUnknownTemplateKey, KindCancelled} {
		if Retryable(Newf(kind, "x")) {
			t.Fatalf("%s should not be retryable", kind)
		}
	}
}

func TestErrorMessageFormat(t *testing.T) {
	t.Parallel()

	err := New(KindProviderAuth, stderrors.New("401 unauthorized"))
	want := "provider_auth_error: 401 unauthorized"
	if err.Error() != want {
		t.Fatalf("message: got=%q want=%q", err.Error(), want)
	}
	if (&Error{Kind: KindCancelled}).Error() != "cancelled" {
		t.Fatalf("kind-only message wrong")
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("root cause")
	err := New(KindProviderProtocol, cause)
	if !stderrors.Is(err, cause) {
		t.Fatalf("errors.Is should reach the wrapped cause")
	}
}
