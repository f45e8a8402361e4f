package authz

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{KindMissingToken, http.StatusUnauthorized},
		{KindInvalidToken, http.StatusUnauthorized},
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindUserNotFound, http.StatusUnauthorized},
		{KindTenantLinkMissing, http.StatusForbidden},
		{KindTenantNotFound, http.StatusForbidden},
		{KindTenantMisconfigured, http.StatusForbidden},
		{KindPermissionDenied, http.StatusForbidden},
		{KindScopeAccessDenied, http.StatusForbidden},
		{KindUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.HTTPStatus(); got != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, got)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if KindUnavailable.String() != "auth_service_unavailable" {
		t.Fatalf("unexpected string: %s", KindUnavailable)
	}
	if Kind(99).String() != "unknown" {
		t.Fatalf("unexpected string for out-of-range kind: %s", Kind(99))
	}
}

func TestKindOfForeignError(t *testing.T) {
	// Errors from outside the taxonomy must never be downgraded to a denial.
	if got := KindOf(errors.New("disk on fire")); got != KindUnavailable {
		t.Fatalf("expected unavailable, got %s", got)
	}
}

func TestKindOfWrapped(t *testing.T) {
	inner := NewError(KindUserNotFound, "no user record for subject %q", "u1")
	wrapped := fmt.Errorf("request failed: %w", inner)

	if got := KindOf(wrapped); got != KindUserNotFound {
		t.Fatalf("expected user_not_found, got %s", got)
	}
	if !IsKind(wrapped, KindUserNotFound) {
		t.Fatal("IsKind should see through wrapping")
	}
	if IsKind(wrapped, KindTenantNotFound) {
		t.Fatal("IsKind matched the wrong kind")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(KindUnavailable, cause, "directory lookup failed")

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Error() != "auth_service_unavailable: directory lookup failed: connection refused" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}
