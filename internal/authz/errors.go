package authz

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates authorization failures. The taxonomy is closed: every
// error the core produces carries exactly one of these kinds, and the HTTP
// layer maps kinds to status codes without inspecting messages.
type Kind int

const (
	// KindMissingToken: no Authorization header or empty bearer token.
	KindMissingToken Kind = iota
	// KindInvalidToken: malformed, expired, or revoked token.
	KindInvalidToken
	// KindUnauthenticated: a protected handler ran without an identity on
	// the request context.
	KindUnauthenticated
	// KindUserNotFound: no user record for the verified subject.
	KindUserNotFound
	// KindTenantLinkMissing: user record has no tenant association.
	KindTenantLinkMissing
	// KindTenantNotFound: no tenant record for the user's tenant id.
	KindTenantNotFound
	// KindTenantMisconfigured: tenant record has no bound resource scope.
	KindTenantMisconfigured
	// KindPermissionDenied: identity lacks a required permission.
	KindPermissionDenied
	// KindScopeAccessDenied: identity may not operate on a resource scope.
	KindScopeAccessDenied
	// KindUnavailable: the identity provider or directory store failed.
	// Recoverable infrastructure fault, never conflated with not-found.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindMissingToken:
		return "missing_token"
	case KindInvalidToken:
		return "invalid_token"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUserNotFound:
		return "user_not_found"
	case KindTenantLinkMissing:
		return "tenant_link_missing"
	case KindTenantNotFound:
		return "tenant_not_found"
	case KindTenantMisconfigured:
		return "tenant_misconfigured"
	case KindPermissionDenied:
		return "permission_denied"
	case KindScopeAccessDenied:
		return "scope_access_denied"
	case KindUnavailable:
		return "auth_service_unavailable"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the kind to its client-facing status class.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindMissingToken, KindInvalidToken, KindUnauthenticated,
		KindUserNotFound:
		return http.StatusUnauthorized
	case KindTenantLinkMissing, KindTenantNotFound, KindTenantMisconfigured,
		KindPermissionDenied, KindScopeAccessDenied:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the tagged error type for all core authorization failures.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, not exposed to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error with a formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error around an underlying cause.
func WrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err. Errors outside the taxonomy report
// KindUnavailable so an unexpected failure is never downgraded to a denial.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnavailable
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
