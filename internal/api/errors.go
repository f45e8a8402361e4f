package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/beluma/warehouse-gateway/internal/authz"
)

// GatewayError is the client-facing error body: {"code": int, "message":
// string, "reason": string}. Reason carries the authorization kind when the
// failure came from the core; internal detail never leaves the process.
type GatewayError struct {
	status  int
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func (e *GatewayError) Error() string {
	return e.Message
}

func (e *GatewayError) GetStatus() int {
	return e.status
}

func init() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		ge := &GatewayError{
			status:  status,
			Code:    status,
			Message: msg,
		}
		for _, err := range errs {
			var ae *authz.Error
			if errors.As(err, &ae) {
				ge.Reason = ae.Kind.String()
				break
			}
		}
		if len(errs) > 0 && msg == "" {
			ge.Message = errs[0].Error()
		}
		return ge
	}
}

// authError renders a core authorization failure. Unavailable errors get a
// generic message so infrastructure detail is never exposed.
func authError(err error) huma.StatusError {
	kind := authz.KindOf(err)
	msg := clientMessage(err, kind)
	return huma.NewError(kind.HTTPStatus(), msg, err)
}

func clientMessage(err error, kind authz.Kind) string {
	if kind == authz.KindUnavailable {
		return "authentication service unavailable"
	}
	var ae *authz.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "request rejected"
}
