package mail

import (
	"github.com/pkg/errors"
)

// DeliveryError is the single error type a Transport.Send returns.
// Provider-specific failures and unexpected internal ones are normalized
// into it, so callers handle delivery failures without knowing which
// provider is behind the transport. Errs holds the per-attempt error
// strings when the provider reported the failure itself.
type DeliveryError struct {
	msg   string
	cause error
	Errs  []string
}

func (e *DeliveryError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Unwrap exposes the original cause for errors.Is/As and for loggers that
// pull pkg/errors stack traces out of the chain.
func (e *DeliveryError) Unwrap() error {
	return e.cause
}

// ServerErrors builds the DeliveryError for an attempt the provider
// rejected: the recorded error strings become the error text.
func ServerErrors(r DeliveryResult) *DeliveryError {
	return &DeliveryError{
		msg:  "errors returned from the server: " + r.Description(),
		Errs: r.Errors,
	}
}

// WrapDelivery normalizes an unexpected internal failure. A cause that
// already is a DeliveryError passes through untouched, so a send never
// double-wraps.
func WrapDelivery(cause error) *DeliveryError {
	var de *DeliveryError
	if errors.As(cause, &de) {
		return de
	}
	return &DeliveryError{
		msg:   "could not send the mail",
		cause: errors.WithStack(cause),
	}
}
