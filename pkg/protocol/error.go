package protocol

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error exposes methods useful for categorizing errors.
type Error interface {
	error

	// MayHaveSucceeded returns true if the Error was triggered by a command that might have been
	// executed. For example, if the proxy times out while waiting for the vendor to answer an engine
	// command, then the proxy cannot tell if the vehicle acted on it.
	MayHaveSucceeded() bool

	// Temporary returns true if the Error might be the result of a transient condition, such as
	// the vendor being briefly unreachable.
	Temporary() bool
}

var (
	// ErrBadResponse indicates the vendor answered with a body that could not be interpreted.
	ErrBadResponse = errors.New("invalid response from vendor")
	// ErrResponseTooLong indicates the vendor response exceeded the maximum accepted size.
	ErrResponseTooLong = NewError("response exceeds maximum length", true, false)
	// ErrVendorUnreachable indicates no response at all was received from the vendor.
	ErrVendorUnreachable = NewError("vendor unreachable", false, true)
)

type CommandError struct {
	Err               error
	PossibleSuccess   bool
	PossibleTemporary bool
}

func NewError(message string, mayHaveSucceeded bool, temporary bool) error {
	return &CommandError{Err: errors.New(message), PossibleSuccess: mayHaveSucceeded, PossibleTemporary: temporary}
}

func (e *CommandError) Error() string {
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) MayHaveSucceeded() bool {
	return e.PossibleSuccess
}

func (e *CommandError) Temporary() bool {
	return e.PossibleTemporary
}

// HttpError is returned when the vendor answered but reported a non-200 status, either at the
// HTTP layer or inside its JSON envelope.
type HttpError struct {
	Code    int
	Message string
}

func (e *HttpError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return e.Message
}

func (e *HttpError) MayHaveSucceeded() bool {
	if e.Code >= 400 && e.Code < 500 {
		return false
	}
	return e.Code != http.StatusServiceUnavailable
}

func (e *HttpError) Temporary() bool {
	return e.Code == http.StatusServiceUnavailable ||
		e.Code == http.StatusGatewayTimeout ||
		e.Code == http.StatusRequestTimeout
}

// MayHaveSucceeded returns true if err indicates the command may have been executed but the
// proxy did not receive a confirmation from the vendor.
func MayHaveSucceeded(err error) bool {
	var commErr Error
	if errors.As(err, &commErr) && commErr.MayHaveSucceeded() {
		return true
	}
	return false
}

// Temporary returns true if err indicates the command failed due to possibly transient
// conditions that do not require user action to resolve.
func Temporary(err error) bool {
	var commErr Error
	if errors.As(err, &commErr) && commErr.Temporary() {
		return true
	}
	return false
}

// ResultFromError converts a failed vendor exchange into a REMOTE_SERVER_ERROR Result. Vendor
// statuses are passed through verbatim; failures that never produced a vendor status are given a
// synthetic gateway status.
func ResultFromError(err error) Result {
	var httpErr *HttpError
	switch {
	case err == nil:
		return RemoteServerError(http.StatusInternalServerError, "internal server error")
	case errors.As(err, &httpErr):
		reason := httpErr.Message
		if reason == "" {
			reason = http.StatusText(httpErr.Code)
		}
		return RemoteServerError(httpErr.Code, reason)
	case errors.Is(err, context.DeadlineExceeded):
		return RemoteServerError(http.StatusGatewayTimeout, fmt.Sprintf("%s: %s", http.StatusText(http.StatusGatewayTimeout), err))
	default:
		return RemoteServerError(http.StatusBadGateway, fmt.Sprintf("%s: %s", http.StatusText(http.StatusBadGateway), err))
	}
}
