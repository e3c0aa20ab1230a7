// Package connector defines how vendor adapters reach the manufacturer's servers.
package connector

import (
	"context"
	"time"
)

// MaxResponseLength caps the maximum byte-length of vendor responses that connectors must
// support.
const MaxResponseLength = 100000

// Observer is notified after every vendor exchange. Status is zero when no response was
// received.
type Observer func(service string, status int, elapsed time.Duration)

// Connector sends JSON requests to named vendor services.
type Connector interface {
	// Post sends request, serialized as JSON unless it is already a []byte, to the vendor
	// service and returns the response body.
	//
	// If the vendor replies with a non-200 HTTP status, the returned error is a
	// *protocol.HttpError and the body (if any) is still returned so that callers can extract
	// vendor-specific error details. Transport failures return a nil body.
	//
	// Implementations must be thread safe.
	Post(ctx context.Context, service string, request interface{}) ([]byte, error)

	// BaseURL returns the vendor endpoint that services are resolved against.
	BaseURL() string
}
