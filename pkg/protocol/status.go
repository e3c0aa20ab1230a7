package protocol

import "net/http"

const (
	DefaultInvalidInputMessage = "Invalid input provided by client"
	UnknownCommandMessage      = "server does not recognize command"
	InternalServerErrorMessage = "internal server error"
)

// Translate maps a Result onto the HTTP status and body returned to the caller. String bodies
// are sent as plain text; anything else is serialized as JSON.
func Translate(r Result) (int, interface{}) {
	switch r.Code {
	case CodeSuccess:
		return http.StatusOK, r.Payload
	case CodeInvalidInput:
		if description, ok := r.Payload.(string); ok && description != "" {
			return http.StatusBadRequest, description
		}
		return http.StatusBadRequest, DefaultInvalidInputMessage
	case CodeRemoteServerError:
		if !passthroughStatus(r.RemoteStatus) {
			return http.StatusBadGateway, r.RemoteReason
		}
		return r.RemoteStatus, r.RemoteReason
	case CodeUnknownCommand:
		return http.StatusInternalServerError, UnknownCommandMessage
	default:
		return http.StatusInternalServerError, InternalServerErrorMessage
	}
}

// passthroughStatus reports whether a vendor status can be sent to the caller as is. Informational
// statuses would be followed by an implicit 200, and 204 and 304 cannot carry the reason.
func passthroughStatus(status int) bool {
	if status < 200 || status > 599 {
		return false
	}
	return status != http.StatusNoContent && status != http.StatusNotModified
}
