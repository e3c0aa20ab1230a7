package protocol

import "fmt"

// Code is the normalized outcome of a vendor adapter call.
type Code int

const (
	CodeSuccess           Code = 0
	CodeInvalidInput      Code = -1
	CodeRemoteServerError Code = -2
	CodeUnknownCommand    Code = -3
)

var codeNames = map[Code]string{
	CodeSuccess:           "SUCCESS",
	CodeInvalidInput:      "INVALID_INPUT",
	CodeRemoteServerError: "REMOTE_SERVER_ERROR",
	CodeUnknownCommand:    "UNKNOWN_COMMAND",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Result is what a vendor adapter hands back to the dispatcher when a call completes.
//
// Payload holds normalized data when Code is CodeSuccess and a diagnostic value otherwise.
// RemoteStatus and RemoteReason are only meaningful for CodeRemoteServerError, where they carry
// the vendor's status and reason verbatim.
type Result struct {
	Code         Code
	Payload      interface{}
	RemoteStatus int
	RemoteReason string
}

func Success(payload interface{}) Result {
	return Result{Code: CodeSuccess, Payload: payload}
}

func InvalidInput(description string) Result {
	return Result{Code: CodeInvalidInput, Payload: description}
}

func RemoteServerError(status int, reason string) Result {
	return Result{Code: CodeRemoteServerError, RemoteStatus: status, RemoteReason: reason}
}

func UnknownCommand(command string) Result {
	return Result{Code: CodeUnknownCommand, Payload: command}
}

func (r Result) String() string {
	if r.Code == CodeRemoteServerError {
		return fmt.Sprintf("%s (%d: %s)", r.Code, r.RemoteStatus, r.RemoteReason)
	}
	return fmt.Sprintf("%s (%v)", r.Code, r.Payload)
}
