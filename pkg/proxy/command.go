package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kdious/smartcar-proxy/internal/dispatcher"
	"github.com/kdious/smartcar-proxy/pkg/adapter"
)

const maxRequestBodyBytes = 512

// ErrBadParameters is returned when a request body cannot be parsed.
var ErrBadParameters = errors.New("error occurred while parsing request parameters")

// EngineParameters is the body of POST /vehicles/{id}/engine.
type EngineParameters struct {
	Action string `json:"action"`
}

// ExtractEngineRequest parses an engine request body. The action is not validated here; the
// adapter answers unrecognized actions with invalid input.
func ExtractEngineRequest(vehicleID string, body io.Reader) (dispatcher.Request, error) {
	var params EngineParameters
	decoder := json.NewDecoder(io.LimitReader(body, maxRequestBodyBytes+1))
	if err := decoder.Decode(&params); err != nil {
		return dispatcher.Request{}, fmt.Errorf("%w: %s", ErrBadParameters, err)
	}
	return dispatcher.Request{
		Operation: dispatcher.OpEngine,
		VehicleID: vehicleID,
		Command:   adapter.EngineCommand(params.Action),
	}, nil
}
