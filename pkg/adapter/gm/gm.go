// Package gm adapts the normalized vehicle API onto the GM vendor API.
//
// Every GM service is a POST that takes {"id", "responseType"} and answers with an envelope whose
// "status" field mirrors an HTTP status code. Scalars in the reply are wrapped in
// {"type", "value"} objects with string values, which this package unwraps into the types defined
// by package adapter.
package gm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kdious/smartcar-proxy/internal/log"
	"github.com/kdious/smartcar-proxy/pkg/adapter"
	"github.com/kdious/smartcar-proxy/pkg/connector"
	"github.com/kdious/smartcar-proxy/pkg/protocol"
)

// DefaultBaseURL is the public GM API endpoint.
const DefaultBaseURL = "http://gmapi.azurewebsites.net/"

// Adapter implements adapter.Adapter for GM vehicles.
type Adapter struct {
	conn connector.Connector
}

var _ adapter.Adapter = (*Adapter)(nil)

// New returns an Adapter that reaches GM through conn.
func New(conn connector.Connector) *Adapter {
	return &Adapter{conn: conn}
}

// decodeFunc converts a 200 reply body into a normalized payload.
type decodeFunc func(body []byte) (interface{}, error)

// send performs the vendor call on its own goroutine and reports the result through cb.
func (a *Adapter) send(ctx context.Context, txn adapter.TransactionID, service string, request vendorRequest, cb adapter.Callback, decode decodeFunc) {
	log.Debug("[txn %d] Sending request to %s for id: %s", txn, service, request.ID)
	go func() {
		body, err := a.conn.Post(ctx, service, request)
		result := interpret(txn, service, body, err, decode)
		log.Debug("[txn %d] %s returned %s", txn, service, result)
		cb(txn, result)
	}()
}

func interpret(txn adapter.TransactionID, service string, body []byte, err error, decode decodeFunc) protocol.Result {
	if err != nil {
		var httpErr *protocol.HttpError
		if errors.As(err, &httpErr) {
			var env envelope
			if body != nil && decodeReply(body, &env) == nil && env.Reason != "" {
				err = &protocol.HttpError{Code: httpErr.Code, Message: env.Reason}
			}
		}
		result := protocol.ResultFromError(err)
		if service == serviceEngineAction && protocol.MayHaveSucceeded(err) {
			log.Warning("[txn %d] Couldn't verify whether the vendor executed the engine command", txn)
		}
		if protocol.Temporary(err) {
			log.Warning("[txn %d] %s failed with status %d, possibly transient: %s", txn, service, result.RemoteStatus, result.RemoteReason)
		} else {
			log.Error("[txn %d] %s failed with status %d: %s", txn, service, result.RemoteStatus, result.RemoteReason)
		}
		return result
	}

	var env envelope
	if err := decodeReply(body, &env); err != nil {
		log.Error("[txn %d] %s: %s", txn, service, err)
		return protocol.ResultFromError(fmt.Errorf("%w: %s", protocol.ErrBadResponse, err))
	}
	if status := env.code(); status != http.StatusOK {
		reason := env.Reason
		if reason == "" {
			reason = http.StatusText(status)
		}
		log.Error("[txn %d] Error - Status code: %d (%s)", txn, status, reason)
		return protocol.RemoteServerError(status, reason)
	}

	payload, err := decode(body)
	if err != nil {
		log.Error("[txn %d] %s: %s", txn, service, err)
		return protocol.ResultFromError(fmt.Errorf("%w: %s", protocol.ErrBadResponse, err))
	}
	return protocol.Success(payload)
}

func newRequest(vehicleID string) vendorRequest {
	return vendorRequest{ID: vehicleID, ResponseType: responseTypeJSON}
}

// GetVehicleInfo reports the VIN, color, door count, and drive train of a vehicle.
func (a *Adapter) GetVehicleInfo(ctx context.Context, txn adapter.TransactionID, vehicleID string, cb adapter.Callback) {
	a.send(ctx, txn, serviceVehicleInfo, newRequest(vehicleID), cb, decodeVehicleInfo)
}

func decodeVehicleInfo(body []byte) (interface{}, error) {
	var reply vehicleInfoReply
	if err := decodeReply(body, &reply); err != nil {
		return nil, err
	}
	if reply.Data == nil {
		return nil, errors.New("missing data")
	}
	info := adapter.VehicleInfo{
		VIN:        reply.Data.VIN.Value,
		Color:      reply.Data.Color.Value,
		DriveTrain: reply.Data.DriveTrain.Value,
	}
	if strings.EqualFold(reply.Data.FourDoorSedan.Value, "true") {
		info.DoorCount = 4
	} else if strings.EqualFold(reply.Data.TwoDoorCoupe.Value, "true") {
		info.DoorCount = 2
	}
	return info, nil
}

// GetSecurityStatus reports the lock state of every door the vendor knows about.
func (a *Adapter) GetSecurityStatus(ctx context.Context, txn adapter.TransactionID, vehicleID string, cb adapter.Callback) {
	a.send(ctx, txn, serviceSecurityStatus, newRequest(vehicleID), cb, decodeSecurityStatus)
}

func decodeSecurityStatus(body []byte) (interface{}, error) {
	var reply securityStatusReply
	if err := decodeReply(body, &reply); err != nil {
		return nil, err
	}
	if reply.Data == nil {
		return nil, errors.New("missing data")
	}
	doors := make(adapter.DoorStatus, len(reply.Data.Doors.Values))
	for _, door := range reply.Data.Doors.Values {
		locked, err := door.Locked.boolean()
		if err != nil {
			return nil, fmt.Errorf("door %s: %w", door.Location.Value, err)
		}
		doors[door.Location.Value] = locked
	}
	return doors, nil
}

// GetEnergyInfo reports the fuel tank or battery level of a vehicle, depending on kind.
func (a *Adapter) GetEnergyInfo(ctx context.Context, txn adapter.TransactionID, vehicleID string, kind adapter.EnergyKind, cb adapter.Callback) {
	if kind != adapter.EnergyFuel && kind != adapter.EnergyBattery {
		log.Error("[txn %d] Invalid input: requestType = %s", txn, kind)
		cb(txn, protocol.InvalidInput(fmt.Sprintf("Invalid input: requestType = %s", kind)))
		return
	}
	a.send(ctx, txn, serviceEnergy, newRequest(vehicleID), cb, func(body []byte) (interface{}, error) {
		return decodeEnergy(body, kind)
	})
}

func decodeEnergy(body []byte, kind adapter.EnergyKind) (interface{}, error) {
	var reply energyReply
	if err := decodeReply(body, &reply); err != nil {
		return nil, err
	}
	if reply.Data == nil {
		return nil, errors.New("missing data")
	}
	level := reply.Data.TankLevel
	if kind == adapter.EnergyBattery {
		level = reply.Data.BatteryLevel
	}
	percent, err := level.number()
	if err != nil {
		return nil, fmt.Errorf("%s level: %w", kind, err)
	}
	return adapter.EnergyLevel{Percent: percent}, nil
}

// StartStopEngine asks the vendor to start or stop the engine. Commands other than START and STOP
// are rejected without contacting the vendor.
func (a *Adapter) StartStopEngine(ctx context.Context, txn adapter.TransactionID, vehicleID string, command adapter.EngineCommand, cb adapter.Callback) {
	request := newRequest(vehicleID)
	switch command {
	case adapter.EngineStart:
		request.Command = commandStartVehicle
	case adapter.EngineStop:
		request.Command = commandStopVehicle
	default:
		log.Error("[txn %d] Invalid input: command = %s", txn, command)
		cb(txn, protocol.InvalidInput(fmt.Sprintf("Invalid input: command = %s", command)))
		return
	}
	a.send(ctx, txn, serviceEngineAction, request, cb, decodeEngineAction)
}

func decodeEngineAction(body []byte) (interface{}, error) {
	var reply engineActionReply
	if err := decodeReply(body, &reply); err != nil {
		return nil, err
	}
	if reply.ActionResult == nil {
		return nil, errors.New("missing actionResult")
	}
	if reply.ActionResult.Status == actionExecuted {
		return adapter.EngineResult{Status: adapter.EngineStatusSuccess}, nil
	}
	return adapter.EngineResult{Status: adapter.EngineStatusError}, nil
}
