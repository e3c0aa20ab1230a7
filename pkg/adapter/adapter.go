// Package adapter defines the normalized vehicle API schema and the interface that
// manufacturer-specific adapters implement to serve it.
//
// An Adapter translates one normalized operation into exactly one vendor request and the vendor
// response into a [protocol.Result]. Adapter methods never block on the vendor: they return as
// soon as the request has been handed off, and report the outcome later by invoking the supplied
// [Callback] exactly once with the transaction ID they were given.
package adapter

import (
	"context"

	"github.com/kdious/smartcar-proxy/pkg/protocol"
)

//go:generate mockgen -destination=../../mocks/adapter.go -package=mocks -mock_names=Adapter=Adapter github.com/kdious/smartcar-proxy/pkg/adapter Adapter

// TransactionID correlates an adapter call with the inbound request that triggered it.
type TransactionID uint64

// Callback delivers the outcome of an adapter call.
type Callback func(txn TransactionID, result protocol.Result)

// EnergyKind selects which energy level GetEnergyInfo reports.
type EnergyKind string

const (
	EnergyFuel    EnergyKind = "fuel"
	EnergyBattery EnergyKind = "battery"
)

// EngineCommand is the action requested by POST /vehicles/{id}/engine.
type EngineCommand string

const (
	EngineStart EngineCommand = "START"
	EngineStop  EngineCommand = "STOP"
)

// Engine action outcomes.
const (
	EngineStatusSuccess = "success"
	EngineStatusError   = "error"
)

// VehicleInfo is the body of GET /vehicles/{id}.
type VehicleInfo struct {
	VIN        string `json:"vin"`
	Color      string `json:"color"`
	DoorCount  int    `json:"doorCount"`
	DriveTrain string `json:"driveTrain"`
}

// DoorStatus maps each door location reported by the vendor to whether it is locked. It is the
// body of GET /vehicles/{id}/doors.
type DoorStatus map[string]bool

// EnergyLevel is the body of GET /vehicles/{id}/fuel and GET /vehicles/{id}/battery. Percent is
// nil when the vehicle has no such energy source.
type EnergyLevel struct {
	Percent *float64 `json:"percent"`
}

// EngineResult is the body of POST /vehicles/{id}/engine.
type EngineResult struct {
	Status string `json:"status"`
}

// Adapter is implemented by each manufacturer integration.
//
// Implementations must be safe for concurrent use and must invoke cb exactly once per call. cb
// may run on any goroutine, including before the method returns when a call is rejected without
// contacting the vendor.
type Adapter interface {
	GetVehicleInfo(ctx context.Context, txn TransactionID, vehicleID string, cb Callback)
	GetSecurityStatus(ctx context.Context, txn TransactionID, vehicleID string, cb Callback)
	GetEnergyInfo(ctx context.Context, txn TransactionID, vehicleID string, kind EnergyKind, cb Callback)
	StartStopEngine(ctx context.Context, txn TransactionID, vehicleID string, command EngineCommand, cb Callback)
}
