package dispatcher

import (
	"context"
	"time"

	"github.com/kdious/smartcar-proxy/pkg/adapter"
)

// Caller is the pending inbound call a transaction answers. Finalize is invoked exactly once.
type Caller interface {
	Finalize(status int, body interface{})
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(status int, body interface{})

func (f CallerFunc) Finalize(status int, body interface{}) {
	f(status, body)
}

// Operation names a normalized capability.
type Operation string

const (
	OpVehicleInfo Operation = "vehicle_info"
	OpDoors       Operation = "doors"
	OpEnergy      Operation = "energy"
	OpEngine      Operation = "engine"
)

// Request describes one normalized call. Kind is used by OpEnergy and Command by OpEngine.
type Request struct {
	Operation Operation
	VehicleID string
	Kind      adapter.EnergyKind
	Command   adapter.EngineCommand
}

// Transaction is one inbound call awaiting its vendor result.
type Transaction struct {
	ID        adapter.TransactionID
	Operation Operation
	VehicleID string
	Caller    Caller
	Opened    time.Time

	// cancel releases the vendor call's context and its timeout watchdog.
	cancel context.CancelFunc
}
