// Package dispatcher correlates inbound calls with the asynchronous completions of vendor
// adapter calls.
//
// Each call opens a Transaction in a Registry, hands its ID to the adapter, and finalizes the
// caller when the adapter's callback returns that ID. A per-transaction timeout guarantees
// every caller is finalized even if the vendor never answers; whichever completion arrives
// first wins and the other is dropped.
package dispatcher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/kdious/smartcar-proxy/internal/log"
	"github.com/kdious/smartcar-proxy/internal/metrics"
	"github.com/kdious/smartcar-proxy/pkg/adapter"
	"github.com/kdious/smartcar-proxy/pkg/protocol"
)

// DefaultTimeout is how long a transaction waits for the vendor when Options.Timeout is unset.
const DefaultTimeout = 10 * time.Second

const (
	BusyMessage     = "server busy"
	ShutdownMessage = "server shutting down"
	TimeoutReason   = "Gateway Timeout: vendor did not respond"
)

type Options struct {
	Timeout         time.Duration
	MaxTransactions int
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

type Dispatcher struct {
	adapter  adapter.Adapter
	registry *Registry
	timeout  time.Duration
	metrics  *metrics.Metrics

	closeLock sync.RWMutex
	closed    bool
}

// New creates a Dispatcher that serves calls with a.
func New(a adapter.Adapter, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Dispatcher{
		adapter:  a,
		registry: NewRegistry(opts.MaxTransactions),
		timeout:  opts.Timeout,
		metrics:  opts.Metrics,
	}
}

// Pending returns the number of transactions awaiting completion.
func (d *Dispatcher) Pending() int {
	return d.registry.Len()
}

func (d *Dispatcher) VehicleInfo(ctx context.Context, vehicleID string, caller Caller) {
	d.Dispatch(ctx, Request{Operation: OpVehicleInfo, VehicleID: vehicleID}, caller)
}

func (d *Dispatcher) Doors(ctx context.Context, vehicleID string, caller Caller) {
	d.Dispatch(ctx, Request{Operation: OpDoors, VehicleID: vehicleID}, caller)
}

func (d *Dispatcher) Energy(ctx context.Context, vehicleID string, kind adapter.EnergyKind, caller Caller) {
	d.Dispatch(ctx, Request{Operation: OpEnergy, VehicleID: vehicleID, Kind: kind}, caller)
}

func (d *Dispatcher) Engine(ctx context.Context, vehicleID string, command adapter.EngineCommand, caller Caller) {
	d.Dispatch(ctx, Request{Operation: OpEngine, VehicleID: vehicleID, Command: command}, caller)
}

// Dispatch opens a transaction for req and starts the matching adapter call. It returns without
// waiting for the vendor; caller is finalized exactly once, possibly before Dispatch returns.
//
// Cancellation of ctx does not abort the transaction. Its values are passed on to the adapter.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, caller Caller) {
	txn := &Transaction{
		Operation: req.Operation,
		VehicleID: req.VehicleID,
		Caller:    caller,
		Opened:    time.Now(),
	}
	vendorCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	txn.cancel = cancel

	id, err := d.open(txn)
	if err != nil {
		cancel()
		message := BusyMessage
		if errors.Is(err, errClosed) {
			message = ShutdownMessage
		}
		log.Warning("Rejecting %s for vehicle %s: %s (%d of %d transactions open)", req.Operation, req.VehicleID, err, d.registry.Len(), d.registry.Cap())
		caller.Finalize(http.StatusServiceUnavailable, message)
		return
	}
	d.metrics.SetTransactionsOpen(d.registry.Len())
	log.Debug("[txn %d] Opened %s for vehicle %s", id, req.Operation, req.VehicleID)

	context.AfterFunc(vendorCtx, func() {
		if errors.Is(vendorCtx.Err(), context.DeadlineExceeded) {
			log.Warning("[txn %d] No vendor response after %s", id, d.timeout)
			d.complete(id, protocol.RemoteServerError(http.StatusGatewayTimeout, TimeoutReason))
		}
	})

	switch req.Operation {
	case OpVehicleInfo:
		d.adapter.GetVehicleInfo(vendorCtx, id, req.VehicleID, d.complete)
	case OpDoors:
		d.adapter.GetSecurityStatus(vendorCtx, id, req.VehicleID, d.complete)
	case OpEnergy:
		d.adapter.GetEnergyInfo(vendorCtx, id, req.VehicleID, req.Kind, d.complete)
	case OpEngine:
		d.adapter.StartStopEngine(vendorCtx, id, req.VehicleID, req.Command, d.complete)
	default:
		log.Error("[txn %d] Unrecognized operation '%s'", id, req.Operation)
		d.complete(id, protocol.UnknownCommand(string(req.Operation)))
	}
}

var errClosed = errors.New("dispatcher: closed")

func (d *Dispatcher) open(txn *Transaction) (adapter.TransactionID, error) {
	d.closeLock.RLock()
	defer d.closeLock.RUnlock()
	if d.closed {
		return 0, errClosed
	}
	return d.registry.Open(txn)
}

// complete is the adapter.Callback handed to every adapter call.
func (d *Dispatcher) complete(id adapter.TransactionID, result protocol.Result) {
	txn, err := d.registry.Take(id)
	if err != nil {
		log.Warning("[txn %d] Dropping completion %s: %s", id, result, err)
		return
	}
	txn.cancel()
	d.metrics.SetTransactionsOpen(d.registry.Len())
	d.metrics.RecordTransaction(string(txn.Operation), result.Code.String())

	status, body := protocol.Translate(result)
	log.Debug("[txn %d] %s for vehicle %s completed in %s: %d", id, txn.Operation, txn.VehicleID, time.Since(txn.Opened), status)
	txn.Caller.Finalize(status, body)
}

// Close rejects further calls and finalizes every open transaction with 503. Adapter results
// that arrive afterwards are dropped.
func (d *Dispatcher) Close() {
	d.closeLock.Lock()
	d.closed = true
	d.closeLock.Unlock()

	for _, txn := range d.registry.Drain() {
		txn.cancel()
		log.Warning("[txn %d] Aborting %s for vehicle %s", txn.ID, txn.Operation, txn.VehicleID)
		txn.Caller.Finalize(http.StatusServiceUnavailable, ShutdownMessage)
	}
	d.metrics.SetTransactionsOpen(0)
}
