package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/kdious/smartcar-proxy/internal/dispatcher"
	"github.com/kdious/smartcar-proxy/internal/log"
	"github.com/kdious/smartcar-proxy/internal/metrics"
	"github.com/kdious/smartcar-proxy/pkg/adapter"
	"github.com/kdious/smartcar-proxy/pkg/protocol"
)

const requestIDHeader = "X-Request-Id"

// StatusClientClosedRequest is recorded for requests whose client went away before the vendor
// answered. Nothing reaches the client; the status only shows up in logs and metrics.
const StatusClientClosedRequest = 499

// Dispatcher starts normalized calls and finalizes caller exactly once when they complete.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatcher.Request, caller dispatcher.Caller)
}

type Options struct {
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// MetricsHandler, if set, is served at /metrics.
	MetricsHandler http.Handler
}

// Proxy exposes an HTTP API for reading vehicle state and sending engine commands.
type Proxy struct {
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	router     chi.Router
}

// New creates an http proxy that serves calls through d.
func New(d Dispatcher, opts Options) *Proxy {
	p := &Proxy{dispatcher: d, metrics: opts.Metrics}
	p.router = p.routes(opts.MetricsHandler)
	return p
}

func (p *Proxy) routes(metricsHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	r.Use(p.metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeResponse(w, http.StatusOK, "ok")
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Get("/vehicles/{id}", p.handleRead(dispatcher.OpVehicleInfo, ""))
	r.Get("/vehicles/{id}/doors", p.handleRead(dispatcher.OpDoors, ""))
	r.Get("/vehicles/{id}/fuel", p.handleRead(dispatcher.OpEnergy, adapter.EnergyFuel))
	r.Get("/vehicles/{id}/battery", p.handleRead(dispatcher.OpEnergy, adapter.EnergyBattery))
	r.Post("/vehicles/{id}/engine", p.handleEngine)
	return r
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.router.ServeHTTP(w, req)
}

func (p *Proxy) handleRead(op dispatcher.Operation, kind adapter.EnergyKind) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		p.serve(w, req, dispatcher.Request{
			Operation: op,
			VehicleID: vehicleID(req),
			Kind:      kind,
		})
	}
}

func (p *Proxy) handleEngine(w http.ResponseWriter, req *http.Request) {
	call, err := ExtractEngineRequest(vehicleID(req), req.Body)
	if err != nil {
		log.Warning("Rejecting engine request: %s", err)
		writeResponse(w, http.StatusBadRequest, ErrBadParameters.Error())
		return
	}
	p.serve(w, req, call)
}

// vehicleID returns the decoded {id} path segment. chi matches against the escaped path when the
// id contains a reserved character such as "/".
func vehicleID(req *http.Request) string {
	id := chi.URLParam(req, "id")
	if decoded, err := url.PathUnescape(id); err == nil {
		return decoded
	}
	return id
}

// serve dispatches call and blocks until it is finalized or the client goes away.
func (p *Proxy) serve(w http.ResponseWriter, req *http.Request, call dispatcher.Request) {
	pending := newPendingCall()
	p.dispatcher.Dispatch(req.Context(), call, pending)
	select {
	case r := <-pending.done:
		writeResponse(w, r.status, r.body)
	case <-req.Context().Done():
		log.Warning("Client disconnected before %s for vehicle %s completed", call.Operation, call.VehicleID)
		w.WriteHeader(StatusClientClosedRequest)
	}
}

type response struct {
	status int
	body   interface{}
}

// pendingCall implements dispatcher.Caller for an in-flight HTTP request.
type pendingCall struct {
	done chan response
}

func newPendingCall() *pendingCall {
	return &pendingCall{done: make(chan response, 1)}
}

func (c *pendingCall) Finalize(status int, body interface{}) {
	select {
	case c.done <- response{status: status, body: body}:
	default:
		log.Error("Dropping duplicate response %d", status)
	}
}

// writeResponse sends strings as plain text and everything else as JSON.
func writeResponse(w http.ResponseWriter, status int, body interface{}) {
	if text, ok := body.(string); ok {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(text))
		return
	}
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		log.Error("Error serializing reply %+v: %s", body, err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(protocol.InternalServerErrorMessage))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonBytes)
}

// accessLog tags each request with an id and logs it once the response has been written.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Info("[%s] %s %s %d %dB %s", id, req.Method, req.URL.Path, status, ww.BytesWritten(), time.Since(start))
	})
}
