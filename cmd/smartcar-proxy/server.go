package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/kdious/smartcar-proxy/internal/dispatcher"
	"github.com/kdious/smartcar-proxy/internal/log"
	"github.com/kdious/smartcar-proxy/internal/metrics"
	"github.com/kdious/smartcar-proxy/pkg/adapter/gm"
	"github.com/kdious/smartcar-proxy/pkg/cli"
	"github.com/kdious/smartcar-proxy/pkg/connector/inet"
	"github.com/kdious/smartcar-proxy/pkg/proxy"
)

// In-flight requests finish within the vendor timeout, so shutdown waits that long plus this.
const shutdownGrace = 5 * time.Second

type server struct {
	http       *http.Server
	dispatcher *dispatcher.Dispatcher
	useTLS     bool
	certFile   string
	keyFile    string
	drainFor   time.Duration
}

// newServer wires the GM adapter, dispatcher and HTTP proxy described by config.
func newServer(config *cli.Config) (*server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.InitMetrics(reg)

	conn, err := inet.NewConnection(config.VendorURL, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("vendor connection: %w", err)
	}
	conn.Observe = m.ObserveVendorRequest
	log.Info("Forwarding vehicle requests to %s", conn.BaseURL())

	d := dispatcher.New(gm.New(conn), dispatcher.Options{
		Timeout:         config.Timeout,
		MaxTransactions: config.MaxTransactions,
		Metrics:         m,
	})

	opts := proxy.Options{Metrics: m}
	if config.Metrics {
		opts.MetricsHandler = metrics.Handler(reg)
	}

	// To add more application logic, such as client authentication, wrap the proxy in a handler
	// that performs it and then invokes the proxy's ServeHTTP method.
	return &server{
		http: &http.Server{
			Handler:           proxy.New(d, opts),
			ReadHeaderTimeout: 10 * time.Second,
		},
		dispatcher: d,
		useTLS:     config.TLS(),
		certFile:   config.CertFilename,
		keyFile:    config.KeyFilename,
		drainFor:   config.Timeout + shutdownGrace,
	}, nil
}

func (s *server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done, then drains in-flight requests and
// aborts whatever is still waiting on the vendor.
func (s *server) Serve(ctx context.Context, listener net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if s.useTLS {
			log.Info("Listening on https://%s", listener.Addr())
			err = s.http.ServeTLS(listener, s.certFile, s.keyFile)
		} else {
			log.Info("Listening on http://%s", listener.Addr())
			err = s.http.Serve(listener)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.drainFor)
		defer cancel()
		err := s.http.Shutdown(shutdownCtx)
		s.dispatcher.Close()
		if err != nil {
			log.Error("Server shutdown: %s", err)
			s.http.Close()
		}
		return nil
	})

	err := g.Wait()
	log.Info("Server stopped")
	return err
}
