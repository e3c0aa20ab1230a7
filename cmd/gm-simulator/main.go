package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kdious/smartcar-proxy/internal/gmtest"
	"github.com/kdious/smartcar-proxy/internal/log"
)

func main() {
	var (
		addr    string
		delay   time.Duration
		verbose bool
	)
	flag.StringVar(&addr, "addr", "localhost:8090", "`Address` to listen on")
	flag.DurationVar(&delay, "delay", 0, "Hold back every reply for this long")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage: %s [OPTION...]\n", os.Args[0])
		fmt.Fprintf(out, "\nServes the GM vehicle fixtures 1234 and 1235 for running smartcar-proxy offline.\n\n")
		fmt.Fprintln(out, "Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	if verbose {
		log.SetLevel(log.LevelDebug)
	}

	sim := gmtest.NewServer()
	if delay > 0 {
		sim.Delay = func(gmtest.Request) time.Duration { return delay }
	}
	log.Info("Serving GM fixtures on http://%s", addr)
	server := &http.Server{Addr: addr, Handler: sim.Handler(), ReadHeaderTimeout: 10 * time.Second}
	log.Error("Server stopped: %s", server.ListenAndServe())
	os.Exit(1)
}
