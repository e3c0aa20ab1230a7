package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kdious/smartcar-proxy/internal/log"
	"github.com/kdious/smartcar-proxy/pkg/cli"
)

const nonLocalhostWarning = `
Do not listen on a network interface without adding client authentication. Unauthorized clients may
be used to create excessive traffic from your IP address to the vendor's servers, which the vendor
may respond to by rate limiting or blocking your connections.`

func Usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [OPTION...]\n", os.Args[0])
	fmt.Fprintf(out, "\nA server that exposes the Smartcar vehicle API on top of the GM vendor API")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, nonLocalhostWarning)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	flag.PrintDefaults()
}

func main() {
	config := cli.NewConfig()
	flag.Usage = Usage
	config.RegisterCommandLineFlags(flag.CommandLine)
	flag.Parse()

	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	}()

	if err = config.Load(flag.CommandLine); err != nil {
		return
	}
	level, err := config.Level()
	if err != nil {
		return
	}
	log.SetLevel(level)

	if config.Host != "localhost" {
		fmt.Fprintln(os.Stderr, nonLocalhostWarning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	log.Debug("Creating proxy")
	var s *server
	if s, err = newServer(config); err != nil {
		return
	}
	err = s.ListenAndServe(ctx, config.Addr())
}
