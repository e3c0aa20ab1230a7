package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"
	"golang.org/x/term"

	"github.com/kdious/smartcar-proxy/internal/log"
	"github.com/kdious/smartcar-proxy/pkg/client"
)

const (
	EnvServer  = "SMARTCAR_PROXY_URL"
	EnvVerbose = "SMARTCAR_VERBOSE"

	defaultServer = "http://localhost:8081"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Commands are sent to the proxy given by -server, which defaults to $` + EnvServer + `.
 * Run without a COMMAND to read commands from standard input.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(c *client.Client, args []string, timeout time.Duration, out io.Writer) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := execute(ctx, c, args, out); err != nil {
		var proxyErr *client.Error
		if errors.As(err, &proxyErr) {
			writeErr("Proxy rejected command (HTTP %d): %s", proxyErr.Status, proxyErr.Body)
		} else if errors.Is(err, context.DeadlineExceeded) {
			writeErr("Timed out after %s", timeout)
		} else {
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

// runInteractiveShell reads one command per line from in. A prompt is printed only when prompt
// is true.
func runInteractiveShell(c *client.Client, timeout time.Duration, in io.Reader, out io.Writer, prompt bool) int {
	showPrompt := func() {
		if prompt {
			fmt.Fprintf(out, "> ")
		}
	}
	status := 0
	scanner := bufio.NewScanner(in)
	for showPrompt(); scanner.Scan(); showPrompt() {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return status
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		status = runCommand(c, args, timeout, out)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return status
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		debug   bool
		server  string
		timeout time.Duration
	)
	flag.Usage = Usage
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.StringVar(&server, "server", "", "Proxy base `URL`. Defaults to $"+EnvServer+" or "+defaultServer+".")
	flag.DurationVar(&timeout, "timeout", 15*time.Second, "Set timeout for each command.")
	flag.Parse()

	if !debug {
		if debugEnv, ok := os.LookupEnv(EnvVerbose); ok {
			debug = debugEnv != "false" && debugEnv != "0"
		}
	}
	if debug {
		log.SetLevel(log.LevelDebug)
	}
	if server == "" {
		server = os.Getenv(EnvServer)
	}
	if server == "" {
		server = defaultServer
	}

	args := flag.Args()
	if len(args) > 0 && args[0] == "help" {
		if len(args) == 1 {
			Usage()
			status = 0
			return
		}
		info, ok := commands[args[1]]
		if !ok {
			writeErr("Unrecognized command: %s", args[1])
			return
		}
		info.Usage(os.Stdout, args[1])
		status = 0
		return
	}

	c, err := client.New(server)
	if err != nil {
		writeErr("Error: %s", err)
		return
	}

	if flag.NArg() > 0 {
		status = runCommand(c, flag.Args(), timeout, os.Stdout)
	} else {
		status = runInteractiveShell(c, timeout, os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
	}
}
