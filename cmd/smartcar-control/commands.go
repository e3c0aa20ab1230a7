package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kdious/smartcar-proxy/pkg/adapter"
	"github.com/kdious/smartcar-proxy/pkg/client"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
)

type Argument struct {
	name string
	help string
}

type Handler func(ctx context.Context, c *client.Client, args map[string]string) (interface{}, error)

type Command struct {
	help     string
	args     []Argument
	optional []Argument
	handler  Handler
}

var vehicleArg = Argument{name: "ID", help: "Vehicle id"}

// execute runs the command named by args[0] and prints its result to out as JSON.
func execute(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}
	info, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}

	var err error
	if len(args)-1 < len(info.args) || len(args)-1 > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command line arguments: %d (%d required, %d optional).", len(args)-1, len(info.args), len(info.optional))
		err = ErrCommandLineArgs
	} else {
		keywords := make(map[string]string)
		for i, argInfo := range info.args {
			keywords[argInfo.name] = args[i+1]
		}
		index := len(info.args) + 1
		for _, argInfo := range info.optional {
			if index >= len(args) {
				break
			}
			keywords[argInfo.name] = args[index]
			index++
		}
		var result interface{}
		if result, err = info.handler(ctx, c, keywords); err == nil {
			err = printJSON(out, result)
		}
	}

	// Print command-specific help
	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(out, args[0])
	}
	return err
}

func printJSON(out io.Writer, v interface{}) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", encoded)
	return err
}

func (c *Command) Usage(out io.Writer, name string) {
	fmt.Fprintf(out, "Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Fprintf(out, " %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(out, " [")
	}
	for _, arg := range c.optional {
		fmt.Fprintf(out, " %s", arg.name)
		if len(arg.name) > maxLength {
			maxLength = len(arg.name)
		}
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(out, " ]")
	}
	fmt.Fprintf(out, "\n%s\n", c.help)
	maxLength++
	for _, arg := range c.args {
		fmt.Fprintf(out, "    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
	for _, arg := range c.optional {
		fmt.Fprintf(out, "    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

var commands = map[string]*Command{
	"info": &Command{
		help: "Fetch VIN, color, door count and drive train",
		args: []Argument{vehicleArg},
		handler: func(ctx context.Context, c *client.Client, args map[string]string) (interface{}, error) {
			return c.VehicleInfo(ctx, args["ID"])
		},
	},
	"doors": &Command{
		help: "Fetch the lock state of each door",
		args: []Argument{vehicleArg},
		handler: func(ctx context.Context, c *client.Client, args map[string]string) (interface{}, error) {
			return c.Doors(ctx, args["ID"])
		},
	},
	"fuel": &Command{
		help: "Fetch the fuel tank level",
		args: []Argument{vehicleArg},
		handler: func(ctx context.Context, c *client.Client, args map[string]string) (interface{}, error) {
			return c.Fuel(ctx, args["ID"])
		},
	},
	"battery": &Command{
		help: "Fetch the battery charge level",
		args: []Argument{vehicleArg},
		handler: func(ctx context.Context, c *client.Client, args map[string]string) (interface{}, error) {
			return c.Battery(ctx, args["ID"])
		},
	},
	"engine": &Command{
		help: "Start or stop the engine",
		args: []Argument{
			vehicleArg,
			Argument{name: "ACTION", help: "START or STOP"},
		},
		handler: func(ctx context.Context, c *client.Client, args map[string]string) (interface{}, error) {
			return c.Engine(ctx, args["ID"], adapter.EngineCommand(strings.ToUpper(args["ACTION"])))
		},
	},
	"all": &Command{
		help: "Fetch info, doors, fuel and battery in parallel",
		args: []Argument{vehicleArg},
		handler: func(ctx context.Context, c *client.Client, args map[string]string) (interface{}, error) {
			return c.All(ctx, args["ID"])
		},
	},
}
