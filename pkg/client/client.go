// Package client talks to a running smartcar-proxy over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kdious/smartcar-proxy/internal/log"
	"github.com/kdious/smartcar-proxy/pkg/adapter"
	"github.com/kdious/smartcar-proxy/pkg/connector"
)

const libraryName = "smartcar-client"

var ErrInvalidURL = errors.New("proxy URL must be an absolute http or https URL")

func buildUserAgent(app string) string {
	build, ok := debug.ReadBuildInfo()
	if !ok {
		return libraryName
	}
	path := strings.Split(build.Path, "/")
	if len(path) == 0 || path[len(path)-1] == "" {
		return libraryName
	}

	if app == "" {
		app = path[len(path)-1]
		var version string
		if build.Main.Version != "(devel)" && build.Main.Version != "" {
			version = build.Main.Version
		} else {
			for _, info := range build.Settings {
				if info.Key == "vcs.revision" {
					if len(info.Value) > 8 {
						version = info.Value[0:8]
					}
					break
				}
			}
		}

		if version != "" {
			app = fmt.Sprintf("%s/%s", app, version)
		}
	}

	return fmt.Sprintf("%s %s", app, libraryName)
}

// Error is returned when the proxy answers with a non-200 status. Body holds the proxy's
// plain-text reason.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("proxy returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("proxy returned HTTP %d: %s", e.Status, e.Body)
}

// Client issues normalized vehicle calls to a proxy.
type Client struct {
	// The default UserAgent is constructed from the build info, but can be overridden.
	UserAgent  string
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client for the proxy at baseURL, e.g. "http://localhost:8080".
func New(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}
	return &Client{
		UserAgent:  buildUserAgent(""),
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
	}, nil
}

func (c *Client) vehicleURL(vehicleID, resource string) string {
	u := c.BaseURL + "/vehicles/" + url.PathEscape(vehicleID)
	if resource != "" {
		u += "/" + resource
	}
	return u
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, reply interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	request.Header.Set("User-Agent", c.UserAgent)
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	log.Debug("Requesting %s %s", method, endpoint)

	result, err := c.HTTPClient.Do(request)
	if err != nil {
		return err
	}
	defer result.Body.Close()

	payload, err := io.ReadAll(&io.LimitedReader{R: result.Body, N: connector.MaxResponseLength + 1})
	if err != nil {
		return err
	}
	if len(payload) > connector.MaxResponseLength {
		return fmt.Errorf("response from %s exceeds %d bytes", endpoint, connector.MaxResponseLength)
	}
	log.Debug("Proxy answered %d: %s", result.StatusCode, payload)

	if result.StatusCode != http.StatusOK {
		return &Error{Status: result.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	if err := json.Unmarshal(payload, reply); err != nil {
		return fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, vehicleID, resource string, reply interface{}) error {
	return c.do(ctx, http.MethodGet, c.vehicleURL(vehicleID, resource), nil, reply)
}

func (c *Client) VehicleInfo(ctx context.Context, vehicleID string) (*adapter.VehicleInfo, error) {
	var info adapter.VehicleInfo
	if err := c.get(ctx, vehicleID, "", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Doors(ctx context.Context, vehicleID string) (adapter.DoorStatus, error) {
	var doors adapter.DoorStatus
	if err := c.get(ctx, vehicleID, "doors", &doors); err != nil {
		return nil, err
	}
	return doors, nil
}

func (c *Client) Fuel(ctx context.Context, vehicleID string) (*adapter.EnergyLevel, error) {
	return c.energy(ctx, vehicleID, adapter.EnergyFuel)
}

func (c *Client) Battery(ctx context.Context, vehicleID string) (*adapter.EnergyLevel, error) {
	return c.energy(ctx, vehicleID, adapter.EnergyBattery)
}

func (c *Client) energy(ctx context.Context, vehicleID string, kind adapter.EnergyKind) (*adapter.EnergyLevel, error) {
	var level adapter.EnergyLevel
	if err := c.get(ctx, vehicleID, string(kind), &level); err != nil {
		return nil, err
	}
	return &level, nil
}

// Engine asks the proxy to start or stop the engine. The action is sent as given so that the
// proxy, not the client, decides whether it is valid.
func (c *Client) Engine(ctx context.Context, vehicleID string, action adapter.EngineCommand) (*adapter.EngineResult, error) {
	body, err := json.Marshal(map[string]string{"action": string(action)})
	if err != nil {
		return nil, err
	}
	var result adapter.EngineResult
	if err := c.do(ctx, http.MethodPost, c.vehicleURL(vehicleID, "engine"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Report collects every read-only view of one vehicle.
type Report struct {
	Info    *adapter.VehicleInfo `json:"info,omitempty"`
	Doors   adapter.DoorStatus   `json:"doors,omitempty"`
	Fuel    *adapter.EnergyLevel `json:"fuel,omitempty"`
	Battery *adapter.EnergyLevel `json:"battery,omitempty"`
}

// All fetches info, doors, fuel and battery concurrently. The first failure cancels the
// remaining requests and is returned.
func (c *Client) All(ctx context.Context, vehicleID string) (*Report, error) {
	var mu sync.Mutex
	report := &Report{}
	g, ctx := errgroup.WithContext(ctx)

	record := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	record("info", func() error {
		info, err := c.VehicleInfo(ctx, vehicleID)
		if err != nil {
			return err
		}
		mu.Lock()
		report.Info = info
		mu.Unlock()
		return nil
	})
	record("doors", func() error {
		doors, err := c.Doors(ctx, vehicleID)
		if err != nil {
			return err
		}
		mu.Lock()
		report.Doors = doors
		mu.Unlock()
		return nil
	})
	record("fuel", func() error {
		level, err := c.Fuel(ctx, vehicleID)
		if err != nil {
			return err
		}
		mu.Lock()
		report.Fuel = level
		mu.Unlock()
		return nil
	})
	record("battery", func() error {
		level, err := c.Battery(ctx, vehicleID)
		if err != nil {
			return err
		}
		mu.Lock()
		report.Battery = level
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}
