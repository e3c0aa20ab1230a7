// Package inet implements connector.Connector over JSON-over-HTTP.
package inet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kdious/smartcar-proxy/internal/log"
	"github.com/kdious/smartcar-proxy/pkg/connector"
	"github.com/kdious/smartcar-proxy/pkg/protocol"
)

const defaultUserAgent = "smartcar-proxy/1.0"

func ReadWithContext(ctx context.Context, r io.Reader, p []byte) ([]byte, error) {
	bytesRead := 0
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		n, err := r.Read(p[bytesRead:])
		bytesRead += n
		if err == io.EOF {
			return p[:bytesRead], nil
		}
		if err != nil {
			return p[:bytesRead], err
		}
		if bytesRead == len(p) {
			return p[:bytesRead], nil
		}
	}
}

// SendVendorRequest POSTs command to url and returns the response body. The response body is not
// necessarily nil if the error is set.
func SendVendorRequest(ctx context.Context, client *http.Client, userAgent, url string, command interface{}) (int, []byte, error) {
	var body []byte
	var ok bool
	if body, ok = command.([]byte); !ok {
		var err error
		body, err = json.Marshal(command)
		if err != nil {
			return 0, nil, err
		}
	}
	log.Debug("Sending request to %s: %s", url, body)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, &protocol.CommandError{Err: err, PossibleSuccess: false, PossibleTemporary: false}
	}

	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	result, err := client.Do(request)
	if err != nil {
		return 0, nil, &protocol.CommandError{Err: fmt.Errorf("%w: %w", protocol.ErrVendorUnreachable, err), PossibleSuccess: false, PossibleTemporary: true}
	}
	defer result.Body.Close()

	body = make([]byte, connector.MaxResponseLength+1)
	body, err = ReadWithContext(ctx, result.Body, body)
	if err != nil {
		return result.StatusCode, nil, &protocol.CommandError{Err: err, PossibleSuccess: true, PossibleTemporary: false}
	}

	if len(body) == connector.MaxResponseLength+1 {
		return result.StatusCode, nil, protocol.ErrResponseTooLong
	}

	log.Debug("Server returned %d: %s: %s", result.StatusCode, http.StatusText(result.StatusCode), body)
	if result.StatusCode != http.StatusOK {
		return result.StatusCode, body, &protocol.HttpError{Code: result.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return result.StatusCode, body, nil
}

// Connection implements the connector.Connector interface by POSTing requests to a vendor base
// URL.
type Connection struct {
	UserAgent string
	Observe   connector.Observer
	client    http.Client
	baseURL   *url.URL
}

// NewConnection creates a Connection. Services are resolved relative to baseURL, which must be
// an absolute http or https URL.
func NewConnection(baseURL string, client *http.Client) (*Connection, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid vendor URL: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid vendor URL '%s': expected absolute http(s) URL", baseURL)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	conn := Connection{
		UserAgent: defaultUserAgent,
		baseURL:   parsed,
	}
	if client != nil {
		conn.client = *client
	}
	return &conn, nil
}

func (c *Connection) BaseURL() string {
	return c.baseURL.String()
}

// ServiceURL returns the absolute URL of a vendor service.
func (c *Connection) ServiceURL(service string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(service, "/") + "/"}).String()
}

func (c *Connection) Post(ctx context.Context, service string, request interface{}) ([]byte, error) {
	start := time.Now()
	status, body, err := SendVendorRequest(ctx, &c.client, c.UserAgent, c.ServiceURL(service), request)
	if c.Observe != nil {
		c.Observe(service, status, time.Since(start))
	}
	return body, err
}
