package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/loykin/fmonctl/internal/metrics"
)

// maxResponseSize bounds the single response message per connection.
// The protocol has no framing beyond "one message per direction".
const maxResponseSize = 4096

// DefaultTimeout applies when a Client is constructed with none.
const DefaultTimeout = 3 * time.Second

// ErrUnreachable means no worker currently exposes a control channel at the
// rendezvous path. This is an expected state, not a failure: the channel is
// an optional capability and connecting is itself the capability probe.
var ErrUnreachable = errors.New("control channel unreachable")

// ProtocolError reports a connected-but-malformed exchange. Unlike
// ErrUnreachable it is surfaced to the caller prominently.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string { return "control protocol error: " + e.Err.Error() }
func (e *ProtocolError) Unwrap() error { return e.Err }

// Request is the single self-describing message sent per connection.
type Request struct {
	Command string         `json:"command"`
	Data    map[string]any `json:"data"`
}

// Response is the worker's reply. Data carries command-specific fields;
// Error is set when Success is false.
type Response struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Client speaks the request/response protocol over a unix stream socket.
// Each Send is one connection, one message pair, no retries; callers that
// need polling re-invoke.
type Client struct {
	SocketPath string
	Timeout    time.Duration
}

func NewClient(socketPath string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{SocketPath: socketPath, Timeout: timeout}
}

// Send opens a connection, writes one request, reads one bounded response and
// closes. Connection failure maps to ErrUnreachable; a response that cannot
// be decoded maps to *ProtocolError.
func (c *Client) Send(ctx context.Context, command string, data map[string]any) (*Response, error) {
	if data == nil {
		data = map[string]any{}
	}
	d := net.Dialer{Timeout: c.Timeout}
	conn, err := d.DialContext(ctx, "unix", c.SocketPath)
	if err != nil {
		metrics.IncControlRequest("unreachable")
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(c.Timeout))

	payload, err := json.Marshal(Request{Command: command, Data: data})
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(payload); err != nil {
		metrics.IncControlRequest("unreachable")
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	buf := make([]byte, maxResponseSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		metrics.IncControlRequest("protocol_error")
		return nil, &ProtocolError{Err: fmt.Errorf("read response: %w", err)}
	}
	var resp Response
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		metrics.IncControlRequest("protocol_error")
		return nil, &ProtocolError{Err: err}
	}
	metrics.IncControlRequest("ok")
	return &resp, nil
}

// Ping reports whether a worker answers on the channel right now.
// Any decodable response counts; ErrUnreachable means no.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.Send(ctx, "status", nil)
	if err == nil {
		return true
	}
	// A malformed answer still proves something is listening.
	var pe *ProtocolError
	return errors.As(err, &pe)
}
