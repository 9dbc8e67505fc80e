package control

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// serveOnce accepts a single connection, reads one request and answers with
// the given raw bytes.
func serveOnce(t *testing.T, socketPath string, reply []byte) chan Request {
	t.Helper()
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	got := make(chan Request, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		buf := make([]byte, 4096)
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		var req Request
		_ = json.Unmarshal(buf[:n], &req)
		got <- req
		_, _ = conn.Write(reply)
	}()
	return got
}

func TestSendSuccess(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "ctl.sock")
	reply, _ := json.Marshal(Response{Success: true, Data: map[string]any{"uptime": float64(12)}})
	got := serveOnce(t, socketPath, reply)

	c := NewClient(socketPath, time.Second)
	resp, err := c.Send(context.Background(), "status", map[string]any{"verbose": true})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !resp.Success {
		t.Fatal("Success = false")
	}
	if resp.Data["uptime"] != float64(12) {
		t.Fatalf("Data = %v", resp.Data)
	}

	select {
	case req := <-got:
		if req.Command != "status" {
			t.Fatalf("Command = %q", req.Command)
		}
		if req.Data["verbose"] != true {
			t.Fatalf("Data = %v", req.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("server never saw the request")
	}
}

func TestSendErrorResponse(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "ctl.sock")
	reply, _ := json.Marshal(Response{Success: false, Error: "unknown command"})
	serveOnce(t, socketPath, reply)

	c := NewClient(socketPath, time.Second)
	resp, err := c.Send(context.Background(), "bogus", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Success || resp.Error != "unknown command" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestSendUnreachable(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "nobody.sock"), 200*time.Millisecond)
	_, err := c.Send(context.Background(), "status", nil)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("Send = %v, want ErrUnreachable", err)
	}
}

func TestSendMalformedResponse(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "ctl.sock")
	serveOnce(t, socketPath, []byte("this is not json"))

	c := NewClient(socketPath, time.Second)
	_, err := c.Send(context.Background(), "status", nil)
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("Send = %v, want *ProtocolError", err)
	}
	if errors.Is(err, ErrUnreachable) {
		t.Fatal("protocol error must not be unreachable")
	}
}

func TestSendNoResponse(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "ctl.sock")
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Read the request, then close without answering: the response read
		// fails and maps to ProtocolError.
		buf := make([]byte, 4096)
		_, _ = conn.Read(buf)
		_ = conn.Close()
	}()

	c := NewClient(socketPath, 500*time.Millisecond)
	_, err = c.Send(context.Background(), "status", nil)
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("Send = %v, want *ProtocolError", err)
	}
}

func TestPing(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "nobody.sock"), 200*time.Millisecond)
	if c.Ping(context.Background()) {
		t.Fatal("Ping true with no listener")
	}

	socketPath := filepath.Join(t.TempDir(), "ctl.sock")
	reply, _ := json.Marshal(Response{Success: true})
	serveOnce(t, socketPath, reply)
	c = NewClient(socketPath, time.Second)
	if !c.Ping(context.Background()) {
		t.Fatal("Ping false with live listener")
	}
}

func TestPingMalformedStillCounts(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "ctl.sock")
	serveOnce(t, socketPath, []byte("garbage"))
	c := NewClient(socketPath, time.Second)
	if !c.Ping(context.Background()) {
		t.Fatal("a listener with a broken reply still proves reachability")
	}
}
