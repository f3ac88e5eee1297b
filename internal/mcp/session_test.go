package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type rpcCall struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
	ID string `json:"id"`
}

func decodeCall(t *testing.T, r *http.Request) rpcCall {
	t.Helper()
	var call rpcCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return call
}

func writeResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": result}); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestInitializeAdoptsServerSessionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := decodeCall(t, r)
		if call.Method != "initialize" {
			t.Fatalf("unexpected method %q", call.Method)
		}
		if r.Header.Get("Mcp-Session-Id") == "" {
			t.Fatal("expected client-generated session id on handshake request")
		}
		w.Header().Set("Mcp-Session-Id", "srv-42")
		writeResult(t, w, map[string]any{"protocolVersion": "2024-11-05"})
	}))
	defer server.Close()

	session, err := New(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	sid, err := session.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	if sid != "srv-42" {
		t.Fatalf("session id = %q, want srv-42", sid)
	}
}

func TestInitializeKeepsGeneratedIDWhenServerOmitsHeader(t *testing.T) {
	var handshakeID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handshakeID = r.Header.Get("Mcp-Session-Id")
		writeResult(t, w, map[string]any{})
	}))
	defer server.Close()

	session, err := New(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	sid, err := session.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	if sid == "" || sid != handshakeID {
		t.Fatalf("expected generated id %q to survive, got %q", handshakeID, sid)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	var handshakes atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handshakes.Add(1)
		w.Header().Set("Mcp-Session-Id", "srv-1")
		writeResult(t, w, map[string]any{})
	}))
	defer server.Close()

	session, err := New(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	first, err := session.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	second, err := session.Initialize(context.Background())
	if err != nil {
		t.Fatalf("second Initialize returned error: %v", err)
	}
	if first != second {
		t.Fatalf("session id changed across calls: %q vs %q", first, second)
	}
	if handshakes.Load() != 1 {
		t.Fatalf("expected 1 handshake, got %d", handshakes.Load())
	}
}

func TestCallToolLazilyInitializesOnce(t *testing.T) {
	var handshakes, toolCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := decodeCall(t, r)
		switch call.Method {
		case "initialize":
			handshakes.Add(1)
			w.Header().Set("Mcp-Session-Id", "srv-7")
			writeResult(t, w, map[string]any{})
		case "tools/call":
			toolCalls.Add(1)
			if got := r.Header.Get("Mcp-Session-Id"); got != "srv-7" {
				t.Fatalf("tool call carried session id %q, want srv-7", got)
			}
			if call.Params.Name != "submit_job" {
				t.Fatalf("tool name = %q", call.Params.Name)
			}
			if call.Params.Arguments["prompt"] != "hello" {
				t.Fatalf("arguments = %v", call.Params.Arguments)
			}
			writeResult(t, w, map[string]any{"request_id": "abc123"})
		default:
			t.Fatalf("unexpected method %q", call.Method)
		}
	}))
	defer server.Close()

	session, err := New(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		payload, err := session.CallTool(context.Background(), "submit_job", map[string]any{"prompt": "hello"})
		if err != nil {
			t.Fatalf("CallTool returned error: %v", err)
		}
		if payload["request_id"] != "abc123" {
			t.Fatalf("payload = %v", payload)
		}
	}
	if handshakes.Load() != 1 {
		t.Fatalf("expected exactly 1 handshake, got %d", handshakes.Load())
	}
	if toolCalls.Load() != 2 {
		t.Fatalf("expected 2 tool calls, got %d", toolCalls.Load())
	}
}

func TestCallToolForwardsExtraHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("authorization header = %q", got)
		}
		writeResult(t, w, map[string]any{})
	}))
	defer server.Close()

	session, err := New(Config{Endpoint: server.URL, Headers: map[string]string{"Authorization": "Bearer tok"}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := session.CallTool(context.Background(), "noop", nil); err != nil {
		t.Fatalf("CallTool returned error: %v", err)
	}
}

func TestCallToolServerErrorIsProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := decodeCall(t, r)
		if call.Method == "initialize" {
			writeResult(t, w, map[string]any{})
			return
		}
		payload := map[string]any{
			"jsonrpc": "2.0",
			"error":   map[string]any{"code": -32602, "message": "unknown tool"},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	session, err := New(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = session.CallTool(context.Background(), "bogus", nil)
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *ProtocolError, got %v", err)
	}
	if protoErr.Code != -32602 || protoErr.Message != "unknown tool" {
		t.Fatalf("unexpected error detail: %+v", protoErr)
	}
}

func TestInitializeErrorLeavesSessionUninitialized(t *testing.T) {
	var handshakes atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handshakes.Add(1) == 1 {
			payload := map[string]any{
				"jsonrpc": "2.0",
				"error":   map[string]any{"code": -32000, "message": "busy"},
			}
			_ = json.NewEncoder(w).Encode(payload)
			return
		}
		writeResult(t, w, map[string]any{})
	}))
	defer server.Close()

	session, err := New(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := session.Initialize(context.Background()); err == nil {
		t.Fatal("expected handshake failure")
	}
	if session.SessionID() != "" {
		t.Fatalf("failed handshake should clear session id, got %q", session.SessionID())
	}
	if _, err := session.Initialize(context.Background()); err != nil {
		t.Fatalf("retry after failure should succeed: %v", err)
	}
}

func TestCallToolHTTPFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := decodeCall(t, r)
		if call.Method == "initialize" {
			writeResult(t, w, map[string]any{})
			return
		}
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	session, err := New(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = session.CallTool(context.Background(), "submit_job", nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		t.Fatalf("HTTP failure must not classify as ProtocolError: %v", err)
	}
}

func TestCallToolIgnoresLateSessionHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := decodeCall(t, r)
		if call.Method == "initialize" {
			w.Header().Set("Mcp-Session-Id", "srv-handshake")
			writeResult(t, w, map[string]any{})
			return
		}
		if got := r.Header.Get("Mcp-Session-Id"); got != "srv-handshake" {
			t.Fatalf("tool call carried session id %q, want srv-handshake", got)
		}
		w.Header().Set("Mcp-Session-Id", "srv-hijack")
		writeResult(t, w, map[string]any{})
	}))
	defer server.Close()

	session, err := New(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := session.CallTool(context.Background(), "get_status", nil); err != nil {
			t.Fatalf("CallTool returned error: %v", err)
		}
	}
	if session.SessionID() != "srv-handshake" {
		t.Fatalf("session id = %q, want the handshake value", session.SessionID())
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected endpoint validation error")
	}
}
