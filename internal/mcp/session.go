package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"mcpjob/internal/logging"
)

const (
	headerSessionID = "Mcp-Session-Id"

	protocolVersion = "2024-11-05"
	clientName      = "mcpjob"
	clientVersion   = "dev"

	defaultHTTPTimeout = 60 * time.Second
)

// Config describes the session configuration.
type Config struct {
	Endpoint   string
	Headers    map[string]string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Session owns one logical MCP session: the endpoint, the caller-supplied
// headers, and the session identifier negotiated during the initialize
// handshake. The handshake runs lazily, at most once, before the first
// tool call.
//
// A Session is not safe for concurrent use; callers running multiple jobs
// must give each its own Session or serialize access.
type Session struct {
	endpoint    *url.URL
	headers     map[string]string
	http        *http.Client
	logger      *slog.Logger
	sessionID   string
	initialized bool
}

// New creates a Session from the supplied configuration.
func New(cfg Config) (*Session, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("mcp: endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("mcp: parse endpoint: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	headers := make(map[string]string, len(cfg.Headers))
	for name, value := range cfg.Headers {
		headers[name] = value
	}
	return &Session{
		endpoint: parsed,
		headers:  headers,
		http:     client,
		logger:   logging.NewComponentLogger(cfg.Logger, "mcp"),
	}, nil
}

// SessionID returns the current session identifier, empty before the handshake.
func (s *Session) SessionID() string {
	return s.sessionID
}

// Initialize performs the one-time handshake. Calling it again is a no-op
// that returns the already-adopted session identifier.
//
// A session id is generated client-side and attached to the handshake
// request; if the server answers with its own Mcp-Session-Id header, that
// value replaces the generated one for all subsequent requests.
func (s *Session) Initialize(ctx context.Context) (string, error) {
	if s.initialized {
		return s.sessionID, nil
	}

	s.sessionID = uuid.NewString()

	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]string{
			"name":    clientName,
			"version": clientVersion,
		},
	}
	if _, err := s.send(ctx, "initialize", params); err != nil {
		s.sessionID = ""
		return "", err
	}

	s.initialized = true
	s.logger.Debug("session initialized", logging.String("session_id", s.sessionID))
	return s.sessionID, nil
}

// CallTool invokes a remote tool and returns the decoded result payload.
// The session is initialized lazily on the first call.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	if name = strings.TrimSpace(name); name == "" {
		return nil, errors.New("mcp: tool name is required")
	}
	if _, err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := s.send(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]any{}
	if len(result) > 0 && !bytes.Equal(result, []byte("null")) {
		if err := json.Unmarshal(result, &payload); err != nil {
			return nil, fmt.Errorf("mcp tools/call: decode result: %w", err)
		}
	}
	return payload, nil
}

// send posts one JSON-RPC envelope and returns the raw result member.
// A response carrying an error member fails with *ProtocolError; transport
// and HTTP failures propagate unchanged apart from context wrapping.
func (s *Session) send(ctx context.Context, method string, params any) (json.RawMessage, error) {
	envelope := request{
		JSONRPC: jsonRPCVersion,
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("mcp %s: encode request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint.String(), bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("mcp %s: build request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for name, value := range s.headers {
		httpReq.Header.Set(name, value)
	}
	if s.sessionID != "" {
		httpReq.Header.Set(headerSessionID, s.sessionID)
	}

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("mcp %s: request failed: %w", method, err)
	}
	defer resp.Body.Close()

	// Only the handshake response may replace the session identifier;
	// headers on later responses are ignored.
	if sid := resp.Header.Get(headerSessionID); sid != "" && !s.initialized {
		s.sessionID = sid
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("mcp %s: http %s: %s", method, resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("mcp %s: decode response: %w", method, err)
	}
	if decoded.Error != nil {
		return nil, &ProtocolError{
			Method:  method,
			Code:    decoded.Error.Code,
			Message: decoded.Error.Message,
			Data:    decoded.Error.Data,
		}
	}
	return decoded.Result, nil
}
