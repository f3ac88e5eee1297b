package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
)

const jsonRPCVersion = "2.0"

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ProtocolError reports a JSON-RPC response that carried an error member.
// It is always terminal for the call that produced it.
type ProtocolError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *ProtocolError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "unspecified server error"
	}
	if len(e.Data) > 0 {
		return fmt.Sprintf("mcp %s: server error %d: %s (%s)", e.Method, e.Code, msg, string(e.Data))
	}
	return fmt.Sprintf("mcp %s: server error %d: %s", e.Method, e.Code, msg)
}
