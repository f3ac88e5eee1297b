// Package mcp implements the client side of the MCP JSON-RPC-over-HTTP
// protocol used by asynchronous tool servers.
//
// A Session wraps every call in a JSON-RPC 2.0 envelope, performs the
// initialize handshake lazily before the first tool call, and carries the
// negotiated Mcp-Session-Id header on each subsequent request so the
// server can correlate state across calls. Server-reported errors surface
// as *ProtocolError; network and HTTP failures propagate unchanged.
package mcp
