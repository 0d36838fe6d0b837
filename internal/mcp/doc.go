// ABOUTME: Package documentation for the MCP tool endpoint
// ABOUTME: Describes sessions, authentication and the supported methods

// Package mcp exposes the gateway's FPL tools to external MCP clients.
//
// # Protocol
//
// The server speaks JSON-RPC 2.0 over the MCP Streamable HTTP transport on a
// single endpoint:
//
//   - POST /mcp - initialize, tools/list, tools/call and notifications
//   - DELETE /mcp - terminate the session named by Mcp-Session-Id
//
// Server-initiated streams (GET /mcp) are not offered.
//
// # Sessions
//
// initialize creates a session and returns its id in the Mcp-Session-Id
// header. Every later request must carry that header; unknown ids get 404 and
// the client re-initializes.
//
// # Authentication
//
// A bearer token on initialize is verified with the gateway's JWT verifier.
// Its manager_id claim is bound to the session and passed to tools that read
// the caller's team, so get_my_team works the same as it does in chat. When
// auth is required, initialize without a token fails; a presented token that
// does not verify always fails.
//
// # Tool calls
//
// tools/call runs the named tool through the same dispatcher as chat turns,
// with its timeout, concurrency limit and metrics. Tool failures are returned
// as results with isError set; only protocol problems (unknown tool, bad
// params) are JSON-RPC errors.
package mcp
