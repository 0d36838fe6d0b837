// ABOUTME: Package documentation for the HTTP gateway
// ABOUTME: Lists the routes and how a chat request is served

// Package gateway serves the FPL chat API over HTTP.
//
// # Routes
//
//   - POST /api/chat - run one chat request and stream its events
//   - GET /api/tools - tool catalogue in registration order
//   - GET /health - liveness check, always "OK"
//   - GET /metrics - Prometheus exposition (metrics.path, when enabled)
//   - POST|DELETE /mcp - the tools for external MCP clients (mcp.enabled)
//
// # Chat Stream
//
// A chat request body is validated before any byte of the response is
// written; failures answer with a JSON {"error": ...} body and a 4xx status.
// Accepted requests answer 200 with Content-Type text/event-stream and a
// sequence of data frames, each "data: " + JSON event + "\n\n". Comment
// frames are written while the model or tools are busy so that proxies do
// not time the stream out.
//
// When auth.jwt_secret is set, bearer tokens are verified. A token's
// manager_id claim is used when the body carries no managerId. With
// auth.required the endpoint rejects requests without a valid token.
//
// # Lifecycle
//
// New wires the live FPL client and Anthropic model; NewWithDeps accepts
// substitutes. Run blocks until its context is canceled, then shuts the
// server down gracefully.
package gateway
