// ABOUTME: Package documentation for bearer token authentication
// ABOUTME: Covers JWT claims and the HTTP middleware variants

// Package auth authenticates chat gateway callers with HS256 JWTs.
//
// Tokens carry a required "sub" claim and an optional numeric "manager_id"
// claim naming the caller's FPL team. The gateway uses the token's manager
// id when a chat request does not name one itself.
//
// HTTPAuthMiddleware rejects requests without a valid token.
// OptionalAuthMiddleware lets them through as anonymous. Both attach the
// verified Identity to the request context for FromContext.
package auth
