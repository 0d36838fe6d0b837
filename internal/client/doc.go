// Package client drives one conversation against the chat backend.
//
// # Overview
//
// A Controller owns the conversation state for a single conversation id. It
// is the only writer of that state: it appends the user's message and an
// assistant placeholder, opens the Transport, decodes the response stream,
// folds every event through the conversation reducer, and publishes a
// snapshot after each change.
//
// # Single-flight
//
// At most one request is outstanding per Controller. Send cancels the
// request in flight, waits for its goroutine to finish, and only then
// appends the new messages, so the newest request always wins and no two
// requests ever write to the conversation at once.
//
// # Cancellation
//
// When a request is cancelled before the placeholder received anything the
// placeholder is removed. Partial content is kept and marked settled.
//
// # Persistence
//
// With a history store configured, the conversation is saved every time a
// request settles and never while a message is streaming.
//
// # Usage
//
//	transport := &client.HTTPTransport{BaseURL: "http://localhost:8080"}
//	ctrl := client.New("default", transport, client.Options{History: hist})
//	ctrl.Load(ctx)
//	snaps, stop := ctrl.Subscribe(ctx)
//	defer stop()
//	ctrl.Send(ctx, "who should I captain this week?")
package client
