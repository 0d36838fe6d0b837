// Package conversation holds the in-memory conversation model and the pure
// reducer that rebuilds it from stream events.
//
// # Model
//
// A Conversation is an ordered slice of Messages. At most one message is
// streaming at a time; if one is, it is the last message and it belongs to
// the assistant. Validate checks this.
//
// # Reducer
//
// Apply folds one stream.Event into a conversation:
//
//	conv = conversation.Apply(conv, ev)
//
// Only the last message is ever replaced. Earlier messages are shared with
// the input slice, which is never mutated. Events that cannot apply (empty
// conversation, last message not from the assistant, tool_use_end for an
// unknown id) return the input unchanged; Reduce reports which case hit so
// callers can log it.
//
// Terminal events (done, error) clear IsStreaming, but events that arrive
// afterwards are still applied.
//
// # Snapshots
//
// The Broadcaster fans Snapshots out to observers. Publish never blocks;
// a slow observer loses intermediate snapshots but always sees the latest.
package conversation
