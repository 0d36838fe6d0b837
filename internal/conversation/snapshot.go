// ABOUTME: Snapshot is the observable state of one conversation at a point in time
// ABOUTME: State tracks the request lifecycle: idle, sending, or idle after an error

package conversation

// State is the request lifecycle of a conversation.
type State int

const (
	StateIdle State = iota
	StateSending
	StateIdleWithError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateIdleWithError:
		return "idle_with_error"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of a conversation published after every
// applied event and every state transition.
type Snapshot struct {
	ConversationID string
	Messages       Conversation
	State          State
	// Err is the transport failure of the last send, if any.
	Err error
	// Seq increases by one for every snapshot published for a conversation.
	Seq uint64
}
