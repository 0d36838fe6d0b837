// ABOUTME: In-memory fan-out of conversation snapshots to observers
// ABOUTME: A full subscriber channel is coalesced so the newest snapshot always lands

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Broadcaster provides in-memory pub/sub for conversation snapshots.
// Subscribers register for a conversation id and receive every snapshot the
// owning controller publishes. Slow subscribers may miss intermediate
// snapshots but always receive the most recent one.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Snapshot // conversationID -> subID -> ch
	closed      bool
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan Snapshot),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for snapshots of the given conversation.
// The returned channel is closed on Unsubscribe, on Close, or when ctx is done.
func (b *Broadcaster) Subscribe(ctx context.Context, conversationID string) (<-chan Snapshot, string) {
	subID := uuid.New().String()
	ch := make(chan Snapshot, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if _, ok := b.subscribers[conversationID]; !ok {
		b.subscribers[conversationID] = make(map[string]chan Snapshot)
	}
	b.subscribers[conversationID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		"conversation_id", conversationID,
		"sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(conversationID, subID)
	}()

	return ch, subID
}

// Publish delivers snap to every subscriber of its conversation. It never
// blocks: when a subscriber's buffer is full its oldest pending snapshot is
// discarded to make room.
func (b *Broadcaster) Publish(snap Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subID, ch := range b.subscribers[snap.ConversationID] {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
			b.logger.Debug("coalesced snapshot for slow subscriber",
				"conversation_id", snap.ConversationID,
				"sub_id", subID,
				"seq", snap.Seq)
		default:
			b.logger.Debug("dropped snapshot for slow subscriber",
				"conversation_id", snap.ConversationID,
				"sub_id", subID,
				"seq", snap.Seq)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(conversationID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[conversationID]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, conversationID)
	}

	b.logger.Debug("subscriber removed",
		"conversation_id", conversationID,
		"sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for convID, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, convID)
	}
	b.closed = true

	b.logger.Debug("broadcaster closed")
}
