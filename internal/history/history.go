// ABOUTME: History Store: versioned, bounded persistence of one conversation
// ABOUTME: Implements trim-to-N, pair-drop size budget, and quota fallback

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/curphey/fpl-sub000/internal/conversation"
	"github.com/curphey/fpl-sub000/internal/store"
)

const (
	// SchemaVersion is written into every record. Records with any other
	// version are discarded on load.
	SchemaVersion = 1
	// MaxMessages is the default cap on persisted messages.
	MaxMessages = 100
	// MaxBytes is the default budget for an encoded record.
	MaxBytes = 500 * 1024
	// FallbackMessages is how many recent messages are retried after a quota error.
	FallbackMessages = 20

	keyPrefix = "history:"
)

// KV is the subset of store.KV the history store needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Options tunes a Store. Zero values take the package defaults.
type Options struct {
	MaxMessages      int
	MaxBytes         int
	FallbackMessages int
	Logger           *slog.Logger
	Now              func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxMessages <= 0 {
		o.MaxMessages = MaxMessages
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = MaxBytes
	}
	if o.FallbackMessages <= 0 {
		o.FallbackMessages = FallbackMessages
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Record is the persisted form of a conversation.
type Record struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  []Entry   `json:"messages"`
}

// Entry is a message without its tool calls or streaming flag.
type Entry struct {
	ID        string            `json:"id"`
	Role      conversation.Role `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Thinking  *string           `json:"thinking,omitempty"`
}

// Store persists a single conversation under one key.
type Store struct {
	kv     KV
	key    string
	opts   Options
	logger *slog.Logger

	// unread is set while the stored record exists but could not be read.
	// Saving then would overwrite messages this process never saw.
	unread atomic.Bool
}

// Key returns the storage key used for a conversation id.
func Key(conversationID string) string {
	return keyPrefix + conversationID
}

// New creates a Store for conversationID backed by kv.
func New(kv KV, conversationID string, opts Options) *Store {
	opts = opts.withDefaults()
	return &Store{
		kv:     kv,
		key:    Key(conversationID),
		opts:   opts,
		logger: opts.Logger.With("component", "history", "key", Key(conversationID)),
	}
}

// Load returns the persisted conversation. Missing, corrupt or
// wrong-version records all yield an empty conversation; the latter two are
// removed from the store. A read error also yields an empty conversation but
// keeps the record, and Save refuses to write until a later Load succeeds.
func (s *Store) Load(ctx context.Context) conversation.Conversation {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) {
		s.unread.Store(false)
		return conversation.Conversation{}
	}
	if err != nil {
		s.logger.Warn("failed to read history", "error", err)
		s.unread.Store(true)
		return conversation.Conversation{}
	}
	s.unread.Store(false)

	msgs, err := decode(data)
	if err != nil {
		s.logger.Warn("discarding unreadable history", "error", err)
		s.Clear(ctx)
		return conversation.Conversation{}
	}
	return msgs
}

// Save persists the settled messages of conv. It reports whether any record
// was written. On false the key has been cleared, unless the last Load failed
// to read it, in which case the stored record is left untouched.
func (s *Store) Save(ctx context.Context, conv conversation.Conversation) bool {
	if s.unread.Load() {
		s.logger.Warn("skipping save, stored history was not read")
		return false
	}

	msgs := conv.Settled()
	if len(msgs) > s.opts.MaxMessages {
		msgs = msgs[len(msgs)-s.opts.MaxMessages:]
	}

	data, msgs, err := s.fit(msgs)
	if err != nil {
		s.logger.Error("failed to encode history", "error", err)
		return false
	}

	err = s.kv.Set(ctx, s.key, data)
	if err == nil {
		s.logger.Debug("saved history", "messages", len(msgs), "bytes", len(data))
		return true
	}
	if !errors.Is(err, store.ErrQuotaExceeded) {
		s.logger.Error("failed to save history", "error", err)
		s.Clear(ctx)
		return false
	}

	s.logger.Warn("history over quota, keeping recent messages only",
		"messages", len(msgs), "keep", s.opts.FallbackMessages)
	if len(msgs) > s.opts.FallbackMessages {
		msgs = msgs[len(msgs)-s.opts.FallbackMessages:]
	}
	data, err = s.encode(msgs)
	if err == nil {
		err = s.kv.Set(ctx, s.key, data)
	}
	if err != nil {
		s.logger.Error("fallback save failed, clearing history", "error", err)
		s.Clear(ctx)
		return false
	}
	return true
}

// Clear removes the persisted record.
func (s *Store) Clear(ctx context.Context) {
	if err := s.kv.Remove(ctx, s.key); err != nil {
		s.logger.Warn("failed to clear history", "error", err)
		return
	}
	s.unread.Store(false)
}

// Exists reports whether a record is currently stored.
func (s *Store) Exists(ctx context.Context) bool {
	_, err := s.kv.Get(ctx, s.key)
	return err == nil
}

// fit encodes msgs, dropping the oldest pair while the encoding exceeds the
// byte budget. It returns the encoding and the messages it contains.
func (s *Store) fit(msgs conversation.Conversation) ([]byte, conversation.Conversation, error) {
	for {
		data, err := s.encode(msgs)
		if err != nil {
			return nil, nil, err
		}
		if len(data) <= s.opts.MaxBytes || len(msgs) == 0 {
			return data, msgs, nil
		}
		drop := min(2, len(msgs))
		msgs = msgs[drop:]
	}
}

func (s *Store) encode(msgs conversation.Conversation) ([]byte, error) {
	rec := Record{
		Version:   SchemaVersion,
		UpdatedAt: s.opts.Now().UTC(),
		Messages:  make([]Entry, 0, len(msgs)),
	}
	for _, m := range msgs {
		rec.Messages = append(rec.Messages, Entry{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Thinking:  m.Thinking,
		})
	}
	return json.Marshal(rec)
}

func decode(data []byte) (conversation.Conversation, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing record: %w", err)
	}
	if rec.Version != SchemaVersion {
		return nil, fmt.Errorf("unsupported version %d", rec.Version)
	}

	conv := make(conversation.Conversation, 0, len(rec.Messages))
	for i, e := range rec.Messages {
		if !e.Role.Valid() {
			return nil, fmt.Errorf("message %d has role %q", i, e.Role)
		}
		conv = append(conv, conversation.Message{
			ID:        e.ID,
			Role:      e.Role,
			Content:   e.Content,
			Timestamp: e.Timestamp,
			Thinking:  e.Thinking,
			ToolCalls: []conversation.ToolCall{},
		})
	}
	return conv, nil
}

// Lister is implemented by backends that can enumerate keys.
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Conversations returns the ids of every stored conversation.
func Conversations(ctx context.Context, kv Lister) ([]string, error) {
	keys, err := kv.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, keyPrefix))
	}
	return ids, nil
}
