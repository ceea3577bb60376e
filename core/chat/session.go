package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

// SessionState tracks the lifecycle of one open conversation view.
type SessionState int

const (
	StateIdle    SessionState = iota // no conversation selected
	StateLoading                     // history fetch in flight
	StateReady                       // accepting realtime + local updates
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type (
	// HistoryLoader populates the message store when a conversation is
	// opened.
	HistoryLoader interface {
		LoadHistory(ctx context.Context, conversationID string) ([]Message, error)
	}

	// MessageSender performs the network send backing an optimistic append.
	MessageSender interface {
		SendMessage(ctx context.Context, conversationID, content, replyToMessageID string) error
	}

	// Session reconciles one open conversation: an append-only,
	// insertion-ordered message store seeded by a history fetch, fed by
	// realtime events gated through a dedup cache, and fronted by an
	// optimistic send path. Messages display in arrival order, never
	// resorted by timestamp. All methods are safe for concurrent use;
	// mutations interleave at whole-operation granularity.
	Session struct {
		mu     sync.Mutex
		bus    *Bus
		loader HistoryLoader
		sender MessageSender
		logger core.Logger

		conversationID string
		state          SessionState
		messages       []Message
		seen           *DedupCache
		typing         bool

		disposers []func()
	}
)

// NewSession wires a session to the bus and starts listening for
// realtime events. Close releases the subscriptions.
func NewSession(bus *Bus, loader HistoryLoader, sender MessageSender, logger core.Logger, dedupCapacity int) *Session {
	s := &Session{
		bus:    bus,
		loader: loader,
		sender: sender,
		logger: logger,
		state:  StateIdle,
		seen:   NewDedupCache(dedupCapacity),
	}
	s.disposers = append(s.disposers,
		bus.On(EventMessage, func(payload interface{}) {
			if ev, ok := payload.(MessageEvent); ok {
				s.IngestRealtimeMessage(ev)
			}
		}),
		bus.On(EventTyping, func(payload interface{}) {
			if ev, ok := payload.(TypingEvent); ok {
				s.IngestTypingEvent(ev)
			}
		}),
	)
	return s
}

// Open switches the session to the given conversation and loads its
// history. The dedup cache is cleared and the message store replaced
// wholesale by the fetch result. A response arriving after the active
// conversation changed again is discarded. On fetch failure the active
// conversation is reset, the failure is reported, and no retry occurs.
func (s *Session) Open(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	s.conversationID = conversationID
	s.state = StateLoading
	s.messages = nil
	s.typing = false
	s.seen.Reset()
	s.mu.Unlock()

	msgs, err := s.loader.LoadHistory(ctx, conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conversationID != conversationID {
		// stale response; the user already switched away
		return nil
	}
	if err != nil {
		s.conversationID = ""
		s.state = StateIdle
		s.messages = nil
		err = errors.Wrapf(err, "loading history for %s", conversationID)
		s.logger.Error(err.Error(), err)
		return err
	}
	s.messages = msgs
	s.state = StateReady
	return nil
}

// Close tears the session down and detaches it from the bus.
func (s *Session) Close() {
	for _, off := range s.disposers {
		off()
	}
	s.disposers = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = ""
	s.state = StateIdle
	s.messages = nil
	s.typing = false
	s.seen.Reset()
}

// IngestRealtimeMessage applies one realtime message event. Events for
// other conversations, unknown sender roles, or already-seen dedup keys
// are no-ops; re-delivery is idempotent. An accepted agent message
// clears the typing flag. Accepting a message notifies conversation-list
// listeners with a preview.
func (s *Session) IngestRealtimeMessage(ev MessageEvent) {
	s.mu.Lock()

	if s.conversationID == "" || ev.ConversationID != s.conversationID {
		s.mu.Unlock()
		return
	}
	if !ev.Sender.Known() {
		s.mu.Unlock()
		return
	}
	if s.seen.Seen(ev.DedupKey()) {
		s.mu.Unlock()
		return
	}

	msg := ev.Message()
	s.messages = append(s.messages, msg)
	if ev.Sender == SenderAgent {
		s.typing = false
	}
	s.mu.Unlock()

	s.bus.Emit(EventConversationUpdate, ConversationUpdate{
		ConversationID: ev.ConversationID,
		Sender:         ev.Sender,
		Preview:        core.Truncate(ev.Content, 80),
		Time:           msg.Time,
	})
}

// IngestTypingEvent overwrites the typing flag with the latest in-scope
// event; last write wins, there is no queueing or counting.
func (s *Session) IngestTypingEvent(ev TypingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conversationID == "" || ev.ConvID() != s.conversationID {
		return
	}
	s.typing = ev.IsTyping()
}

// SendOptimistic appends a locally constructed student message before
// the network round trip completes and only then issues the send. The
// typing flag gates the input while the agent responds and is cleared
// when the send settles, success or failure. A failed send keeps the
// optimistic message in place; there is no rollback.
//
// The local copy carries a client ref but no invocation id, so a server
// echo of the same message computes a different dedup key and is not
// reconciled against it.
func (s *Session) SendOptimistic(ctx context.Context, content string) error {
	s.mu.Lock()
	if s.conversationID == "" || s.state != StateReady || s.typing {
		s.mu.Unlock()
		return nil
	}
	conversationID := s.conversationID
	s.typing = true
	msg := Message{
		Sender:    SenderStudent,
		Content:   content,
		Time:      time.Now().Unix(),
		ClientRef: uuid.NewString(),
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.bus.Emit(EventConversationUpdate, ConversationUpdate{
		ConversationID: conversationID,
		Sender:         SenderStudent,
		Preview:        core.Truncate(content, 80),
		Time:           msg.Time,
	})

	err := s.sender.SendMessage(ctx, conversationID, content, "")

	s.mu.Lock()
	if s.conversationID == conversationID {
		s.typing = false
	}
	s.mu.Unlock()

	if err != nil {
		err = errors.Wrapf(err, "sending message to %s", conversationID)
		s.logger.Error(err.Error(), err)
		return err
	}
	return nil
}

// Messages returns a copy of the message store in display order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}
