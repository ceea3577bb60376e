package chat

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Bus event names. The realtime transport publishes the first two; the
// session publishes the third for any conversation-list UI to refresh
// its last-message summary.
const (
	EventMessage            = "websocket-message"
	EventTyping             = "websocket-typing"
	EventConversationUpdate = "conversation-update"
)

// Sender tags the originating party of a message.
type Sender string

const (
	SenderStudent    Sender = "student"
	SenderInstructor Sender = "instructor"
	SenderAgent      Sender = "agent"
)

func (s Sender) Known() bool {
	switch s {
	case SenderStudent, SenderInstructor, SenderAgent:
		return true
	}
	return false
}

type (
	// ReplyBrief is a weak back-reference used purely for display quoting.
	ReplyBrief struct {
		ID                string      `json:"id"`
		Content           null.String `json:"content,omitempty"`
		SenderUserID      null.String `json:"sender_user_id,omitempty"`
		SenderAssistantID null.String `json:"sender_assistant_id,omitempty"`
	}

	// Message is the canonical wire/message-store shape. Time is Unix
	// epoch seconds and is used only for display, never for conflict
	// resolution.
	Message struct {
		ID           string      `json:"id,omitempty"`
		Sender       Sender      `json:"sender"`
		Content      string      `json:"content"`
		Time         int64       `json:"time"`
		InvocationID string      `json:"invocation_id,omitempty"`
		ClientRef    string      `json:"client_ref,omitempty"`
		ReplyToBrief *ReplyBrief `json:"reply_to_brief,omitempty"`
	}

	// MessageEvent is the realtime message envelope.
	MessageEvent struct {
		UserID         string      `json:"user_id,omitempty"`
		ConversationID string      `json:"conversation_id"`
		Sender         Sender      `json:"sender"`
		Content        string      `json:"content"`
		Timestamp      string      `json:"timestamp"` // ISO-8601
		InvocationID   string      `json:"invocation_id,omitempty"`
		ClientRef      string      `json:"client_ref,omitempty"`
		ReplyToBrief   *ReplyBrief `json:"reply_to_brief,omitempty"`
	}

	// TypingEvent is the realtime typing envelope. Older relays send the
	// conversation id and flag nested; both layouts are accepted.
	TypingEvent struct {
		ConversationID string `json:"conversation_id,omitempty"`
		Typing         *bool  `json:"typing,omitempty"`
		Meta           *struct {
			Typing bool `json:"typing"`
		} `json:"meta,omitempty"`
		Message *struct {
			ConversationID string `json:"conversation_id"`
		} `json:"message,omitempty"`
	}

	// ConversationUpdate carries a preview of a new message for sidebar
	// list refresh.
	ConversationUpdate struct {
		ConversationID string `json:"conversation_id"`
		Sender         Sender `json:"sender"`
		Preview        string `json:"preview"`
		Time           int64  `json:"time"`
	}
)

// DedupKey derives the idempotency key for a realtime message: the
// invocation id when present, else a sender+content+timestamp composite.
func (ev MessageEvent) DedupKey() string {
	if ev.InvocationID != "" {
		return ev.InvocationID
	}
	return string(ev.Sender) + "|" + ev.Content + "|" + ev.Timestamp
}

// EpochSeconds converts the ISO-8601 timestamp to Unix seconds,
// flooring sub-second precision. A malformed timestamp yields 0; the
// value only drives display formatting.
func (ev MessageEvent) EpochSeconds() int64 {
	t, err := time.Parse(time.RFC3339, ev.Timestamp)
	if err != nil {
		return 0
	}
	return t.UnixMilli() / 1000
}

// Message converts an accepted event into its message-store form.
func (ev MessageEvent) Message() Message {
	return Message{
		Sender:       ev.Sender,
		Content:      ev.Content,
		Time:         ev.EpochSeconds(),
		InvocationID: ev.InvocationID,
		ClientRef:    ev.ClientRef,
		ReplyToBrief: ev.ReplyToBrief,
	}
}

// ConvID resolves the conversation id, flat or nested.
func (ev TypingEvent) ConvID() string {
	if ev.ConversationID != "" {
		return ev.ConversationID
	}
	if ev.Message != nil {
		return ev.Message.ConversationID
	}
	return ""
}

// IsTyping coerces the typing flag, flat or nested under meta.
func (ev TypingEvent) IsTyping() bool {
	if ev.Typing != nil {
		return *ev.Typing
	}
	if ev.Meta != nil {
		return ev.Meta.Typing
	}
	return false
}
