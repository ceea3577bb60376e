package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
)

var (
	// errors
	ErrNotFound       = errors.New("conversation not found")
	ErrNotParticipant = errors.New("not a participant of this conversation")
)

type (
	// Conversation ties one student to one assistant.
	Conversation struct {
		ID          string    `json:"id" db:"id"`
		AssistantID string    `json:"assistant_id" db:"assistant_id"`
		StudentID   string    `json:"student_id" db:"student_id"`
		Title       string    `json:"title" db:"title"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
	}

	// StoredMessage is the persisted form of a chat message.
	StoredMessage struct {
		ID                string      `json:"id" db:"id"`
		ConversationID    string      `json:"conversation_id" db:"conversation_id"`
		Sender            Sender      `json:"sender" db:"sender"`
		SenderUserID      null.String `json:"sender_user_id,omitempty" db:"sender_user_id"`
		SenderAssistantID null.String `json:"sender_assistant_id,omitempty" db:"sender_assistant_id"`
		Content           string      `json:"content" db:"content"`
		InvocationID      null.String `json:"invocation_id,omitempty" db:"invocation_id"`
		ReplyToMessageID  null.String `json:"reply_to_message_id,omitempty" db:"reply_to_message_id"`
		ClientRef         null.String `json:"client_ref,omitempty" db:"client_ref"`
		CreatedAt         time.Time   `json:"created_at" db:"created_at"` // UTC
	}

	// Preview is the sidebar last-message summary of a conversation.
	// Unread counts messages since the student last loaded history.
	Preview struct {
		Sender  Sender `json:"sender"`
		Content string `json:"content"`
		Time    int64  `json:"time"`
		Unread  int    `json:"unread"`
	}

	ConversationWithPreview struct {
		Conversation
		LastMessage *Preview `json:"last_message,omitempty"`
	}

	ParticipantBrief struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url,omitempty"`
	}

	ParticipantsBrief struct {
		Assistant ParticipantBrief `json:"assistant"`
		User      ParticipantBrief `json:"user"`
	}

	// HistoryResponse is the canonical history payload shape.
	HistoryResponse struct {
		Messages []StoredMessage `json:"messages"`
	}

	// LegacyHistoryResponse is the shape old clients still consume.
	LegacyHistoryResponse struct {
		History   []Message        `json:"history"`
		Assistant ParticipantBrief `json:"assistant"`
	}

	Repository interface {
		CreateConversation(ctx context.Context, conv Conversation) (Conversation, error)
		GetConversationByID(ctx context.Context, id string) (Conversation, error)
		QueryConversationsByStudent(ctx context.Context, studentID string) ([]Conversation, error)
		CreateMessage(ctx context.Context, msg StoredMessage) (StoredMessage, error)
		// QueryMessagesByConversation returns messages in insertion order.
		QueryMessagesByConversation(ctx context.Context, conversationID string, limit int) ([]StoredMessage, error)
		GetParticipantsBrief(ctx context.Context, conversationID, userID string) (ParticipantsBrief, error)
	}

	// Broadcaster fans realtime events out to a conversation's connected
	// sockets. A non-empty excludeClientRef omits the socket that
	// originated the message, so a sender's optimistic bubble is not
	// echoed back to it.
	Broadcaster interface {
		BroadcastMessage(ev MessageEvent, excludeClientRef string)
		BroadcastTyping(ev TypingEvent)
	}

	// Relay republishes realtime events for hubs on other instances.
	Relay interface {
		PublishMessage(ctx context.Context, ev MessageEvent) error
		PublishTyping(ctx context.Context, ev TypingEvent) error
	}

	// PreviewStore caches sidebar last-message summaries.
	PreviewStore interface {
		SetLastMessage(ctx context.Context, conversationID string, p Preview) error
		GetPreviews(ctx context.Context, conversationIDs []string) (map[string]Preview, error)
		// MarkRead zeroes the unread count; a missing preview is a no-op.
		MarkRead(ctx context.Context, conversationID string) error
	}

	Service struct {
		repo     Repository
		hub      Broadcaster
		previews PreviewStore
		relay    Relay
		logger   core.Logger
		histPage int
	}
)

func NewService(repo Repository, hub Broadcaster, previews PreviewStore, relay Relay, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		hub:      hub,
		previews: previews,
		relay:    relay,
		logger:   logger,
		histPage: conf.Chat.HistoryPageSize,
	}
}

// NewConversation contains information needed to open a conversation.
type NewConversation struct {
	AssistantID string `json:"assistant_id" validate:"required"`
	Title       string `json:"title"`
}

func (nc *NewConversation) Validate(validate *validator.Validate) error {
	nc.AssistantID = core.CleanString(nc.AssistantID)
	nc.Title = core.CleanString(nc.Title)
	return validate.Struct(nc)
}

// SendMessageInput is the REST send payload.
type SendMessageInput struct {
	Content          string `json:"content" validate:"required"`
	ReplyToMessageID string `json:"reply_to_message_id,omitempty"`
	// ClientRef identifies the sender's socket so the realtime echo can
	// skip it; optional.
	ClientRef string `json:"client_ref,omitempty"`
}

func (sm *SendMessageInput) Validate(validate *validator.Validate) error {
	sm.Content = core.CleanString(sm.Content)
	return validate.Struct(sm)
}

func (svc *Service) CreateConversation(ctx context.Context, studentID string, nc NewConversation) (Conversation, error) {
	now := time.Now().UTC()
	return svc.repo.CreateConversation(ctx, Conversation{
		ID:          uuid.NewString(),
		AssistantID: nc.AssistantID,
		StudentID:   studentID,
		Title:       nc.Title,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Conversation, error) {
	return svc.repo.GetConversationByID(ctx, id)
}

// History returns the canonical history payload.
func (svc *Service) History(ctx context.Context, conversationID string) (HistoryResponse, error) {
	if _, err := svc.repo.GetConversationByID(ctx, conversationID); err != nil {
		return HistoryResponse{}, err
	}
	msgs, err := svc.repo.QueryMessagesByConversation(ctx, conversationID, svc.histPage)
	if err != nil {
		return HistoryResponse{}, errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []StoredMessage{}
	}
	if svc.previews != nil {
		if err := svc.previews.MarkRead(ctx, conversationID); err != nil {
			svc.logger.Error(fmt.Sprintf("marking preview read: %v", err), err)
		}
	}
	return HistoryResponse{Messages: msgs}, nil
}

// LegacyHistory returns the pre-canonical payload shape with
// already-typed senders, kept for backward compatibility.
func (svc *Service) LegacyHistory(ctx context.Context, conversationID, userID string) (LegacyHistoryResponse, error) {
	hist, err := svc.History(ctx, conversationID)
	if err != nil {
		return LegacyHistoryResponse{}, err
	}
	brief, err := svc.repo.GetParticipantsBrief(ctx, conversationID, userID)
	if err != nil {
		return LegacyHistoryResponse{}, errors.Wrap(err, "querying participants brief")
	}

	history := make([]Message, 0, len(hist.Messages))
	for _, sm := range hist.Messages {
		history = append(history, storedToWire(sm))
	}
	return LegacyHistoryResponse{History: history, Assistant: brief.Assistant}, nil
}

// Send persists a student/instructor message and fans it out over the
// realtime transport, the cross-instance relay, and the preview cache.
// Fan-out failures are reported, never returned; the persisted message
// stands regardless.
func (svc *Service) Send(ctx context.Context, conversationID, senderUserID string, sender Sender, in SendMessageInput) (StoredMessage, error) {
	conv, err := svc.repo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return StoredMessage{}, err
	}
	if sender == SenderStudent && conv.StudentID != senderUserID {
		return StoredMessage{}, ErrNotParticipant
	}

	msg := StoredMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		SenderUserID:   null.StringFrom(senderUserID),
		Content:        in.Content,
		CreatedAt:      time.Now().UTC(),
	}
	if in.ReplyToMessageID != "" {
		msg.ReplyToMessageID = null.StringFrom(in.ReplyToMessageID)
	}
	if in.ClientRef != "" {
		msg.ClientRef = null.StringFrom(in.ClientRef)
	}

	msg, err = svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return StoredMessage{}, errors.Wrap(err, "creating message")
	}

	svc.fanOut(ctx, msg, in.ClientRef)
	return msg, nil
}

// SendAgentReply persists an assistant reply carrying the invocation id
// that correlates it with the request, then fans it out.
func (svc *Service) SendAgentReply(ctx context.Context, conversationID, assistantID, invocationID, content string) (StoredMessage, error) {
	if _, err := svc.repo.GetConversationByID(ctx, conversationID); err != nil {
		return StoredMessage{}, err
	}
	if invocationID == "" {
		invocationID = uuid.NewString()
	}

	msg := StoredMessage{
		ID:                uuid.NewString(),
		ConversationID:    conversationID,
		Sender:            SenderAgent,
		SenderAssistantID: null.StringFrom(assistantID),
		Content:           content,
		InvocationID:      null.StringFrom(invocationID),
		CreatedAt:         time.Now().UTC(),
	}
	msg, err := svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return StoredMessage{}, errors.Wrap(err, "creating agent reply")
	}

	svc.fanOut(ctx, msg, "")
	return msg, nil
}

// Typing fans a typing signal out to the conversation's sockets.
func (svc *Service) Typing(ctx context.Context, conversationID string, typing bool) {
	ev := TypingEvent{ConversationID: conversationID, Typing: &typing}
	if svc.hub != nil {
		svc.hub.BroadcastTyping(ev)
	}
	if svc.relay != nil {
		if err := svc.relay.PublishTyping(ctx, ev); err != nil {
			svc.logger.Error(fmt.Sprintf("relaying typing event: %v", err), err)
		}
	}
}

// Conversations lists a student's conversations with cached previews
// attached where available.
func (svc *Service) Conversations(ctx context.Context, studentID string) ([]ConversationWithPreview, error) {
	convs, err := svc.repo.QueryConversationsByStudent(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying conversations")
	}

	out := make([]ConversationWithPreview, 0, len(convs))
	var previews map[string]Preview
	if svc.previews != nil && len(convs) > 0 {
		ids := make([]string, 0, len(convs))
		for _, c := range convs {
			ids = append(ids, c.ID)
		}
		if previews, err = svc.previews.GetPreviews(ctx, ids); err != nil {
			// previews are a cache; serve the list without them
			svc.logger.Error(fmt.Sprintf("querying previews: %v", err), err)
			previews = nil
		}
	}
	for _, c := range convs {
		cwp := ConversationWithPreview{Conversation: c}
		if p, ok := previews[c.ID]; ok {
			preview := p
			cwp.LastMessage = &preview
		}
		out = append(out, cwp)
	}
	return out, nil
}

func (svc *Service) ParticipantsBrief(ctx context.Context, conversationID, userID string) (ParticipantsBrief, error) {
	if _, err := svc.repo.GetConversationByID(ctx, conversationID); err != nil {
		return ParticipantsBrief{}, err
	}
	return svc.repo.GetParticipantsBrief(ctx, conversationID, userID)
}

func (svc *Service) fanOut(ctx context.Context, msg StoredMessage, excludeClientRef string) {
	ev := MessageEvent{
		UserID:         msg.SenderUserID.String,
		ConversationID: msg.ConversationID,
		Sender:         msg.Sender,
		Content:        msg.Content,
		Timestamp:      msg.CreatedAt.Format(time.RFC3339),
		InvocationID:   msg.InvocationID.String,
		ClientRef:      msg.ClientRef.String,
	}

	if svc.hub != nil {
		svc.hub.BroadcastMessage(ev, excludeClientRef)
	}
	if svc.relay != nil {
		if err := svc.relay.PublishMessage(ctx, ev); err != nil {
			svc.logger.Error(fmt.Sprintf("relaying message event: %v", err), err)
		}
	}
	if svc.previews != nil {
		p := Preview{Sender: msg.Sender, Content: core.Truncate(msg.Content, 80), Time: msg.CreatedAt.Unix()}
		if msg.Sender != SenderStudent {
			// the student's own send implies they are caught up
			if prev, err := svc.previews.GetPreviews(ctx, []string{msg.ConversationID}); err == nil {
				p.Unread = prev[msg.ConversationID].Unread + 1
			} else {
				p.Unread = 1
			}
		}
		if err := svc.previews.SetLastMessage(ctx, msg.ConversationID, p); err != nil {
			svc.logger.Error(fmt.Sprintf("caching preview: %v", err), err)
		}
	}
}

func storedToWire(sm StoredMessage) Message {
	sender := sm.Sender
	if !sender.Known() {
		if sm.SenderAssistantID.Valid {
			sender = SenderAgent
		} else {
			sender = SenderStudent
		}
	}
	return Message{
		ID:           sm.ID,
		Sender:       sender,
		Content:      sm.Content,
		Time:         sm.CreatedAt.Unix(),
		InvocationID: sm.InvocationID.String,
	}
}
