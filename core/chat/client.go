package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

type (
	// APIClient talks to the chat REST API. It satisfies HistoryLoader
	// and MessageSender for a Session, normalizing both historical
	// backend payload shapes at this boundary so the session only ever
	// sees canonical Messages.
	APIClient struct {
		baseURL string
		client  *http.Client
	}

	// new shape: per-message created_at, sender_assistant_id presence
	// standing in for role
	historyMessage struct {
		ID                string      `json:"id"`
		Content           string      `json:"content"`
		CreatedAt         string      `json:"created_at"`
		Sender            Sender      `json:"sender,omitempty"`
		SenderUserID      null.String `json:"sender_user_id,omitempty"`
		SenderAssistantID null.String `json:"sender_assistant_id,omitempty"`
		InvocationID      string      `json:"invocation_id,omitempty"`
		ReplyToBrief      *ReplyBrief `json:"reply_to_brief,omitempty"`
	}

	historyEnvelope struct {
		Messages []historyMessage `json:"messages"`
		History  []Message        `json:"history"` // legacy shape, already-typed sender
	}

	sendRequest struct {
		ConversationID   string `json:"conversation_id"`
		Content          string `json:"content"`
		ReplyToMessageID string `json:"reply_to_message_id,omitempty"`
	}
)

var (
	_ HistoryLoader = (*APIClient)(nil)
	_ MessageSender = (*APIClient)(nil)
)

func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIClient{baseURL: baseURL, client: client}
}

func (c *APIClient) LoadHistory(ctx context.Context, conversationID string) ([]Message, error) {
	url := fmt.Sprintf("%s/v1/conversations/%s/messages", c.baseURL, conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building history request")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching history")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching history: status %d", res.StatusCode)
	}

	var envelope historyEnvelope
	if err = json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, errors.Wrap(err, "decoding history payload")
	}
	return NormalizeHistory(envelope), nil
}

func (c *APIClient) SendMessage(ctx context.Context, conversationID, content, replyToMessageID string) error {
	body, err := json.Marshal(sendRequest{
		ConversationID:   conversationID,
		Content:          content,
		ReplyToMessageID: replyToMessageID,
	})
	if err != nil {
		return errors.Wrap(err, "encoding send request")
	}

	url := fmt.Sprintf("%s/v1/conversations/%s/messages", c.baseURL, conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building send request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	defer func() { _ = res.Body.Close() }()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sending message: status %d", res.StatusCode)
	}
	return nil
}

// NormalizeHistory maps whichever payload shape is present onto the
// canonical Message sequence. The newer messages[] shape infers the
// agent role from the presence of a sender assistant id; the legacy
// history[] shape is passed through as-is.
func NormalizeHistory(envelope historyEnvelope) []Message {
	if envelope.Messages == nil {
		return envelope.History
	}

	out := make([]Message, 0, len(envelope.Messages))
	for _, hm := range envelope.Messages {
		sender := hm.Sender
		if !sender.Known() {
			if hm.SenderAssistantID.Valid {
				sender = SenderAgent
			} else {
				sender = SenderStudent
			}
		}
		out = append(out, Message{
			ID:           hm.ID,
			Sender:       sender,
			Content:      hm.Content,
			Time:         isoToEpochSeconds(hm.CreatedAt),
			InvocationID: hm.InvocationID,
			ReplyToBrief: hm.ReplyToBrief,
		})
	}
	return out
}

func isoToEpochSeconds(iso string) int64 {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return 0
	}
	return t.UnixMilli() / 1000
}
