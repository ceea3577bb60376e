package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core/chat"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func testClient(conversationID, ref string) *Client {
	return &Client{
		ConversationID: conversationID,
		Ref:            ref,
		send:           make(chan []byte, 8),
	}
}

func recvFrame(t *testing.T, c *Client) envelope {
	t.Helper()
	select {
	case raw := <-c.send:
		var env envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return envelope{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected frame: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRoutesByConversation(t *testing.T) {
	hub := startHub(t)
	a1 := testClient("conv-a", "ref-1")
	a2 := testClient("conv-a", "ref-2")
	b := testClient("conv-b", "ref-3")
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b)

	hub.BroadcastMessage(chat.MessageEvent{
		ConversationID: "conv-a",
		Sender:         chat.SenderAgent,
		Content:        "hello",
		Timestamp:      "2024-01-01T00:00:00Z",
	}, "")

	for _, c := range []*Client{a1, a2} {
		env := recvFrame(t, c)
		assert.Equal(t, chat.EventMessage, env.Event)

		var ev chat.MessageEvent
		raw, err := json.Marshal(env.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &ev))
		assert.Equal(t, "conv-a", ev.ConversationID)
		assert.Equal(t, "hello", ev.Content)
	}
	assertNoFrame(t, b)
}

func TestHubSkipsSenderByClientRef(t *testing.T) {
	hub := startHub(t)
	sender := testClient("conv-a", "ref-sender")
	other := testClient("conv-a", "ref-other")
	hub.Register(sender)
	hub.Register(other)

	hub.BroadcastMessage(chat.MessageEvent{
		ConversationID: "conv-a",
		Sender:         chat.SenderStudent,
		Content:        "mine",
		ClientRef:      "ref-sender",
	}, "ref-sender")

	env := recvFrame(t, other)
	assert.Equal(t, chat.EventMessage, env.Event)
	assertNoFrame(t, sender)
}

func TestHubBroadcastTypingNestedConversationID(t *testing.T) {
	hub := startHub(t)
	c := testClient("conv-a", "ref-1")
	hub.Register(c)

	ev := chat.TypingEvent{
		Meta: &struct {
			Typing bool `json:"typing"`
		}{Typing: true},
		Message: &struct {
			ConversationID string `json:"conversation_id"`
		}{ConversationID: "conv-a"},
	}
	hub.BroadcastTyping(ev)

	env := recvFrame(t, c)
	assert.Equal(t, chat.EventTyping, env.Event)
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := startHub(t)
	slow := &Client{ConversationID: "conv-a", Ref: "ref-slow", send: make(chan []byte)}
	ok := testClient("conv-a", "ref-ok")
	hub.Register(slow)
	hub.Register(ok)

	// Nothing reads slow.send, so the first delivery evicts it.
	hub.BroadcastMessage(chat.MessageEvent{ConversationID: "conv-a", Sender: chat.SenderAgent, Content: "one"}, "")
	recvFrame(t, ok)

	select {
	case _, open := <-slow.send:
		assert.False(t, open, "expected slow client channel closed")
	case <-time.After(time.Second):
		t.Fatal("slow client channel was not closed")
	}

	// Subsequent broadcasts still reach the healthy client.
	hub.BroadcastMessage(chat.MessageEvent{ConversationID: "conv-a", Sender: chat.SenderAgent, Content: "two"}, "")
	recvFrame(t, ok)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	c := testClient("conv-a", "ref-1")
	hub.Register(c)
	hub.Unregister(c)

	select {
	case _, open := <-c.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed on unregister")
	}

	// Broadcasting afterwards must not panic on the removed client.
	hub.BroadcastMessage(chat.MessageEvent{ConversationID: "conv-a", Sender: chat.SenderAgent, Content: "late"}, "")
	time.Sleep(20 * time.Millisecond)
}
