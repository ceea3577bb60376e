package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/assistant"
	"github.com/darasahq/darasa/core/chat"
)

// NewConfig returns the config used across tests; no env involved.
func NewConfig() *core.Config {
	// Debug stays off so error responses keep their clean production
	// bodies; TestMode alone drives the logger and recover switches.
	return &core.Config{
		Debug:    false,
		TestMode: true,
		Env:      "test",
		AppName:  "darasa",
		Chat: core.ChatConfig{
			DedupCapacity:   chat.DefaultDedupCapacity,
			HistoryPageSize: 50,
			SendRatePerSec:  100,
			SendBurst:       100,
			ClientBuffer:    16,
		},
	}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(msg string, args ...interface{}) {}
func (NopLogger) Info(msg string, args ...interface{})  {}
func (NopLogger) Warn(msg string, args ...interface{})  {}
func (NopLogger) Error(msg string, args ...interface{}) {}
func (NopLogger) Fatal(msg string, args ...interface{}) {}

func CreateAssistant(
	t *testing.T,
	repo assistant.Repository,
	instructorID, name string,
	published bool,
	createdAt ...time.Time,
) assistant.Assistant {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	a, err := repo.CreateAssistant(context.Background(), assistant.Assistant{
		ID:           uuid.NewString(),
		InstructorID: instructorID,
		Name:         name,
		Published:    published,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("CreateAssistant() failed: %v", err)
	}
	return a
}

func CreateConversation(
	t *testing.T,
	repo chat.Repository,
	assistantID, studentID, title string,
	createdAt ...time.Time,
) chat.Conversation {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	conv, err := repo.CreateConversation(context.Background(), chat.Conversation{
		ID:          uuid.NewString(),
		AssistantID: assistantID,
		StudentID:   studentID,
		Title:       title,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateConversation() failed: %v", err)
	}
	return conv
}

func CreateMessage(
	t *testing.T,
	repo chat.Repository,
	msg chat.StoredMessage,
) chat.StoredMessage {
	t.Helper()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg, err := repo.CreateMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("CreateMessage() failed: %v", err)
	}
	return msg
}
