package inmemdb

import (
	"context"
	"sort"

	"github.com/darasahq/darasa/core/chat"
)

type chatRepository struct {
	db *DB
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db *DB) *chatRepository {
	return &chatRepository{db: db}
}

func (repo *chatRepository) CreateConversation(ctx context.Context, conv chat.Conversation) (chat.Conversation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.conversations[conv.ID] = conv
	return conv, nil
}

func (repo *chatRepository) GetConversationByID(ctx context.Context, id string) (chat.Conversation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if conv, ok := repo.db.conversations[id]; ok {
		return conv, nil
	}
	return chat.Conversation{}, chat.ErrNotFound
}

func (repo *chatRepository) QueryConversationsByStudent(ctx context.Context, studentID string) ([]chat.Conversation, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	convs := make([]chat.Conversation, 0)
	for _, conv := range repo.db.conversations {
		if conv.StudentID == studentID {
			convs = append(convs, conv)
		}
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].UpdatedAt.After(convs[j].UpdatedAt) })
	return convs, nil
}

func (repo *chatRepository) CreateMessage(ctx context.Context, msg chat.StoredMessage) (chat.StoredMessage, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.conversations[msg.ConversationID]; !ok {
		return chat.StoredMessage{}, chat.ErrNotFound
	}
	repo.db.messages = append(repo.db.messages, msg)

	conv := repo.db.conversations[msg.ConversationID]
	conv.UpdatedAt = msg.CreatedAt
	repo.db.conversations[msg.ConversationID] = conv
	return msg, nil
}

func (repo *chatRepository) QueryMessagesByConversation(ctx context.Context, conversationID string, limit int) ([]chat.StoredMessage, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	msgs := make([]chat.StoredMessage, 0)
	for _, msg := range repo.db.messages {
		if msg.ConversationID == conversationID {
			msgs = append(msgs, msg)
		}
	}
	// newest page, insertion order
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (repo *chatRepository) GetParticipantsBrief(ctx context.Context, conversationID, userID string) (chat.ParticipantsBrief, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	conv, ok := repo.db.conversations[conversationID]
	if !ok {
		return chat.ParticipantsBrief{}, chat.ErrNotFound
	}

	var brief chat.ParticipantsBrief
	if a, ok := repo.db.assistants[conv.AssistantID]; ok {
		brief.Assistant = chat.ParticipantBrief{ID: a.ID, Name: a.Name, AvatarURL: a.AvatarURL}
	}
	if u, ok := repo.db.users[userID]; ok {
		brief.User = chat.ParticipantBrief{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
	}
	return brief, nil
}
