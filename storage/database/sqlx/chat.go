package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/chat"
)

type chatRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db *sqlx.DB) *chatRepository {
	return &chatRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to chat.ErrNotFound
func (repo chatRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return chat.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo chatRepository) CreateConversation(ctx context.Context, conv chat.Conversation) (chat.Conversation, error) {
	const q = `
		INSERT INTO conversation (id, assistant_id, student_id, title, created_at, updated_at)
		VALUES (:id, :assistant_id, :student_id, :title, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, conv); err != nil {
		return chat.Conversation{}, errors.Wrap(err, "inserting conversation")
	}
	return conv, nil
}

func (repo chatRepository) GetConversationByID(ctx context.Context, id string) (chat.Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return chat.Conversation{}, chat.ErrNotFound
	}
	var conv chat.Conversation
	const q = `SELECT * FROM conversation WHERE id = $1`
	if err := repo.db.GetContext(ctx, &conv, q, id); err != nil {
		return chat.Conversation{}, repo.trapNoRowsErr(err, "finding conversation by ID")
	}
	return conv, nil
}

func (repo chatRepository) QueryConversationsByStudent(ctx context.Context, studentID string) ([]chat.Conversation, error) {
	convs := []chat.Conversation{}
	const q = `SELECT * FROM conversation WHERE student_id = $1 ORDER BY updated_at DESC`
	if err := repo.db.SelectContext(ctx, &convs, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying conversations")
	}
	return convs, nil
}

func (repo chatRepository) CreateMessage(ctx context.Context, msg chat.StoredMessage) (chat.StoredMessage, error) {
	const q = `
		INSERT INTO message (
			id, conversation_id, sender, sender_user_id, sender_assistant_id,
			content, invocation_id, reply_to_message_id, client_ref, created_at
		) VALUES (
			:id, :conversation_id, :sender, :sender_user_id, :sender_assistant_id,
			:content, :invocation_id, :reply_to_message_id, :client_ref, :created_at
		)`
	if _, err := repo.db.NamedExecContext(ctx, q, msg); err != nil {
		return chat.StoredMessage{}, errors.Wrap(err, "inserting message")
	}

	const touch = `UPDATE conversation SET updated_at = $1 WHERE id = $2`
	if _, err := repo.db.ExecContext(ctx, touch, msg.CreatedAt, msg.ConversationID); err != nil {
		return chat.StoredMessage{}, errors.Wrap(err, "touching conversation")
	}
	return msg, nil
}

func (repo chatRepository) QueryMessagesByConversation(ctx context.Context, conversationID string, limit int) ([]chat.StoredMessage, error) {
	msgs := []chat.StoredMessage{}
	// the newest page, returned in insertion order
	const q = `
		SELECT * FROM (
			SELECT * FROM message WHERE conversation_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
		) page ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &msgs, q, conversationID, limit); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	return msgs, nil
}

func (repo chatRepository) GetParticipantsBrief(ctx context.Context, conversationID, userID string) (chat.ParticipantsBrief, error) {
	var brief chat.ParticipantsBrief

	var assistantRow struct {
		ID        string `db:"id"`
		Name      string `db:"name"`
		AvatarURL string `db:"avatar_url"`
	}
	const qa = `
		SELECT a.id, a.name, a.avatar_url
		FROM assistant a JOIN conversation c ON c.assistant_id = a.id
		WHERE c.id = $1`
	if err := repo.db.GetContext(ctx, &assistantRow, qa, conversationID); err != nil {
		return brief, repo.trapNoRowsErr(err, "finding conversation assistant")
	}
	brief.Assistant = chat.ParticipantBrief(assistantRow)

	var userRow struct {
		ID        string `db:"id"`
		Name      string `db:"name"`
		AvatarURL string `db:"avatar_url"`
	}
	const qu = `SELECT id, name, avatar_url FROM app_user WHERE id = $1`
	if err := repo.db.GetContext(ctx, &userRow, qu, userID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return brief, errors.Wrap(err, "finding conversation user")
		}
	} else {
		brief.User = chat.ParticipantBrief(userRow)
	}
	return brief, nil
}
