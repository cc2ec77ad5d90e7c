package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// ConversationRepository is the read model over persisted message state. It
// holds no state of its own and takes no part in real-time dispatch.
type ConversationRepository interface {
	ListPartners(ctx context.Context, userID string) ([]string, error)
	LastMessage(ctx context.Context, chatKey, userID string) (models.Message, error)
	UnreadCount(ctx context.Context, chatKey, partnerID, userID string) (int, error)
}

// ConversationRepo is a sqlx-backed repository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// ListPartners returns the distinct chat partners of userID across both
// authorship directions, excluding rows the user deleted for themselves.
func (r *ConversationRepo) ListPartners(ctx context.Context, userID string) ([]string, error) {
	var partners []string
	err := r.db.SelectContext(ctx, &partners,
		`SELECT DISTINCT partner FROM (
             SELECT from_id AS partner FROM messages
             WHERE to_id=$1 AND is_deleted = FALSE AND NOT ($1 = ANY(deleted_for))
             UNION
             SELECT to_id AS partner FROM messages
             WHERE from_id=$1 AND is_deleted = FALSE AND NOT ($1 = ANY(deleted_for))
         ) p WHERE partner <> $1`,
		userID)
	return partners, err
}

// LastMessage returns the most recent message of the partition visible to
// userID.
func (r *ConversationRepo) LastMessage(ctx context.Context, chatKey, userID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages
         WHERE chat_key=$1 AND is_deleted = FALSE AND NOT ($2 = ANY(deleted_for))
         ORDER BY created_at DESC LIMIT 1`,
		chatKey, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UnreadCount counts visible inbound messages of the partition that the
// user has not read yet.
func (r *ConversationRepo) UnreadCount(ctx context.Context, chatKey, partnerID, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages
         WHERE chat_key=$1 AND from_id=$2 AND to_id=$3 AND status <> $4
           AND is_deleted = FALSE AND NOT ($3 = ANY(deleted_for))`,
		chatKey, partnerID, userID, models.StatusRead)
	return count, err
}
