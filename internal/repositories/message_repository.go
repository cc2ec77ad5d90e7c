package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, from_id, to_id, body, reply_to, forwarded_from, is_forwarded,
    chat_key, status, delivered_at, read_at, deleted_for, is_deleted, pinned, favourite, created_at`

// NewMessageParams carries the fields of a message about to be persisted.
type NewMessageParams struct {
	FromID        string
	ToID          string
	Body          string
	ReplyTo       *string
	IsForwarded   bool
	ForwardedFrom *string
	ChatKey       string
}

// MessageRepository defines interactions for chat messages and their
// delivery state.
type MessageRepository interface {
	CreateMessage(ctx context.Context, params NewMessageParams) (models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	MarkDelivered(ctx context.Context, messageID string, at time.Time) error
	MarkRead(ctx context.Context, messageIDs []string, toID string, at time.Time) ([]string, error)
	PromoteToDelivered(ctx context.Context, toID string, at time.Time) ([]models.StatusUpdate, error)
	MarkUnreadLatest(ctx context.Context, chatKey, fromID, toID string) error
	MarkConversationRead(ctx context.Context, chatKey, fromID, toID string, at time.Time) error
	AddDeletedFor(ctx context.Context, messageID, userID string) error
	MarkDeletedForAll(ctx context.Context, messageID string) error
	SetPinned(ctx context.Context, messageID string, pinned bool) error
	SetFavourite(ctx context.Context, messageID string, favourite bool) error
	ListChatMessages(ctx context.Context, chatKey, userID string) ([]models.Message, error)
	ListFavourites(ctx context.Context, userID string) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a new message with status sent.
func (r *MessageRepo) CreateMessage(ctx context.Context, params NewMessageParams) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`INSERT INTO messages (id, from_id, to_id, body, reply_to, forwarded_from, is_forwarded, chat_key, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
         RETURNING `+messageColumns,
		uuid.NewString(), params.FromID, params.ToID, params.Body,
		params.ReplyTo, params.ForwardedFrom, params.IsForwarded, params.ChatKey, models.StatusSent)
	return msg, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkDelivered advances a single message to delivered.
func (r *MessageRepo) MarkDelivered(ctx context.Context, messageID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET status=$2, delivered_at=$3 WHERE id=$1`,
		messageID, models.StatusDelivered, at)
	return err
}

// MarkRead advances the given inbound messages of toID to read and returns
// the ids actually updated. Re-acknowledging already read messages is a
// no-op, so callers emit no duplicate status events.
func (r *MessageRepo) MarkRead(ctx context.Context, messageIDs []string, toID string, at time.Time) ([]string, error) {
	var updated []string
	err := r.db.SelectContext(ctx, &updated,
		`UPDATE messages SET status=$3, read_at=$4
         WHERE id = ANY($1) AND to_id=$2 AND status <> $3
         RETURNING id`,
		pq.Array(messageIDs), toID, models.StatusRead, at)
	return updated, err
}

// PromoteToDelivered bulk-promotes the receiver's pending inbound messages
// to delivered with a fresh delivered_at (reconnection catch-up) and returns
// one update per message so connected senders can be notified.
func (r *MessageRepo) PromoteToDelivered(ctx context.Context, toID string, at time.Time) ([]models.StatusUpdate, error) {
	var updates []models.StatusUpdate
	err := r.db.SelectContext(ctx, &updates,
		`UPDATE messages SET status=$2, delivered_at=$3
         WHERE to_id=$1 AND status IN ($4, $2)
         RETURNING id, from_id`,
		toID, models.StatusDelivered, at, models.StatusSent)
	return updates, err
}

// MarkUnreadLatest resets the latest visible inbound message of the pair to
// delivered. This is the only permitted status regression.
func (r *MessageRepo) MarkUnreadLatest(ctx context.Context, chatKey, fromID, toID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET status=$4, read_at=NULL
         WHERE id = (
             SELECT id FROM messages
             WHERE chat_key=$1 AND from_id=$2 AND to_id=$3
               AND is_deleted = FALSE AND NOT ($3 = ANY(deleted_for))
             ORDER BY created_at DESC LIMIT 1
         )`,
		chatKey, fromID, toID, models.StatusDelivered)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkConversationRead marks every visible unread inbound message of the
// pair as read.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, chatKey, fromID, toID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET status=$4, read_at=$5
         WHERE chat_key=$1 AND from_id=$2 AND to_id=$3 AND status <> $4
           AND is_deleted = FALSE AND NOT ($3 = ANY(deleted_for))`,
		chatKey, fromID, toID, models.StatusRead, at)
	return err
}

// AddDeletedFor hides the message from a single participant. Idempotent.
func (r *MessageRepo) AddDeletedFor(ctx context.Context, messageID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET deleted_for = array_append(deleted_for, $2)
         WHERE id=$1 AND NOT ($2 = ANY(deleted_for))`,
		messageID, userID)
	return err
}

// MarkDeletedForAll sets the hard tombstone hiding the message from both
// parties. The record itself is kept.
func (r *MessageRepo) MarkDeletedForAll(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_deleted = TRUE WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// SetPinned toggles the pinned flag.
func (r *MessageRepo) SetPinned(ctx context.Context, messageID string, pinned bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET pinned=$2 WHERE id=$1`, messageID, pinned)
	return err
}

// SetFavourite toggles the favourite flag.
func (r *MessageRepo) SetFavourite(ctx context.Context, messageID string, favourite bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET favourite=$2 WHERE id=$1`, messageID, favourite)
	return err
}

// ListChatMessages returns the partition's messages visible to userID,
// pinned first, then oldest first.
func (r *MessageRepo) ListChatMessages(ctx context.Context, chatKey, userID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE chat_key=$1 AND is_deleted = FALSE AND NOT ($2 = ANY(deleted_for))
         ORDER BY pinned DESC, created_at ASC`,
		chatKey, userID)
	return msgs, err
}

// ListFavourites returns the user's favourite messages, newest first.
func (r *MessageRepo) ListFavourites(ctx context.Context, userID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE (from_id=$1 OR to_id=$1) AND favourite = TRUE
           AND is_deleted = FALSE AND NOT ($1 = ANY(deleted_for))
         ORDER BY created_at DESC`,
		userID)
	return msgs, err
}
