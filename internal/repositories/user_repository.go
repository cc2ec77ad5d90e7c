package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, name, email, bio, avatar_url, last_seen, push_tokens,
    message_notifications, call_notifications, push_notifications, created_at`

// UserRepository defines interactions with messenger accounts.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context, excludeID string) ([]models.User, error)
	SetLastSeen(ctx context.Context, userID string, lastSeen *time.Time) error
	AddPushToken(ctx context.Context, userID string, token string) error
	GetNotificationPreferences(ctx context.Context, userID string) (models.NotificationPreferences, error)
	UpdateNotificationPreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error
}

// UserRepo is a sqlx-backed repository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser retrieves a single user.
func (r *UserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// ListUsers returns every user except excludeID, most recent first.
func (r *UserRepo) ListUsers(ctx context.Context, excludeID string) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE id<>$1 ORDER BY created_at DESC`, excludeID)
	return users, err
}

// SetLastSeen persists the durable presence signal. nil marks the user
// online; a timestamp records the moment of disconnect.
func (r *UserRepo) SetLastSeen(ctx context.Context, userID string, lastSeen *time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_seen=$2 WHERE id=$1`, userID, lastSeen)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AddPushToken registers a device token, ignoring duplicates.
func (r *UserRepo) AddPushToken(ctx context.Context, userID string, token string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET push_tokens = array_append(push_tokens, $2)
         WHERE id=$1 AND NOT ($2 = ANY(push_tokens))`, userID, token)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		// Either the token is already registered or the user does not exist.
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, userID); err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}
	}
	return nil
}

// GetNotificationPreferences returns the user's notification flags.
func (r *UserRepo) GetNotificationPreferences(ctx context.Context, userID string) (models.NotificationPreferences, error) {
	var prefs models.NotificationPreferences
	err := r.db.GetContext(ctx, &prefs,
		`SELECT message_notifications, call_notifications, push_notifications FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotificationPreferences{}, ErrUserNotFound
	}
	return prefs, err
}

// UpdateNotificationPreferences replaces the user's notification flags.
func (r *UserRepo) UpdateNotificationPreferences(ctx context.Context, userID string, prefs models.NotificationPreferences) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET message_notifications=$2, call_notifications=$3, push_notifications=$4 WHERE id=$1`,
		userID, prefs.MessageNotifications, prefs.CallNotifications, prefs.PushNotifications)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
