package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane-erp/stocklane/internal/shared"
)

// Service handles notification business logic.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{pool: pool, logger: logger}
}

// ListForUser returns a user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, level, title, message, is_read, created_at
FROM notifications
WHERE user_id = $1 AND is_deleted = FALSE AND ($2 = FALSE OR is_read = FALSE)
ORDER BY created_at DESC, id DESC
LIMIT 200`, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Level, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Create inserts one notification for one user.
func (s *Service) Create(ctx context.Context, userID int64, level Level, title, message string) (int64, error) {
	if !level.Valid() {
		return 0, fmt.Errorf("notifications: unknown level %q", level)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, errors.New("notifications: title required")
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO notifications (user_id, level, title, message, is_read, created_at)
VALUES ($1, $2, $3, $4, FALSE, NOW())
RETURNING id`, userID, level, title, message).Scan(&id)
	return id, err
}

// BroadcastToPermission inserts a notification for every active user whose
// role currently grants the permission. A user already holding an unread
// notification with the same title is skipped, so a persisting condition
// does not pile up duplicates.
func (s *Service) BroadcastToPermission(ctx context.Context, permission string, level Level, title, message string) (int64, error) {
	if !level.Valid() {
		return 0, fmt.Errorf("notifications: unknown level %q", level)
	}
	tag, err := s.pool.Exec(ctx, `
INSERT INTO notifications (user_id, level, title, message, is_read, created_at)
SELECT u.id, $2, $3, $4, FALSE, NOW()
FROM users u
JOIN roles r ON r.id = u.role_id AND r.is_deleted = FALSE
JOIN role_permissions rp ON rp.role_id = r.id AND rp.is_deleted = FALSE
JOIN permissions p ON p.id = rp.permission_id AND p.is_deleted = FALSE AND p.name = $1
WHERE u.is_deleted = FALSE AND u.is_active = TRUE
  AND NOT EXISTS (
    SELECT 1 FROM notifications n
    WHERE n.user_id = u.id AND n.title = $3 AND n.is_read = FALSE AND n.is_deleted = FALSE
  )`, permission, level, title, message)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkRead flags one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// MarkAllRead flags every unread notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE AND is_deleted = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete soft-deletes one of the user's notifications.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET is_deleted = TRUE WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
