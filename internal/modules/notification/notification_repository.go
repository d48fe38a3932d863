package notification

import (
	"context"
	"fmt"

	"logmene/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for notification persistence.
type RepositoryInterface interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]*models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id int, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// Repository implements RepositoryInterface on Postgres.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new notification repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// Create inserts n and fills in its id, read flag and timestamp.
func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, request_id, type, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, read, created_at`

	if err := r.db.QueryRow(ctx, query, n.UserID, n.RequestID, n.Type, n.Message).Scan(&n.ID, &n.Read, &n.CreatedAt); err != nil {
		return fmt.Errorf("repository.CreateNotification: %w", err)
	}
	return nil
}

// ListByUser returns one page of a user's notifications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]*models.Notification, int, error) {
	where := `WHERE user_id = $1`
	if unreadOnly {
		where += ` AND read = FALSE`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+where, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.ListByUser.Count: %w", err)
	}

	query := `
		SELECT id, user_id, request_id, type, message, read, created_at
		FROM notifications ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListByUser.Query: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0, limit)
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.RequestID, &n.Type, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("repository.ListByUser.Scan: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository.ListByUser.Rows: %w", err)
	}
	return notifications, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repository.CountUnread: %w", err)
	}
	return n, nil
}

// MarkRead flags one notification as read. Another user's notification reads as not found.
func (r *Repository) MarkRead(ctx context.Context, id int, userID string) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("repository.MarkRead: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of the user and returns how many changed.
func (r *Repository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("repository.MarkAllRead: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
