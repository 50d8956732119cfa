package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orbitalworks/verdict/internal/model"
)

// CreateNotification inserts a stakeholder notification.
func (db *DB) CreateNotification(ctx context.Context, n *model.Notification) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.UserID, n.Type, n.Title, n.Message, n.Data, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: create notification: %w", err)
	}
	return nil
}

// ListNotificationsForUser returns a user's notifications, newest first.
func (db *DB) ListNotificationsForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Notification, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, user_id, type, title, message, data, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Data, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate notifications: %w", err)
	}
	return notifications, nil
}
