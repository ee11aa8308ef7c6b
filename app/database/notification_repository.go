package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/ad-comb/app/ads"
)

type Notification struct {
	ID        int64     `json:"id"`
	Recipient string    `json:"recipient"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	AdID      string    `json:"adId,omitempty"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationRepository stores owner and admin notifications
type NotificationRepository struct {
	db  *DB
	now func() time.Time
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db, now: time.Now}
}

// Notify records n. An empty recipient addresses administrators.
func (r *NotificationRepository) Notify(ctx context.Context, n ads.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (recipient, type, content, ad_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, n.Recipient, n.Type, n.Content, n.AdID, formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListForRecipient returns the newest notifications for recipient
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipient string, limit int) ([]Notification, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recipient, type, content, ad_id, is_read, created_at
		FROM notifications
		WHERE recipient = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var items []Notification
	for rows.Next() {
		var n Notification
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Type, &n.Content, &n.AdID, &n.IsRead, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return items, nil
}

// CountForAd returns how many notifications of type were sent about adID
func (r *NotificationRepository) CountForAd(ctx context.Context, adID, notificationType string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE ad_id = ? AND type = ?
	`, adID, notificationType).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}
