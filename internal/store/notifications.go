package store

import (
	"database/sql"
	"time"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
)

// CreateNotification inserts a notification
func (s *Store) CreateNotification(n *domain.Notification) error {
	_, err := s.db.Exec(`
		INSERT INTO notifications (id, type, title, message, prospect_id, is_read, action_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, string(n.Type), n.Title, n.Message, n.ProspectID, n.IsRead, n.ActionRef, n.CreatedAt)
	return err
}

// ListNotifications returns notifications, newest first. unreadOnly
// filters to those not yet read.
func (s *Store) ListNotifications(unreadOnly bool, limit int) ([]*domain.Notification, error) {
	query := `SELECT id, type, title, message, prospect_id, is_read, action_ref, created_at FROM notifications`
	if unreadOnly {
		query += ` WHERE is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead toggles a notification to read
func (s *Store) MarkNotificationRead(id string) error {
	_, err := s.db.Exec(`UPDATE notifications SET is_read = TRUE WHERE id = ?`, id)
	return err
}

// DeleteNotificationsBefore removes notifications older than the cutoff
func (s *Store) DeleteNotificationsBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM notifications WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanNotification(row scanner) (*domain.Notification, error) {
	var n domain.Notification
	var typ string
	var message, prospectID, actionRef sql.NullString

	err := row.Scan(&n.ID, &typ, &n.Title, &message, &prospectID, &n.IsRead, &actionRef, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	n.Type = domain.NotificationType(typ)
	if message.Valid {
		n.Message = message.String
	}
	if prospectID.Valid {
		n.ProspectID = prospectID.String
	}
	if actionRef.Valid {
		n.ActionRef = actionRef.String
	}
	return &n, nil
}
