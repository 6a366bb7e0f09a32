package store

import (
	"time"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
)

// LogActivity appends an entry to the activity log. The core never reads
// these back; ListActivities exists for the UI read side.
func (s *Store) LogActivity(prospectID, activityType, description string) error {
	_, err := s.db.Exec(`
		INSERT INTO activities (prospect_id, type, description, created_at)
		VALUES (?, ?, ?, ?)
	`, prospectID, activityType, description, time.Now())
	return err
}

// ListActivities returns a prospect's activity entries, newest first
func (s *Store) ListActivities(prospectID string, limit int) ([]*domain.Activity, error) {
	rows, err := s.db.Query(`
		SELECT id, prospect_id, type, description, created_at
		FROM activities
		WHERE prospect_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, prospectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []*domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.ProspectID, &a.Type, &a.Description, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}
