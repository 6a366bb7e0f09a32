package store

import (
	"database/sql"
	"time"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
)

// CreateCampaign inserts a campaign record
func (s *Store) CreateCampaign(c *domain.Campaign) error {
	var sentAt interface{}
	if c.SentAt != nil {
		sentAt = *c.SentAt
	}
	_, err := s.db.Exec(`
		INSERT INTO campaigns (id, prospect_id, kind, subject, body, status, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.ProspectID, string(c.Kind), c.Subject, c.Body, string(c.Status), sentAt, c.CreatedAt)
	return err
}

// UpdateCampaignStatus updates delivery state; sentAt may be nil
func (s *Store) UpdateCampaignStatus(id string, status domain.CampaignStatus, sentAt *time.Time) error {
	var at interface{}
	if sentAt != nil {
		at = *sentAt
	}
	_, err := s.db.Exec(`UPDATE campaigns SET status = ?, sent_at = ? WHERE id = ?`,
		string(status), at, id)
	return err
}

// CountCampaigns returns how many campaigns exist for a prospect,
// regardless of status. Outreach uses this as its duplicate guard.
func (s *Store) CountCampaigns(prospectID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM campaigns WHERE prospect_id = ?`, prospectID).Scan(&n)
	return n, err
}

// ListSentCampaigns returns a prospect's sent messages, newest first,
// bounded by limit. The classifier feeds these to the model as context.
func (s *Store) ListSentCampaigns(prospectID string, limit int) ([]*domain.Campaign, error) {
	rows, err := s.db.Query(`
		SELECT id, prospect_id, kind, subject, body, status, sent_at, created_at
		FROM campaigns
		WHERE prospect_id = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, prospectID, string(domain.CampaignSent), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// GetCampaign retrieves a campaign by ID
func (s *Store) GetCampaign(id string) (*domain.Campaign, error) {
	row := s.db.QueryRow(`
		SELECT id, prospect_id, kind, subject, body, status, sent_at, created_at
		FROM campaigns WHERE id = ?
	`, id)
	return scanCampaign(row)
}

func scanCampaign(row scanner) (*domain.Campaign, error) {
	var c domain.Campaign
	var kind, status string
	var subject, body sql.NullString
	var sentAt sql.NullTime

	err := row.Scan(&c.ID, &c.ProspectID, &kind, &subject, &body, &status, &sentAt, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.Kind = domain.CampaignKind(kind)
	c.Status = domain.CampaignStatus(status)
	if subject.Valid {
		c.Subject = subject.String
	}
	if body.Valid {
		c.Body = body.String
	}
	if sentAt.Valid {
		t := sentAt.Time
		c.SentAt = &t
	}
	return &c, nil
}
