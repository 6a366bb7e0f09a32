package store

import (
	"database/sql"
	"time"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
)

// CreateProspect inserts a prospect
func (s *Store) CreateProspect(p *domain.Prospect) error {
	_, err := s.db.Exec(`
		INSERT INTO prospects (id, name, email, company, stage, automation_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Email, p.Company, string(p.Stage), p.AutomationEnabled, p.CreatedAt, p.UpdatedAt)
	return err
}

const prospectColumns = `id, name, email, company, stage, automation_enabled, created_at, updated_at`

// GetProspect retrieves a prospect by ID
func (s *Store) GetProspect(id string) (*domain.Prospect, error) {
	row := s.db.QueryRow(`SELECT `+prospectColumns+` FROM prospects WHERE id = ?`, id)
	return scanProspect(row)
}

// ListProspectsOptions specifies filters for listing prospects
type ListProspectsOptions struct {
	Stage domain.Stage
}

// ListProspects returns prospects matching the given options
func (s *Store) ListProspects(opts ListProspectsOptions) ([]*domain.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE 1=1`
	var args []interface{}

	if opts.Stage != "" {
		query += " AND stage = ?"
		args = append(args, string(opts.Stage))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prospects []*domain.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, p)
	}
	return prospects, rows.Err()
}

// UpdateProspectStage updates a prospect's pipeline stage
func (s *Store) UpdateProspectStage(id string, stage domain.Stage) error {
	_, err := s.db.Exec(`UPDATE prospects SET stage = ?, updated_at = ? WHERE id = ?`,
		string(stage), time.Now(), id)
	return err
}

// SetAutomationEnabled toggles automation for a prospect
func (s *Store) SetAutomationEnabled(id string, enabled bool) error {
	_, err := s.db.Exec(`UPDATE prospects SET automation_enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, time.Now(), id)
	return err
}

// CountProspectsByStage returns prospect counts keyed by stage
func (s *Store) CountProspectsByStage() (map[domain.Stage]int, error) {
	rows, err := s.db.Query(`SELECT stage, COUNT(*) FROM prospects GROUP BY stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Stage]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		counts[domain.Stage(stage)] = n
	}
	return counts, rows.Err()
}

func scanProspect(row scanner) (*domain.Prospect, error) {
	var p domain.Prospect
	var email, company sql.NullString
	var stage string

	err := row.Scan(&p.ID, &p.Name, &email, &company, &stage, &p.AutomationEnabled, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Stage = domain.Stage(stage)
	if email.Valid {
		p.Email = email.String
	}
	if company.Valid {
		p.Company = company.String
	}
	return &p, nil
}
