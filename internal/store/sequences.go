package store

import (
	"database/sql"
	"time"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
)

// CreateSequence inserts a follow-up sequence. The prospect_id unique
// constraint enforces at most one sequence per prospect.
func (s *Store) CreateSequence(seq *domain.FollowUpSequence) error {
	var lastSent, nextSend interface{}
	if seq.LastSentAt != nil {
		lastSent = *seq.LastSentAt
	}
	if seq.NextSendAt != nil {
		nextSend = *seq.NextSendAt
	}
	_, err := s.db.Exec(`
		INSERT INTO follow_up_sequences (id, prospect_id, step, max_steps, days_between, is_paused, last_sent_at, next_send_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, seq.ID, seq.ProspectID, seq.Step, seq.MaxSteps, seq.DaysBetween, seq.IsPaused, lastSent, nextSend, seq.CreatedAt)
	return err
}

const sequenceColumns = `id, prospect_id, step, max_steps, days_between, is_paused, last_sent_at, next_send_at, created_at`

// GetSequenceByProspect retrieves the sequence for a prospect
func (s *Store) GetSequenceByProspect(prospectID string) (*domain.FollowUpSequence, error) {
	row := s.db.QueryRow(`SELECT `+sequenceColumns+` FROM follow_up_sequences WHERE prospect_id = ?`, prospectID)
	return scanSequence(row)
}

// PauseSequence pauses the sequence for a prospect. No-op if none exists.
func (s *Store) PauseSequence(prospectID string) error {
	_, err := s.db.Exec(`UPDATE follow_up_sequences SET is_paused = TRUE WHERE prospect_id = ?`, prospectID)
	return err
}

// ResumeSequence re-enables the sequence for a prospect. Only called from
// explicit operator paths, never automatically.
func (s *Store) ResumeSequence(prospectID string) error {
	_, err := s.db.Exec(`UPDATE follow_up_sequences SET is_paused = FALSE WHERE prospect_id = ?`, prospectID)
	return err
}

// AdvanceSequence records a successful send: the new step count, when it
// was sent, and when the next send is due.
func (s *Store) AdvanceSequence(id string, step int, lastSent, nextSend time.Time) error {
	_, err := s.db.Exec(`
		UPDATE follow_up_sequences SET step = ?, last_sent_at = ?, next_send_at = ? WHERE id = ?
	`, step, lastSent, nextSend, id)
	return err
}

// DueSequences returns sequences whose next send has arrived and whose
// prospect is still eligible: automation on and stage still contacted.
// Eligibility is re-checked here, at scan time, so automation paused after
// a sequence was scheduled never re-activates it.
func (s *Store) DueSequences(now time.Time) ([]*domain.FollowUpSequence, error) {
	rows, err := s.db.Query(`
		SELECT f.id, f.prospect_id, f.step, f.max_steps, f.days_between, f.is_paused, f.last_sent_at, f.next_send_at, f.created_at
		FROM follow_up_sequences f
		JOIN prospects p ON p.id = f.prospect_id
		WHERE f.is_paused = FALSE
		  AND f.next_send_at IS NOT NULL AND f.next_send_at <= ?
		  AND f.step < f.max_steps
		  AND p.automation_enabled = TRUE
		  AND p.stage = ?
		ORDER BY f.next_send_at ASC
	`, now, string(domain.StageContacted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seqs []*domain.FollowUpSequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	return seqs, rows.Err()
}

func scanSequence(row scanner) (*domain.FollowUpSequence, error) {
	var seq domain.FollowUpSequence
	var lastSent, nextSend sql.NullTime

	err := row.Scan(&seq.ID, &seq.ProspectID, &seq.Step, &seq.MaxSteps, &seq.DaysBetween,
		&seq.IsPaused, &lastSent, &nextSend, &seq.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if lastSent.Valid {
		t := lastSent.Time
		seq.LastSentAt = &t
	}
	if nextSend.Valid {
		t := nextSend.Time
		seq.NextSendAt = &t
	}
	return &seq, nil
}
