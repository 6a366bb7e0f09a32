package store

import (
	"database/sql"
	"time"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
)

// CreateTask inserts a pending task
func (s *Store) CreateTask(t *domain.Task) error {
	var scheduledFor interface{}
	if t.ScheduledFor != nil {
		scheduledFor = *t.ScheduledFor
	}
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, agent_type, prospect_id, payload, status, scheduled_for, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		string(t.AgentType),
		t.ProspectID,
		string(t.Payload),
		string(t.Status),
		scheduledFor,
		t.Attempts,
		t.CreatedAt,
	)
	return err
}

const taskColumns = `id, agent_type, prospect_id, payload, status, scheduled_for, attempts, result, error, created_at, completed_at`

// GetTask retrieves a task by ID
func (s *Store) GetTask(id string) (*domain.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// DueTasks returns pending tasks whose scheduled time has arrived, oldest
// first, bounded by limit.
func (s *Store) DueTasks(now time.Time, limit int) ([]*domain.Task, error) {
	rows, err := s.db.Query(`
		SELECT `+taskColumns+` FROM tasks
		WHERE status = ? AND (scheduled_for IS NULL OR scheduled_for <= ?)
		ORDER BY created_at ASC
		LIMIT ?
	`, string(domain.TaskPending), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ClaimTask atomically moves a pending task into processing. Returns
// false when the task was already claimed or is no longer pending, so a
// task drained by two dispatchers only ever executes once.
func (s *Store) ClaimTask(id string) (bool, error) {
	res, err := s.db.Exec(`UPDATE tasks SET status = ? WHERE id = ? AND status = ?`,
		string(domain.TaskProcessing), id, string(domain.TaskPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteTask marks a task completed with its serialized outcome
func (s *Store) CompleteTask(id, result string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE tasks SET status = ?, result = ?, completed_at = ? WHERE id = ?`,
		string(domain.TaskCompleted), result, at, id)
	return err
}

// ReturnTaskForRetry resets a task to pending so a later tick re-drains it
func (s *Store) ReturnTaskForRetry(id string, attempts int, errMsg string) error {
	_, err := s.db.Exec(`UPDATE tasks SET status = ?, attempts = ?, error = ? WHERE id = ?`,
		string(domain.TaskPending), attempts, errMsg, id)
	return err
}

// FailTask marks a task permanently failed
func (s *Store) FailTask(id string, attempts int, errMsg string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE tasks SET status = ?, attempts = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(domain.TaskFailed), attempts, errMsg, at, id)
	return err
}

// CountTasksByStatus returns task counts keyed by status
func (s *Store) CountTasksByStatus() (map[domain.TaskStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.TaskStatus(status)] = n
	}
	return counts, rows.Err()
}

// DeleteTerminalTasksBefore removes completed and failed tasks older than
// the cutoff. Returns how many rows were deleted.
func (s *Store) DeleteTerminalTasksBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM tasks
		WHERE status IN (?, ?) AND created_at < ?
	`, string(domain.TaskCompleted), string(domain.TaskFailed), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (*domain.Task, error) {
	var task domain.Task
	var agentType, status, payload string
	var scheduledFor, completedAt sql.NullTime
	var result, errMsg sql.NullString

	err := row.Scan(&task.ID, &agentType, &task.ProspectID, &payload, &status,
		&scheduledFor, &task.Attempts, &result, &errMsg, &task.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	task.AgentType = domain.AgentType(agentType)
	task.Status = domain.TaskStatus(status)
	task.Payload = []byte(payload)
	if scheduledFor.Valid {
		t := scheduledFor.Time
		task.ScheduledFor = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	if result.Valid {
		task.Result = result.String
	}
	if errMsg.Valid {
		task.Error = errMsg.String
	}
	return &task, nil
}
