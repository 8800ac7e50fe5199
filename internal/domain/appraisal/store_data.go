package appraisal

import (
	"context"
	"time"
)

const cycleColumns = `id, tenant_id, name, status, start_date, end_date, evaluation_deadline,
    grace_period_days, auto_activate, auto_complete, auto_activated_at, auto_completed_at`

func scanCycle(row interface{ Scan(dest ...any) error }) (Cycle, error) {
	var cycle Cycle
	if err := row.Scan(&cycle.ID, &cycle.TenantID, &cycle.Name, &cycle.Status, &cycle.StartDate,
		&cycle.EndDate, &cycle.EvaluationDeadline, &cycle.GracePeriodDays, &cycle.AutoActivate,
		&cycle.AutoComplete, &cycle.AutoActivatedAt, &cycle.AutoCompletedAt); err != nil {
		return Cycle{}, mapNoRows(err)
	}
	return cycle, nil
}

func (s *Store) GetCycle(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	return scanCycle(s.DB.QueryRow(ctx, `
    SELECT `+cycleColumns+`
    FROM appraisal_cycles
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, cycleID))
}

func (s *Store) CreateCycle(ctx context.Context, tenantID string, cycle Cycle) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO appraisal_cycles (tenant_id, name, status, start_date, end_date, evaluation_deadline, grace_period_days, auto_activate, auto_complete)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, tenantID, cycle.Name, cycle.Status, cycle.StartDate, cycle.EndDate, cycle.EvaluationDeadline,
		cycle.GracePeriodDays, cycle.AutoActivate, cycle.AutoComplete).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListCycles(ctx context.Context, tenantID string) ([]Cycle, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+cycleColumns+`
    FROM appraisal_cycles
    WHERE tenant_id = $1
    ORDER BY start_date DESC
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}
	return cycles, nil
}

func (s *Store) ListActivationCandidates(ctx context.Context, tenantID string) ([]Cycle, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+cycleColumns+`
    FROM appraisal_cycles
    WHERE tenant_id = $1 AND status = $2 AND auto_activate AND start_date <= now()
    ORDER BY start_date
  `, tenantID, CycleStatusDraft)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}
	return cycles, nil
}

func (s *Store) ListCompletionCandidates(ctx context.Context, tenantID string) ([]Cycle, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+cycleColumns+`
    FROM appraisal_cycles
    WHERE tenant_id = $1 AND status = $2 AND auto_complete
      AND end_date + grace_period_days * INTERVAL '1 day' <= now()
    ORDER BY end_date
  `, tenantID, CycleStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}
	return cycles, nil
}

func (s *Store) MarkCycleActive(ctx context.Context, tenantID, cycleID string, auto bool, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisal_cycles
    SET status = $1, auto_activated_at = CASE WHEN $2 THEN $3 ELSE auto_activated_at END
    WHERE tenant_id = $4 AND id = $5 AND status = $6
  `, CycleStatusActive, auto, now, tenantID, cycleID, CycleStatusDraft)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) MarkCycleCompleted(ctx context.Context, tenantID, cycleID string, auto bool, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisal_cycles
    SET status = $1, auto_completed_at = CASE WHEN $2 THEN $3 ELSE auto_completed_at END
    WHERE tenant_id = $4 AND id = $5 AND status = $6
  `, CycleStatusCompleted, auto, now, tenantID, cycleID, CycleStatusActive)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const participantColumns = `id, tenant_id, cycle_id, employee_id, status, due_date, is_overdue,
    overdue_notified_at, released_at, COALESCE(released_by::text,''), overall_score`

func scanParticipant(row interface{ Scan(dest ...any) error }) (Participant, error) {
	var participant Participant
	if err := row.Scan(&participant.ID, &participant.TenantID, &participant.CycleID, &participant.EmployeeID,
		&participant.Status, &participant.DueDate, &participant.IsOverdue, &participant.OverdueNotifiedAt,
		&participant.ReleasedAt, &participant.ReleasedBy, &participant.OverallScore); err != nil {
		return Participant{}, mapNoRows(err)
	}
	return participant, nil
}

func (s *Store) GetParticipant(ctx context.Context, tenantID, participantID string) (Participant, error) {
	return scanParticipant(s.DB.QueryRow(ctx, `
    SELECT `+participantColumns+`
    FROM appraisal_participants
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, participantID))
}

func (s *Store) ParticipantByCycleEmployee(ctx context.Context, tenantID, cycleID, employeeID string) (Participant, error) {
	return scanParticipant(s.DB.QueryRow(ctx, `
    SELECT `+participantColumns+`
    FROM appraisal_participants
    WHERE tenant_id = $1 AND cycle_id = $2 AND employee_id = $3
  `, tenantID, cycleID, employeeID))
}

func (s *Store) AddParticipant(ctx context.Context, tenantID string, participant Participant) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO appraisal_participants (tenant_id, cycle_id, employee_id, status, due_date)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, tenantID, participant.CycleID, participant.EmployeeID, participant.Status, participant.DueDate).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListParticipants(ctx context.Context, tenantID, cycleID string) ([]Participant, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+participantColumns+`
    FROM appraisal_participants
    WHERE tenant_id = $1 AND cycle_id = $2
    ORDER BY created_at
  `, tenantID, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, nil
}

func (s *Store) UpdateParticipantStatus(ctx context.Context, tenantID, participantID string, from []string, to string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisal_participants
    SET status = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3 AND status = ANY($4)
  `, to, tenantID, participantID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) MarkParticipantReleased(ctx context.Context, tenantID, participantID string, from []string, releasedBy string, overallScore *float64, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisal_participants
    SET status = $1, released_at = $2, released_by = $3,
        overall_score = COALESCE($4, overall_score), updated_at = now()
    WHERE tenant_id = $5 AND id = $6 AND status = ANY($7)
  `, ParticipantStatusReleased, now, nullIfEmpty(releasedBy), overallScore, tenantID, participantID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListOverdueCandidates finds open participants past their due date. A
// participant without a due date inherits the cycle's evaluation deadline.
func (s *Store) ListOverdueCandidates(ctx context.Context, tenantID string, asOf time.Time) ([]Participant, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT p.id, p.tenant_id, p.cycle_id, p.employee_id, p.status, p.due_date, p.is_overdue,
           p.overdue_notified_at, p.released_at, COALESCE(p.released_by::text,''), p.overall_score
    FROM appraisal_participants p
    JOIN appraisal_cycles c ON p.cycle_id = c.id
    WHERE p.tenant_id = $1
      AND p.status = ANY($2)
      AND NOT p.is_overdue
      AND COALESCE(p.due_date, c.evaluation_deadline) < $3
  `, tenantID, participantOpenSet, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, nil
}

func (s *Store) MarkParticipantOverdue(ctx context.Context, tenantID, participantID string, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisal_participants
    SET is_overdue = TRUE, overdue_notified_at = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3 AND NOT is_overdue AND status = ANY($4)
  `, now, tenantID, participantID, participantOpenSet)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ForceCompleteParticipants(ctx context.Context, tenantID, cycleID string) ([]Participant, error) {
	rows, err := s.DB.Query(ctx, `
    UPDATE appraisal_participants
    SET status = $1, is_overdue = TRUE, updated_at = now()
    WHERE tenant_id = $2 AND cycle_id = $3 AND status = ANY($4)
    RETURNING `+participantColumns+`
  `, ParticipantStatusCompleted, tenantID, cycleID, participantOpenSet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, nil
}

func (s *Store) ListReleaseCandidates(ctx context.Context, tenantID, cycleID string, participantIDs []string) ([]Participant, error) {
	query := `
    SELECT ` + participantColumns + `
    FROM appraisal_participants
    WHERE tenant_id = $1 AND cycle_id = $2 AND status = ANY($3)
  `
	args := []any{tenantID, cycleID, participantReleaseFrom}
	if len(participantIDs) > 0 {
		query += " AND id = ANY($4)"
		args = append(args, participantIDs)
	}
	query += " ORDER BY created_at"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}
	return participants, nil
}
