package appraisal

import (
	"context"
	"time"
)

const submissionColumns = `id, tenant_id, goal_id, cycle_id, employee_id, COALESCE(manager_id::text,''),
    rating_config_id, self_rating, self_rating_at, COALESCE(self_comments,''),
    manager_rating, manager_rating_at, COALESCE(manager_comments,''),
    calculated_score, final_score, status,
    is_disputed, COALESCE(dispute_category,''), COALESCE(dispute_reason,''), COALESCE(dispute_status,''),
    COALESCE(dispute_resolution,''), disputed_at, dispute_resolved_at, COALESCE(dispute_resolved_by::text,''),
    released_at, COALESCE(released_by::text,''), acknowledged_at, COALESCE(acknowledged_by::text,''),
    COALESCE(acknowledgment_comments,'')`

func scanSubmission(row interface{ Scan(dest ...any) error }) (GoalRatingSubmission, error) {
	var sub GoalRatingSubmission
	if err := row.Scan(&sub.ID, &sub.TenantID, &sub.GoalID, &sub.CycleID, &sub.EmployeeID, &sub.ManagerID,
		&sub.RatingConfigID, &sub.SelfRating, &sub.SelfRatingAt, &sub.SelfComments,
		&sub.ManagerRating, &sub.ManagerRatingAt, &sub.ManagerComments,
		&sub.CalculatedScore, &sub.FinalScore, &sub.Status,
		&sub.IsDisputed, &sub.DisputeCategory, &sub.DisputeReason, &sub.DisputeStatus,
		&sub.DisputeResolution, &sub.DisputedAt, &sub.DisputeResolvedAt, &sub.DisputeResolvedBy,
		&sub.ReleasedAt, &sub.ReleasedBy, &sub.AcknowledgedAt, &sub.AcknowledgedBy,
		&sub.AcknowledgmentComments); err != nil {
		return GoalRatingSubmission{}, mapNoRows(err)
	}
	return sub, nil
}

func (s *Store) GetSubmission(ctx context.Context, tenantID, submissionID string) (GoalRatingSubmission, error) {
	return scanSubmission(s.DB.QueryRow(ctx, `
    SELECT `+submissionColumns+`
    FROM goal_rating_submissions
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, submissionID))
}

func (s *Store) SubmissionByGoal(ctx context.Context, tenantID, goalID string) (GoalRatingSubmission, error) {
	return scanSubmission(s.DB.QueryRow(ctx, `
    SELECT `+submissionColumns+`
    FROM goal_rating_submissions
    WHERE tenant_id = $1 AND goal_id = $2
  `, tenantID, goalID))
}

func (s *Store) CreateSelfSubmission(ctx context.Context, tenantID string, sub GoalRatingSubmission) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO goal_rating_submissions (tenant_id, goal_id, cycle_id, employee_id, rating_config_id, self_rating, self_rating_at, self_comments, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, tenantID, sub.GoalID, sub.CycleID, sub.EmployeeID, sub.RatingConfigID,
		sub.SelfRating, sub.SelfRatingAt, sub.SelfComments, sub.Status).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateSelfRating(ctx context.Context, tenantID, submissionID string, from []string, rating float64, comments string, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goal_rating_submissions
    SET self_rating = $1, self_rating_at = $2, self_comments = $3, status = $4, updated_at = now()
    WHERE tenant_id = $5 AND id = $6 AND status = ANY($7)
  `, rating, now, comments, SubmissionStatusSelfSubmitted, tenantID, submissionID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) SetManagerRating(ctx context.Context, tenantID, submissionID string, from []string, managerID string, rating float64, comments string, calculatedScore, finalScore *float64, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goal_rating_submissions
    SET manager_id = $1, manager_rating = $2, manager_rating_at = $3, manager_comments = $4,
        calculated_score = $5, final_score = $6, status = $7, updated_at = now()
    WHERE tenant_id = $8 AND id = $9 AND status = ANY($10)
  `, nullIfEmpty(managerID), rating, now, comments, calculatedScore, finalScore,
		SubmissionStatusManagerSubmitted, tenantID, submissionID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) MarkSubmissionReleased(ctx context.Context, tenantID, submissionID, releasedBy string, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goal_rating_submissions
    SET status = $1, released_at = $2, released_by = $3, updated_at = now()
    WHERE tenant_id = $4 AND id = $5 AND status = ANY($6)
  `, SubmissionStatusReleased, now, nullIfEmpty(releasedBy), tenantID, submissionID, submissionReleaseFrom)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListReleasableSubmissions returns every manager-scored submission for an
// employee in the cycle, released or not, so a partially failed release run
// can be retried over the same set.
func (s *Store) ListReleasableSubmissions(ctx context.Context, tenantID, cycleID, employeeID string) ([]GoalRatingSubmission, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+submissionColumns+`
    FROM goal_rating_submissions
    WHERE tenant_id = $1 AND cycle_id = $2 AND employee_id = $3 AND manager_rating IS NOT NULL
    ORDER BY created_at
  `, tenantID, cycleID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []GoalRatingSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *Store) MarkSubmissionAcknowledged(ctx context.Context, tenantID, submissionID, comments string, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goal_rating_submissions
    SET status = $1, acknowledged_at = $2, acknowledged_by = employee_id,
        acknowledgment_comments = $3, updated_at = now()
    WHERE tenant_id = $4 AND id = $5 AND status = $6
  `, SubmissionStatusAcknowledged, now, comments, tenantID, submissionID, SubmissionStatusReleased)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) OpenDispute(ctx context.Context, tenantID, submissionID, category, reason string, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goal_rating_submissions
    SET status = $1, is_disputed = TRUE, dispute_category = $2, dispute_reason = $3,
        dispute_status = $4, disputed_at = $5, updated_at = now()
    WHERE tenant_id = $6 AND id = $7 AND status = ANY($8)
      AND (dispute_status IS NULL OR dispute_status NOT IN ($9, $10))
  `, SubmissionStatusDisputed, category, reason, DisputeStatusOpen, now,
		tenantID, submissionID, submissionDisputeFrom, DisputeStatusOpen, DisputeStatusUnderReview)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CloseDispute returns the submission to released so the employee must
// acknowledge the outcome again.
func (s *Store) CloseDispute(ctx context.Context, tenantID, submissionID, resolvedBy, resolution, outcome string, adjustedFinalScore *float64, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE goal_rating_submissions
    SET status = $1, is_disputed = FALSE, dispute_status = $2, dispute_resolution = $3,
        dispute_resolved_at = $4, dispute_resolved_by = $5,
        final_score = COALESCE($6, final_score),
        acknowledged_at = NULL, acknowledged_by = NULL, acknowledgment_comments = NULL,
        updated_at = now()
    WHERE tenant_id = $7 AND id = $8 AND status = $9 AND dispute_status IN ($10, $11)
  `, SubmissionStatusReleased, outcome, resolution, now, nullIfEmpty(resolvedBy),
		adjustedFinalScore, tenantID, submissionID, SubmissionStatusDisputed,
		DisputeStatusOpen, DisputeStatusUnderReview)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) GetGoalContext(ctx context.Context, tenantID, goalID string) (GoalContext, error) {
	var goal GoalContext
	goal.GoalID = goalID
	if err := s.DB.QueryRow(ctx, `
    SELECT cycle_id, employee_id, COALESCE(manager_id::text,''), rating_config_id, weight, progress
    FROM goals
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, goalID).Scan(&goal.CycleID, &goal.EmployeeID, &goal.ManagerID,
		&goal.RatingConfigID, &goal.Weight, &goal.Progress); err != nil {
		return GoalContext{}, mapNoRows(err)
	}
	return goal, nil
}

func (s *Store) GoalWeights(ctx context.Context, tenantID string, goalIDs []string) (map[string]float64, error) {
	weights := make(map[string]float64, len(goalIDs))
	if len(goalIDs) == 0 {
		return weights, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id, weight
    FROM goals
    WHERE tenant_id = $1 AND id = ANY($2)
  `, tenantID, goalIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var weight float64
		if err := rows.Scan(&id, &weight); err != nil {
			return nil, err
		}
		weights[id] = weight
	}
	return weights, nil
}

func (s *Store) GetRatingConfig(ctx context.Context, tenantID, configID string) (RatingConfig, error) {
	var cfg RatingConfig
	if err := s.DB.QueryRow(ctx, `
    SELECT id, tenant_id, name, calculation_method, self_weight, manager_weight, progress_weight,
           self_rating_required, scale_max, precision, version
    FROM rating_configs
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, configID).Scan(&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.CalculationMethod,
		&cfg.SelfWeight, &cfg.ManagerWeight, &cfg.ProgressWeight, &cfg.SelfRatingRequired,
		&cfg.ScaleMax, &cfg.Precision, &cfg.Version); err != nil {
		return RatingConfig{}, mapNoRows(err)
	}
	return cfg, nil
}

// SaveRatingConfig inserts a new version row; configs already referenced by
// submissions are never edited in place.
func (s *Store) SaveRatingConfig(ctx context.Context, tenantID string, cfg RatingConfig) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO rating_configs (tenant_id, name, calculation_method, self_weight, manager_weight, progress_weight, self_rating_required, scale_max, precision, version)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,
      COALESCE((SELECT MAX(version) + 1 FROM rating_configs WHERE tenant_id = $1 AND name = $2), 1))
    RETURNING id
  `, tenantID, cfg.Name, cfg.CalculationMethod, cfg.SelfWeight, cfg.ManagerWeight,
		cfg.ProgressWeight, cfg.SelfRatingRequired, cfg.ScaleMax, cfg.Precision).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListDueDeferredActions(ctx context.Context, tenantID string, asOf time.Time) ([]DeferredAction, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, tenant_id, COALESCE(cycle_id::text,''), COALESCE(employee_id::text,''), action_type,
           COALESCE(description,''), execute_after_days, auto_execute_on, status, created_at, executed_at
    FROM deferred_actions
    WHERE tenant_id = $1 AND status = $2
      AND COALESCE(auto_execute_on, created_at + execute_after_days * INTERVAL '1 day') <= $3
  `, tenantID, DeferredStatusPending, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []DeferredAction
	for rows.Next() {
		var action DeferredAction
		if err := rows.Scan(&action.ID, &action.TenantID, &action.CycleID, &action.EmployeeID,
			&action.ActionType, &action.Description, &action.ExecuteAfterDays, &action.AutoExecuteOn,
			&action.Status, &action.CreatedAt, &action.ExecutedAt); err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func (s *Store) MarkDeferredActionExecuted(ctx context.Context, tenantID, actionID string, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE deferred_actions
    SET status = $1, executed_at = $2
    WHERE tenant_id = $3 AND id = $4 AND status = $5
  `, DeferredStatusExecuted, now, tenantID, actionID, DeferredStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
