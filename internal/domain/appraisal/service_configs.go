package appraisal

import "context"

func (s *Service) GetRatingConfig(ctx context.Context, tenantID, configID string) (RatingConfig, error) {
	return s.store.GetRatingConfig(ctx, tenantID, configID)
}

// SaveRatingConfig validates and persists a rating configuration. The store
// bumps the version when a config with the same name already exists.
func (s *Service) SaveRatingConfig(ctx context.Context, tenantID string, cfg RatingConfig) (string, error) {
	if cfg.ScaleMax == 0 {
		cfg.ScaleMax = DefaultScaleMax
	}
	if cfg.Precision == 0 {
		cfg.Precision = DefaultPrecision
	}
	if err := ValidateRatingConfig(cfg); err != nil {
		return "", err
	}
	return s.store.SaveRatingConfig(ctx, tenantID, cfg)
}

// ScoreGoal computes the final score for a goal's current inputs without
// persisting anything. Handlers use it to preview and to populate the
// calculated and final scores on manager submission.
func (s *Service) ScoreGoal(ctx context.Context, tenantID, goalID string, managerRating *float64) (float64, error) {
	goal, err := s.store.GetGoalContext(ctx, tenantID, goalID)
	if err != nil {
		return 0, err
	}
	cfg, err := s.store.GetRatingConfig(ctx, tenantID, goal.RatingConfigID)
	if err != nil {
		return 0, err
	}
	var selfRating *float64
	if submission, err := s.store.SubmissionByGoal(ctx, tenantID, goalID); err == nil {
		selfRating = submission.SelfRating
		if managerRating == nil {
			managerRating = submission.ManagerRating
		}
	}
	return ComputeFinalScore(selfRating, managerRating, goal.Progress, cfg)
}
