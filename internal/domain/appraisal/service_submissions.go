package appraisal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

func (s *Service) GetSubmission(ctx context.Context, tenantID, submissionID string) (GoalRatingSubmission, error) {
	return s.store.GetSubmission(ctx, tenantID, submissionID)
}

func (s *Service) SubmissionByGoal(ctx context.Context, tenantID, goalID string) (GoalRatingSubmission, error) {
	return s.store.SubmissionByGoal(ctx, tenantID, goalID)
}

// SubmitSelf records or overwrites the employee's self rating. The self
// rating locks once the manager has rated, so the baseline the manager
// reviewed against cannot be tampered with afterwards.
func (s *Service) SubmitSelf(ctx context.Context, tenantID, goalID, employeeID string, rating float64, comments string) (GoalRatingSubmission, error) {
	goal, err := s.store.GetGoalContext(ctx, tenantID, goalID)
	if err != nil {
		return GoalRatingSubmission{}, err
	}
	if goal.EmployeeID != employeeID {
		return GoalRatingSubmission{}, fmt.Errorf("%w: goal does not belong to employee", ErrNotFound)
	}
	if err := s.validateRating(ctx, tenantID, goal.RatingConfigID, rating); err != nil {
		return GoalRatingSubmission{}, err
	}

	now := s.now()
	submission, err := s.store.SubmissionByGoal(ctx, tenantID, goalID)
	if errors.Is(err, ErrNotFound) {
		created := GoalRatingSubmission{
			GoalID:         goalID,
			CycleID:        goal.CycleID,
			EmployeeID:     employeeID,
			RatingConfigID: goal.RatingConfigID,
			SelfRating:     &rating,
			SelfRatingAt:   &now,
			SelfComments:   comments,
			Status:         SubmissionStatusSelfSubmitted,
		}
		id, err := s.store.CreateSelfSubmission(ctx, tenantID, created)
		if err != nil {
			return GoalRatingSubmission{}, err
		}
		return s.store.GetSubmission(ctx, tenantID, id)
	}
	if err != nil {
		return GoalRatingSubmission{}, err
	}

	if !statusIn(submission.Status, submissionSelfEditable) {
		return GoalRatingSubmission{}, fmt.Errorf("%w: self rating is locked once the manager has rated", ErrInvalidTransition)
	}
	changed, err := s.store.UpdateSelfRating(ctx, tenantID, submission.ID, submissionSelfEditable, rating, comments, now)
	if err != nil {
		return GoalRatingSubmission{}, err
	}
	if !changed {
		return GoalRatingSubmission{}, fmt.Errorf("%w: submission advanced while self rating was in flight", ErrConcurrentModification)
	}
	return s.store.GetSubmission(ctx, tenantID, submission.ID)
}

// SubmitManager records the manager rating. final_score defaults to the raw
// manager rating unless the caller supplies a pre-computed weighted score
// (callers are expected to run ComputeFinalScore first).
func (s *Service) SubmitManager(ctx context.Context, tenantID, goalID, managerID string, rating float64, comments string, calculatedScore, finalScore *float64) (GoalRatingSubmission, error) {
	submission, err := s.store.SubmissionByGoal(ctx, tenantID, goalID)
	if errors.Is(err, ErrNotFound) {
		return GoalRatingSubmission{}, fmt.Errorf("%w: goal %s", ErrNoSubmissionFound, goalID)
	}
	if err != nil {
		return GoalRatingSubmission{}, err
	}

	cfg, err := s.store.GetRatingConfig(ctx, tenantID, submission.RatingConfigID)
	if err != nil {
		return GoalRatingSubmission{}, err
	}
	if cfg.SelfRatingRequired && submission.SelfRating == nil {
		return GoalRatingSubmission{}, ErrSelfRatingPending
	}
	if err := s.validateRating(ctx, tenantID, submission.RatingConfigID, rating); err != nil {
		return GoalRatingSubmission{}, err
	}
	if !statusIn(submission.Status, submissionManagerFrom) {
		return GoalRatingSubmission{}, fmt.Errorf("%w: manager rating is closed once the submission is %s",
			ErrInvalidTransition, submission.Status)
	}

	if finalScore == nil {
		final := rating
		finalScore = &final
	}
	changed, err := s.store.SetManagerRating(ctx, tenantID, submission.ID, submissionManagerFrom,
		managerID, rating, comments, calculatedScore, finalScore, s.now())
	if err != nil {
		return GoalRatingSubmission{}, err
	}
	if !changed {
		return GoalRatingSubmission{}, fmt.Errorf("%w: submission advanced while manager rating was in flight", ErrConcurrentModification)
	}
	return s.store.GetSubmission(ctx, tenantID, submission.ID)
}

// Release makes a manager-submitted rating visible to the employee. Releasing
// an already-released submission is a benign no-op, which is what makes bulk
// release safe to retry. The bool result reports whether this call did the
// release.
func (s *Service) Release(ctx context.Context, tenantID, submissionID, releasedBy string) (GoalRatingSubmission, bool, error) {
	submission, err := s.store.GetSubmission(ctx, tenantID, submissionID)
	if err != nil {
		return GoalRatingSubmission{}, false, err
	}
	if statusIn(submission.Status, []string{SubmissionStatusReleased, SubmissionStatusAcknowledged, SubmissionStatusDisputed}) {
		return submission, false, nil
	}

	// A rating may not be visible before the participant's evaluation has at
	// least been finalized or reviewed. Bulk release enforces the same order
	// through its candidate selection.
	participant, err := s.store.ParticipantByCycleEmployee(ctx, tenantID, submission.CycleID, submission.EmployeeID)
	switch {
	case errors.Is(err, ErrNotFound):
		// No tracker row for this employee in the cycle; nothing to order
		// against.
	case err != nil:
		return GoalRatingSubmission{}, false, err
	case !statusIn(participant.Status, []string{ParticipantStatusFinalized, ParticipantStatusReviewed, ParticipantStatusReleased, ParticipantStatusAcknowledged}):
		return GoalRatingSubmission{}, false, fmt.Errorf("%w: participant is %s, evaluation must be finalized or reviewed before release",
			ErrInvalidTransition, participant.Status)
	}

	changed, err := s.store.MarkSubmissionReleased(ctx, tenantID, submissionID, releasedBy, s.now())
	if err != nil {
		return GoalRatingSubmission{}, false, err
	}
	submission, err = s.store.GetSubmission(ctx, tenantID, submissionID)
	if err != nil {
		return GoalRatingSubmission{}, false, err
	}
	if !changed {
		if statusIn(submission.Status, []string{SubmissionStatusReleased, SubmissionStatusAcknowledged, SubmissionStatusDisputed}) {
			return submission, false, nil
		}
		return GoalRatingSubmission{}, false, fmt.Errorf("%w: manager rating required before release", ErrInvalidTransition)
	}
	if err := s.notifier.Enqueue(ctx, tenantID, submission.EmployeeID, NoticeRatingsReleased,
		"Rating released", "A goal rating has been released for your review."); err != nil {
		slog.Warn("release notification enqueue failed", "submissionId", submissionID, "err", err)
	}
	return submission, true, nil
}

// Acknowledge records the employee's sign-off on a released rating.
func (s *Service) Acknowledge(ctx context.Context, tenantID, submissionID, employeeID, comments string) (GoalRatingSubmission, error) {
	submission, err := s.store.GetSubmission(ctx, tenantID, submissionID)
	if err != nil {
		return GoalRatingSubmission{}, err
	}
	if submission.EmployeeID != employeeID {
		return GoalRatingSubmission{}, fmt.Errorf("%w: submission does not belong to employee", ErrNotFound)
	}
	if submission.Status != SubmissionStatusReleased {
		return GoalRatingSubmission{}, fmt.Errorf("%w: only released ratings can be acknowledged, submission is %s",
			ErrInvalidTransition, submission.Status)
	}
	changed, err := s.store.MarkSubmissionAcknowledged(ctx, tenantID, submissionID, comments, s.now())
	if err != nil {
		return GoalRatingSubmission{}, err
	}
	if !changed {
		// A conflicting user action won the race; surface it rather than
		// silently absorbing the acknowledgment.
		return GoalRatingSubmission{}, fmt.Errorf("%w: submission advanced while acknowledging", ErrConcurrentModification)
	}
	return s.store.GetSubmission(ctx, tenantID, submissionID)
}

// Dispute opens an employee objection against a released or acknowledged
// rating. At most one dispute may be open at a time.
func (s *Service) Dispute(ctx context.Context, tenantID, submissionID, employeeID, category, reason string) (GoalRatingSubmission, error) {
	submission, err := s.store.GetSubmission(ctx, tenantID, submissionID)
	if err != nil {
		return GoalRatingSubmission{}, err
	}
	if submission.EmployeeID != employeeID {
		return GoalRatingSubmission{}, fmt.Errorf("%w: submission does not belong to employee", ErrNotFound)
	}
	if statusIn(submission.DisputeStatus, []string{DisputeStatusOpen, DisputeStatusUnderReview}) {
		return GoalRatingSubmission{}, ErrDisputeAlreadyOpen
	}
	if !statusIn(submission.Status, submissionDisputeFrom) {
		return GoalRatingSubmission{}, fmt.Errorf("%w: only released ratings can be disputed, submission is %s",
			ErrInvalidTransition, submission.Status)
	}
	changed, err := s.store.OpenDispute(ctx, tenantID, submissionID, category, reason, s.now())
	if err != nil {
		return GoalRatingSubmission{}, err
	}
	if !changed {
		return GoalRatingSubmission{}, fmt.Errorf("%w: submission advanced while opening dispute", ErrConcurrentModification)
	}
	s.notifyHR(ctx, tenantID, NoticeDisputeOpened, "Rating disputed",
		fmt.Sprintf("A released rating was disputed (category %s).", category))
	return s.store.GetSubmission(ctx, tenantID, submissionID)
}

// ResolveDispute closes a dispute with outcome resolved or rejected. Either
// way the submission returns to released, so the employee can re-view (and in
// principle re-dispute) the corrected rating; a resolved outcome may carry an
// adjusted final score.
func (s *Service) ResolveDispute(ctx context.Context, tenantID, submissionID, resolvedBy, resolution, outcome string, adjustedFinalScore *float64) (GoalRatingSubmission, error) {
	if outcome != DisputeStatusResolved && outcome != DisputeStatusRejected {
		return GoalRatingSubmission{}, fmt.Errorf("%w: dispute outcome must be %s or %s",
			ErrInvalidTransition, DisputeStatusResolved, DisputeStatusRejected)
	}
	if outcome == DisputeStatusRejected {
		adjustedFinalScore = nil
	}
	changed, err := s.store.CloseDispute(ctx, tenantID, submissionID, resolvedBy, resolution, outcome, adjustedFinalScore, s.now())
	if err != nil {
		return GoalRatingSubmission{}, err
	}
	submission, err := s.store.GetSubmission(ctx, tenantID, submissionID)
	if err != nil {
		return GoalRatingSubmission{}, err
	}
	if !changed {
		return GoalRatingSubmission{}, fmt.Errorf("%w: no dispute in progress for this submission", ErrInvalidTransition)
	}
	if err := s.notifier.Enqueue(ctx, tenantID, submission.EmployeeID, NoticeDisputeResolved,
		"Dispute "+outcome, "Your rating dispute was "+outcome+"."); err != nil {
		slog.Warn("dispute notification enqueue failed", "submissionId", submissionID, "err", err)
	}
	return submission, nil
}

func (s *Service) validateRating(ctx context.Context, tenantID, configID string, rating float64) error {
	cfg, err := s.store.GetRatingConfig(ctx, tenantID, configID)
	if err != nil {
		return err
	}
	scaleMax := cfg.ScaleMax
	if scaleMax <= 0 {
		scaleMax = DefaultScaleMax
	}
	if rating < 0 || rating > scaleMax {
		return fmt.Errorf("rating %v outside scale 0-%v", rating, scaleMax)
	}
	return nil
}
