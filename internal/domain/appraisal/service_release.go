package appraisal

import (
	"context"
	"fmt"
	"log/slog"
)

// ReleaseResult summarizes one bulk release run.
type ReleaseResult struct {
	Released int      `json:"released"`
	Notified int      `json:"notified"`
	Errors   []string `json:"errors,omitempty"`
}

// BulkRelease releases ratings for the given participants of a cycle, or for
// every eligible participant when participantIDs is empty. Each recipient is
// processed independently: a failure is recorded and the run continues, and a
// retry only touches recipients whose release did not stick the first time.
func (s *Service) BulkRelease(ctx context.Context, tenantID, cycleID, releasedBy string, participantIDs []string) (ReleaseResult, error) {
	result := ReleaseResult{}
	candidates, err := s.store.ListReleaseCandidates(ctx, tenantID, cycleID, participantIDs)
	if err != nil {
		return result, err
	}
	for _, participant := range candidates {
		changed, notified, err := s.releaseParticipant(ctx, tenantID, participant, releasedBy)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("participant %s: %v", participant.ID, err))
			continue
		}
		if changed {
			result.Released++
		}
		if notified {
			result.Notified++
		}
	}
	return result, nil
}

// releaseParticipant releases every manager-submitted rating for one employee
// in the cycle, stamps the participant's overall score, and records a single
// notification intent for the employee. Already-released participants report
// no change. The second result reports whether the intent was actually
// recorded, so the run summary never over-counts notifications.
func (s *Service) releaseParticipant(ctx context.Context, tenantID string, participant Participant, releasedBy string) (bool, bool, error) {
	if !statusIn(participant.Status, participantReleaseFrom) {
		if statusIn(participant.Status, []string{ParticipantStatusReleased, ParticipantStatusAcknowledged}) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("%w: participant is %s", ErrInvalidTransition, participant.Status)
	}

	submissions, err := s.store.ListReleasableSubmissions(ctx, tenantID, participant.CycleID, participant.EmployeeID)
	if err != nil {
		return false, false, err
	}
	now := s.now()
	for _, submission := range submissions {
		if _, err := s.store.MarkSubmissionReleased(ctx, tenantID, submission.ID, releasedBy, now); err != nil {
			return false, false, fmt.Errorf("release submission %s: %w", submission.ID, err)
		}
	}

	overall, err := s.overallScore(ctx, tenantID, participant)
	if err != nil {
		return false, false, err
	}
	changed, err := s.store.MarkParticipantReleased(ctx, tenantID, participant.ID, participantReleaseFrom, releasedBy, overall, now)
	if err != nil {
		return false, false, err
	}
	if !changed {
		// Another run won the race between listing and releasing.
		return false, false, nil
	}
	if err := s.notifier.Enqueue(ctx, tenantID, participant.EmployeeID, NoticeRatingsReleased,
		"Your appraisal results are available", "Your appraisal ratings have been released."); err != nil {
		slog.Warn("release notification enqueue failed", "participantId", participant.ID, "err", err)
		return true, false, nil
	}
	return true, true, nil
}

// overallScore is the goal-weight-weighted mean of the employee's released
// (or just-released) final scores. Goals without a weight count equally via a
// default weight of 1. Returns nil when no scored submissions exist.
func (s *Service) overallScore(ctx context.Context, tenantID string, participant Participant) (*float64, error) {
	submissions, err := s.store.ListReleasableSubmissions(ctx, tenantID, participant.CycleID, participant.EmployeeID)
	if err != nil {
		return nil, err
	}
	goalIDs := make([]string, 0, len(submissions))
	for _, submission := range submissions {
		goalIDs = append(goalIDs, submission.GoalID)
	}
	weights, err := s.store.GoalWeights(ctx, tenantID, goalIDs)
	if err != nil {
		return nil, err
	}

	var weighted, total float64
	for _, submission := range submissions {
		if submission.FinalScore == nil {
			continue
		}
		weight, ok := weights[submission.GoalID]
		if !ok || weight <= 0 {
			weight = 1
		}
		weighted += *submission.FinalScore * weight
		total += weight
	}
	if total == 0 {
		return nil, nil
	}
	score := roundToPrecision(weighted/total, DefaultPrecision)
	return &score, nil
}
