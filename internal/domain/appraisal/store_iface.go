package appraisal

import (
	"context"
	"time"
)

// StoreAPI is the engine's contract with the relational store. Every status
// transition is a conditional update keyed on the current status; the bool
// result reports whether a row matched, so racing callers degrade to one
// success and one no-op instead of a double write.
type StoreAPI interface {
	// Cycles.
	GetCycle(ctx context.Context, tenantID, cycleID string) (Cycle, error)
	CreateCycle(ctx context.Context, tenantID string, cycle Cycle) (string, error)
	ListCycles(ctx context.Context, tenantID string) ([]Cycle, error)
	ListActivationCandidates(ctx context.Context, tenantID string) ([]Cycle, error)
	ListCompletionCandidates(ctx context.Context, tenantID string) ([]Cycle, error)
	MarkCycleActive(ctx context.Context, tenantID, cycleID string, auto bool, now time.Time) (bool, error)
	MarkCycleCompleted(ctx context.Context, tenantID, cycleID string, auto bool, now time.Time) (bool, error)

	// Participants.
	GetParticipant(ctx context.Context, tenantID, participantID string) (Participant, error)
	ParticipantByCycleEmployee(ctx context.Context, tenantID, cycleID, employeeID string) (Participant, error)
	AddParticipant(ctx context.Context, tenantID string, participant Participant) (string, error)
	ListParticipants(ctx context.Context, tenantID, cycleID string) ([]Participant, error)
	UpdateParticipantStatus(ctx context.Context, tenantID, participantID string, from []string, to string) (bool, error)
	MarkParticipantReleased(ctx context.Context, tenantID, participantID string, from []string, releasedBy string, overallScore *float64, now time.Time) (bool, error)
	ListOverdueCandidates(ctx context.Context, tenantID string, asOf time.Time) ([]Participant, error)
	MarkParticipantOverdue(ctx context.Context, tenantID, participantID string, now time.Time) (bool, error)
	ForceCompleteParticipants(ctx context.Context, tenantID, cycleID string) ([]Participant, error)
	ListReleaseCandidates(ctx context.Context, tenantID, cycleID string, participantIDs []string) ([]Participant, error)

	// Goals.
	GetGoalContext(ctx context.Context, tenantID, goalID string) (GoalContext, error)
	GoalWeights(ctx context.Context, tenantID string, goalIDs []string) (map[string]float64, error)

	// Submissions.
	GetSubmission(ctx context.Context, tenantID, submissionID string) (GoalRatingSubmission, error)
	SubmissionByGoal(ctx context.Context, tenantID, goalID string) (GoalRatingSubmission, error)
	CreateSelfSubmission(ctx context.Context, tenantID string, submission GoalRatingSubmission) (string, error)
	UpdateSelfRating(ctx context.Context, tenantID, submissionID string, from []string, rating float64, comments string, now time.Time) (bool, error)
	SetManagerRating(ctx context.Context, tenantID, submissionID string, from []string, managerID string, rating float64, comments string, calculatedScore, finalScore *float64, now time.Time) (bool, error)
	MarkSubmissionReleased(ctx context.Context, tenantID, submissionID, releasedBy string, now time.Time) (bool, error)
	ListReleasableSubmissions(ctx context.Context, tenantID, cycleID, employeeID string) ([]GoalRatingSubmission, error)
	MarkSubmissionAcknowledged(ctx context.Context, tenantID, submissionID, comments string, now time.Time) (bool, error)
	OpenDispute(ctx context.Context, tenantID, submissionID, category, reason string, now time.Time) (bool, error)
	CloseDispute(ctx context.Context, tenantID, submissionID, resolvedBy, resolution, outcome string, adjustedFinalScore *float64, now time.Time) (bool, error)

	// Rating configs.
	GetRatingConfig(ctx context.Context, tenantID, configID string) (RatingConfig, error)
	SaveRatingConfig(ctx context.Context, tenantID string, cfg RatingConfig) (string, error)

	// Deferred actions.
	ListDueDeferredActions(ctx context.Context, tenantID string, asOf time.Time) ([]DeferredAction, error)
	MarkDeferredActionExecuted(ctx context.Context, tenantID, actionID string, now time.Time) (bool, error)
}
