package appraisal

import (
	"context"
	"fmt"
	"time"
)

// memStore is an in-memory StoreAPI with the same conditional-update
// semantics as the SQL store, used to exercise the state machines without a
// database.
type memStore struct {
	seq          int
	cycles       map[string]*Cycle
	participants map[string]*Participant
	submissions  map[string]*GoalRatingSubmission
	goals        map[string]*GoalContext
	configs      map[string]*RatingConfig
	actions      map[string]*DeferredAction

	failRelease map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		cycles:       map[string]*Cycle{},
		participants: map[string]*Participant{},
		submissions:  map[string]*GoalRatingSubmission{},
		goals:        map[string]*GoalContext{},
		configs:      map[string]*RatingConfig{},
		actions:      map[string]*DeferredAction{},
		failRelease:  map[string]bool{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) GetCycle(_ context.Context, _, cycleID string) (Cycle, error) {
	cycle, ok := m.cycles[cycleID]
	if !ok {
		return Cycle{}, ErrNotFound
	}
	return *cycle, nil
}

func (m *memStore) CreateCycle(_ context.Context, tenantID string, cycle Cycle) (string, error) {
	cycle.ID = m.nextID("cycle")
	cycle.TenantID = tenantID
	m.cycles[cycle.ID] = &cycle
	return cycle.ID, nil
}

func (m *memStore) ListCycles(_ context.Context, _ string) ([]Cycle, error) {
	var cycles []Cycle
	for _, cycle := range m.cycles {
		cycles = append(cycles, *cycle)
	}
	return cycles, nil
}

func (m *memStore) ListActivationCandidates(_ context.Context, _ string) ([]Cycle, error) {
	var cycles []Cycle
	for _, cycle := range m.cycles {
		if cycle.Status == CycleStatusDraft && cycle.AutoActivate {
			cycles = append(cycles, *cycle)
		}
	}
	return cycles, nil
}

func (m *memStore) ListCompletionCandidates(_ context.Context, _ string) ([]Cycle, error) {
	var cycles []Cycle
	for _, cycle := range m.cycles {
		if cycle.Status == CycleStatusActive && cycle.AutoComplete {
			cycles = append(cycles, *cycle)
		}
	}
	return cycles, nil
}

func (m *memStore) MarkCycleActive(_ context.Context, _, cycleID string, auto bool, now time.Time) (bool, error) {
	cycle, ok := m.cycles[cycleID]
	if !ok || cycle.Status != CycleStatusDraft {
		return false, nil
	}
	cycle.Status = CycleStatusActive
	if auto {
		cycle.AutoActivatedAt = &now
	}
	return true, nil
}

func (m *memStore) MarkCycleCompleted(_ context.Context, _, cycleID string, auto bool, now time.Time) (bool, error) {
	cycle, ok := m.cycles[cycleID]
	if !ok || cycle.Status != CycleStatusActive {
		return false, nil
	}
	cycle.Status = CycleStatusCompleted
	if auto {
		cycle.AutoCompletedAt = &now
	}
	return true, nil
}

func (m *memStore) GetParticipant(_ context.Context, _, participantID string) (Participant, error) {
	participant, ok := m.participants[participantID]
	if !ok {
		return Participant{}, ErrNotFound
	}
	return *participant, nil
}

func (m *memStore) ParticipantByCycleEmployee(_ context.Context, _, cycleID, employeeID string) (Participant, error) {
	for _, participant := range m.participants {
		if participant.CycleID == cycleID && participant.EmployeeID == employeeID {
			return *participant, nil
		}
	}
	return Participant{}, ErrNotFound
}

func (m *memStore) AddParticipant(_ context.Context, tenantID string, participant Participant) (string, error) {
	participant.ID = m.nextID("part")
	participant.TenantID = tenantID
	m.participants[participant.ID] = &participant
	return participant.ID, nil
}

func (m *memStore) ListParticipants(_ context.Context, _, cycleID string) ([]Participant, error) {
	var participants []Participant
	for _, participant := range m.participants {
		if participant.CycleID == cycleID {
			participants = append(participants, *participant)
		}
	}
	return participants, nil
}

func (m *memStore) UpdateParticipantStatus(_ context.Context, _, participantID string, from []string, to string) (bool, error) {
	participant, ok := m.participants[participantID]
	if !ok || !statusIn(participant.Status, from) {
		return false, nil
	}
	participant.Status = to
	return true, nil
}

func (m *memStore) MarkParticipantReleased(_ context.Context, _, participantID string, from []string, releasedBy string, overallScore *float64, now time.Time) (bool, error) {
	if m.failRelease[participantID] {
		return false, fmt.Errorf("induced store failure")
	}
	participant, ok := m.participants[participantID]
	if !ok || !statusIn(participant.Status, from) {
		return false, nil
	}
	participant.Status = ParticipantStatusReleased
	participant.ReleasedAt = &now
	participant.ReleasedBy = releasedBy
	if overallScore != nil {
		participant.OverallScore = overallScore
	}
	return true, nil
}

func (m *memStore) ListOverdueCandidates(_ context.Context, _ string, asOf time.Time) ([]Participant, error) {
	var participants []Participant
	for _, participant := range m.participants {
		if participant.IsOverdue || !statusIn(participant.Status, participantOpenSet) {
			continue
		}
		due := participant.DueDate
		if due == nil {
			cycle, ok := m.cycles[participant.CycleID]
			if !ok {
				continue
			}
			due = &cycle.EvaluationDeadline
		}
		if due.Before(asOf) {
			participants = append(participants, *participant)
		}
	}
	return participants, nil
}

func (m *memStore) MarkParticipantOverdue(_ context.Context, _, participantID string, now time.Time) (bool, error) {
	participant, ok := m.participants[participantID]
	if !ok || participant.IsOverdue || !statusIn(participant.Status, participantOpenSet) {
		return false, nil
	}
	participant.IsOverdue = true
	participant.OverdueNotifiedAt = &now
	return true, nil
}

func (m *memStore) ForceCompleteParticipants(_ context.Context, _, cycleID string) ([]Participant, error) {
	var forced []Participant
	for _, participant := range m.participants {
		if participant.CycleID != cycleID || !statusIn(participant.Status, participantOpenSet) {
			continue
		}
		participant.Status = ParticipantStatusCompleted
		participant.IsOverdue = true
		forced = append(forced, *participant)
	}
	return forced, nil
}

func (m *memStore) ListReleaseCandidates(_ context.Context, _, cycleID string, participantIDs []string) ([]Participant, error) {
	var candidates []Participant
	for _, participant := range m.participants {
		if participant.CycleID != cycleID || !statusIn(participant.Status, participantReleaseFrom) {
			continue
		}
		if len(participantIDs) > 0 && !statusIn(participant.ID, participantIDs) {
			continue
		}
		candidates = append(candidates, *participant)
	}
	return candidates, nil
}

func (m *memStore) GetGoalContext(_ context.Context, _, goalID string) (GoalContext, error) {
	goal, ok := m.goals[goalID]
	if !ok {
		return GoalContext{}, ErrNotFound
	}
	return *goal, nil
}

func (m *memStore) GoalWeights(_ context.Context, _ string, goalIDs []string) (map[string]float64, error) {
	weights := map[string]float64{}
	for _, id := range goalIDs {
		if goal, ok := m.goals[id]; ok {
			weights[id] = goal.Weight
		}
	}
	return weights, nil
}

func (m *memStore) GetSubmission(_ context.Context, _, submissionID string) (GoalRatingSubmission, error) {
	sub, ok := m.submissions[submissionID]
	if !ok {
		return GoalRatingSubmission{}, ErrNotFound
	}
	return *sub, nil
}

func (m *memStore) SubmissionByGoal(_ context.Context, _, goalID string) (GoalRatingSubmission, error) {
	for _, sub := range m.submissions {
		if sub.GoalID == goalID {
			return *sub, nil
		}
	}
	return GoalRatingSubmission{}, ErrNotFound
}

func (m *memStore) CreateSelfSubmission(_ context.Context, tenantID string, sub GoalRatingSubmission) (string, error) {
	sub.ID = m.nextID("sub")
	sub.TenantID = tenantID
	m.submissions[sub.ID] = &sub
	return sub.ID, nil
}

func (m *memStore) UpdateSelfRating(_ context.Context, _, submissionID string, from []string, rating float64, comments string, now time.Time) (bool, error) {
	sub, ok := m.submissions[submissionID]
	if !ok || !statusIn(sub.Status, from) {
		return false, nil
	}
	sub.SelfRating = &rating
	sub.SelfRatingAt = &now
	sub.SelfComments = comments
	sub.Status = SubmissionStatusSelfSubmitted
	return true, nil
}

func (m *memStore) SetManagerRating(_ context.Context, _, submissionID string, from []string, managerID string, rating float64, comments string, calculatedScore, finalScore *float64, now time.Time) (bool, error) {
	sub, ok := m.submissions[submissionID]
	if !ok || !statusIn(sub.Status, from) {
		return false, nil
	}
	sub.ManagerID = managerID
	sub.ManagerRating = &rating
	sub.ManagerRatingAt = &now
	sub.ManagerComments = comments
	sub.CalculatedScore = calculatedScore
	sub.FinalScore = finalScore
	sub.Status = SubmissionStatusManagerSubmitted
	return true, nil
}

func (m *memStore) MarkSubmissionReleased(_ context.Context, _, submissionID, releasedBy string, now time.Time) (bool, error) {
	sub, ok := m.submissions[submissionID]
	if !ok || !statusIn(sub.Status, submissionReleaseFrom) {
		return false, nil
	}
	sub.Status = SubmissionStatusReleased
	sub.ReleasedAt = &now
	sub.ReleasedBy = releasedBy
	return true, nil
}

func (m *memStore) ListReleasableSubmissions(_ context.Context, _, cycleID, employeeID string) ([]GoalRatingSubmission, error) {
	var subs []GoalRatingSubmission
	for _, sub := range m.submissions {
		if sub.CycleID == cycleID && sub.EmployeeID == employeeID && sub.ManagerRating != nil {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (m *memStore) MarkSubmissionAcknowledged(_ context.Context, _, submissionID, comments string, now time.Time) (bool, error) {
	sub, ok := m.submissions[submissionID]
	if !ok || sub.Status != SubmissionStatusReleased {
		return false, nil
	}
	sub.Status = SubmissionStatusAcknowledged
	sub.AcknowledgedAt = &now
	sub.AcknowledgedBy = sub.EmployeeID
	sub.AcknowledgmentComments = comments
	return true, nil
}

func (m *memStore) OpenDispute(_ context.Context, _, submissionID, category, reason string, now time.Time) (bool, error) {
	sub, ok := m.submissions[submissionID]
	if !ok || !statusIn(sub.Status, submissionDisputeFrom) {
		return false, nil
	}
	if statusIn(sub.DisputeStatus, []string{DisputeStatusOpen, DisputeStatusUnderReview}) {
		return false, nil
	}
	sub.Status = SubmissionStatusDisputed
	sub.IsDisputed = true
	sub.DisputeCategory = category
	sub.DisputeReason = reason
	sub.DisputeStatus = DisputeStatusOpen
	sub.DisputedAt = &now
	return true, nil
}

func (m *memStore) CloseDispute(_ context.Context, _, submissionID, resolvedBy, resolution, outcome string, adjustedFinalScore *float64, now time.Time) (bool, error) {
	sub, ok := m.submissions[submissionID]
	if !ok || sub.Status != SubmissionStatusDisputed {
		return false, nil
	}
	if !statusIn(sub.DisputeStatus, []string{DisputeStatusOpen, DisputeStatusUnderReview}) {
		return false, nil
	}
	sub.Status = SubmissionStatusReleased
	sub.IsDisputed = false
	sub.DisputeStatus = outcome
	sub.DisputeResolution = resolution
	sub.DisputeResolvedAt = &now
	sub.DisputeResolvedBy = resolvedBy
	if adjustedFinalScore != nil {
		sub.FinalScore = adjustedFinalScore
	}
	sub.AcknowledgedAt = nil
	sub.AcknowledgedBy = ""
	sub.AcknowledgmentComments = ""
	return true, nil
}

func (m *memStore) GetRatingConfig(_ context.Context, _, configID string) (RatingConfig, error) {
	cfg, ok := m.configs[configID]
	if !ok {
		return RatingConfig{}, ErrNotFound
	}
	return *cfg, nil
}

func (m *memStore) SaveRatingConfig(_ context.Context, tenantID string, cfg RatingConfig) (string, error) {
	cfg.ID = m.nextID("cfg")
	cfg.TenantID = tenantID
	cfg.Version = 1
	for _, existing := range m.configs {
		if existing.Name == cfg.Name && existing.Version >= cfg.Version {
			cfg.Version = existing.Version + 1
		}
	}
	m.configs[cfg.ID] = &cfg
	return cfg.ID, nil
}

func (m *memStore) ListDueDeferredActions(_ context.Context, _ string, asOf time.Time) ([]DeferredAction, error) {
	var due []DeferredAction
	for _, action := range m.actions {
		if action.Status != DeferredStatusPending {
			continue
		}
		executeOn := action.AutoExecuteOn
		if executeOn == nil {
			date := action.CreatedAt.AddDate(0, 0, action.ExecuteAfterDays)
			executeOn = &date
		}
		if !executeOn.After(asOf) {
			due = append(due, *action)
		}
	}
	return due, nil
}

func (m *memStore) MarkDeferredActionExecuted(_ context.Context, _, actionID string, now time.Time) (bool, error) {
	action, ok := m.actions[actionID]
	if !ok || action.Status != DeferredStatusPending {
		return false, nil
	}
	action.Status = DeferredStatusExecuted
	action.ExecutedAt = &now
	return true, nil
}

// recordingNotifier captures notification intents for assertions.
type recordingNotifier struct {
	sent       []recordedNotice
	enqueueErr error
}

type recordedNotice struct {
	employeeID string
	kind       string
}

func (r *recordingNotifier) Enqueue(_ context.Context, _, employeeID, kind, _, _ string) error {
	if r.enqueueErr != nil {
		return r.enqueueErr
	}
	r.sent = append(r.sent, recordedNotice{employeeID: employeeID, kind: kind})
	return nil
}

func (r *recordingNotifier) countKind(kind string) int {
	var count int
	for _, notice := range r.sent {
		if notice.kind == kind {
			count++
		}
	}
	return count
}

func newTestService(store *memStore, at time.Time) (*Service, *recordingNotifier) {
	notifier := &recordingNotifier{}
	service := NewService(store, notifier)
	service.now = func() time.Time { return at }
	return service, notifier
}

func floatPtr(v float64) *float64 { return &v }
