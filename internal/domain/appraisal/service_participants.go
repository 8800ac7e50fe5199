package appraisal

import (
	"context"
	"fmt"
	"log/slog"
)

func (s *Service) GetParticipant(ctx context.Context, tenantID, participantID string) (Participant, error) {
	return s.store.GetParticipant(ctx, tenantID, participantID)
}

func (s *Service) ListParticipants(ctx context.Context, tenantID, cycleID string) ([]Participant, error) {
	return s.store.ListParticipants(ctx, tenantID, cycleID)
}

func (s *Service) AddParticipant(ctx context.Context, tenantID, cycleID, employeeID string, participant Participant) (string, error) {
	cycle, err := s.store.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return "", err
	}
	if cycle.Status == CycleStatusCompleted {
		return "", fmt.Errorf("%w: cannot enroll into a completed cycle", ErrInvalidTransition)
	}
	participant.CycleID = cycleID
	participant.EmployeeID = employeeID
	participant.Status = ParticipantStatusPending
	participant.IsOverdue = false
	return s.store.AddParticipant(ctx, tenantID, participant)
}

// Advance moves a participant one step along the forward edges. Skips are
// rejected here; the only permitted skip is the reconciler's force
// completion, which does not go through Advance.
func (s *Service) Advance(ctx context.Context, tenantID, participantID, target string) (Participant, error) {
	if !ValidParticipantStatus(target) {
		return Participant{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}
	participant, err := s.store.GetParticipant(ctx, tenantID, participantID)
	if err != nil {
		return Participant{}, err
	}
	if !participantCanAdvance(participant.Status, target) {
		return Participant{}, fmt.Errorf("%w: participant cannot move from %s to %s",
			ErrInvalidTransition, participant.Status, target)
	}

	var changed bool
	if target == ParticipantStatusReleased {
		changed, err = s.store.MarkParticipantReleased(ctx, tenantID, participantID, participantReleaseFrom, "", nil, s.now())
	} else {
		changed, err = s.store.UpdateParticipantStatus(ctx, tenantID, participantID, []string{participant.Status}, target)
	}
	if err != nil {
		return Participant{}, err
	}

	current, err := s.store.GetParticipant(ctx, tenantID, participantID)
	if err != nil {
		return Participant{}, err
	}
	if !changed && current.Status != target {
		return Participant{}, fmt.Errorf("%w: participant is now %s", ErrConcurrentModification, current.Status)
	}
	return current, nil
}

// CancelParticipant removes a participant from the cycle; allowed from any
// non-terminal state by explicit administrative action.
func (s *Service) CancelParticipant(ctx context.Context, tenantID, participantID string) (Participant, error) {
	participant, err := s.store.GetParticipant(ctx, tenantID, participantID)
	if err != nil {
		return Participant{}, err
	}
	if participantTerminal(participant.Status) {
		return Participant{}, fmt.Errorf("%w: participant is already %s", ErrInvalidTransition, participant.Status)
	}
	from := make([]string, 0, len(participantNext))
	for status := range participantNext {
		if !participantTerminal(status) {
			from = append(from, status)
		}
	}
	if _, err := s.store.UpdateParticipantStatus(ctx, tenantID, participantID, from, ParticipantStatusCancelled); err != nil {
		return Participant{}, err
	}
	return s.store.GetParticipant(ctx, tenantID, participantID)
}

// FlagOverdue marks a participant overdue and records exactly one overdue
// notification intent. The conditional update only matches rows that are
// still open and were never flagged, so a second call is a no-op.
func (s *Service) FlagOverdue(ctx context.Context, tenantID string, participant Participant) (bool, error) {
	if participant.IsOverdue || !statusIn(participant.Status, participantOpenSet) {
		return false, nil
	}
	changed, err := s.store.MarkParticipantOverdue(ctx, tenantID, participant.ID, s.now())
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	if err := s.notifier.Enqueue(ctx, tenantID, participant.EmployeeID, NoticeEvaluationOverdue,
		"Appraisal overdue", "Your appraisal evaluation is past its due date."); err != nil {
		slog.Warn("overdue notification enqueue failed", "participantId", participant.ID, "err", err)
	}
	return true, nil
}

// ForceComplete pushes every still-open participant in the cycle straight to
// completed with is_overdue set. Used when a cycle's grace period elapses or
// the cycle is closed manually. Re-running over already-completed
// participants changes nothing.
func (s *Service) ForceComplete(ctx context.Context, tenantID, cycleID string) (int, error) {
	affected, err := s.store.ForceCompleteParticipants(ctx, tenantID, cycleID)
	if err != nil {
		return 0, err
	}
	return len(affected), nil
}
