package appraisal

import (
	"context"
	"fmt"
	"log/slog"
)

func (s *Service) GetCycle(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	return s.store.GetCycle(ctx, tenantID, cycleID)
}

func (s *Service) ListCycles(ctx context.Context, tenantID string) ([]Cycle, error) {
	return s.store.ListCycles(ctx, tenantID)
}

func (s *Service) CreateCycle(ctx context.Context, tenantID string, cycle Cycle) (string, error) {
	if cycle.EndDate.Before(cycle.StartDate) {
		return "", fmt.Errorf("cycle end date before start date")
	}
	if cycle.GracePeriodDays < 0 {
		return "", fmt.Errorf("grace period must not be negative")
	}
	if cycle.EvaluationDeadline.IsZero() {
		cycle.EvaluationDeadline = cycle.EndDate
	}
	cycle.Status = CycleStatusDraft
	return s.store.CreateCycle(ctx, tenantID, cycle)
}

// TryActivate moves a draft cycle to active once its start date has passed.
// Idempotency comes from the status predicate on the conditional update, not
// from a separate "already ran" flag.
func (s *Service) TryActivate(ctx context.Context, tenantID string, cycle Cycle) (bool, error) {
	if cycle.Status != CycleStatusDraft || !cycle.AutoActivate || s.now().Before(cycle.StartDate) {
		return false, nil
	}
	changed, err := s.store.MarkCycleActive(ctx, tenantID, cycle.ID, true, s.now())
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	s.notifyHR(ctx, tenantID, NoticeCycleActivated, "Appraisal cycle started",
		fmt.Sprintf("Cycle %q is now active.", cycle.Name))
	return true, nil
}

// TryComplete closes an active cycle once end_date plus the grace period has
// elapsed, force-completing any still-open participants first. Returns whether
// the cycle was completed and how many participants were forced.
func (s *Service) TryComplete(ctx context.Context, tenantID string, cycle Cycle) (bool, int, error) {
	if cycle.Status != CycleStatusActive || !cycle.AutoComplete || s.now().Before(cycle.CompletionDeadline()) {
		return false, 0, nil
	}
	forced, err := s.ForceComplete(ctx, tenantID, cycle.ID)
	if err != nil {
		return false, 0, err
	}
	changed, err := s.store.MarkCycleCompleted(ctx, tenantID, cycle.ID, true, s.now())
	if err != nil {
		return false, forced, err
	}
	if !changed {
		return false, forced, nil
	}
	s.notifyHR(ctx, tenantID, NoticeCycleCompleted, "Appraisal cycle completed",
		fmt.Sprintf("Cycle %q completed; %d participants were force-completed.", cycle.Name, forced))
	return true, forced, nil
}

// ActivateCycle is the administrative "activate now" override. It skips the
// date and auto-activate predicates but still honors monotonicity: an active
// cycle is a no-op, a completed cycle is rejected.
func (s *Service) ActivateCycle(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	changed, err := s.store.MarkCycleActive(ctx, tenantID, cycleID, false, s.now())
	if err != nil {
		return Cycle{}, err
	}
	cycle, err := s.store.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, err
	}
	if !changed && cycle.Status == CycleStatusCompleted {
		return Cycle{}, fmt.Errorf("%w: completed cycle cannot be reactivated", ErrInvalidTransition)
	}
	if changed {
		s.notifyHR(ctx, tenantID, NoticeCycleActivated, "Appraisal cycle started",
			fmt.Sprintf("Cycle %q was activated manually.", cycle.Name))
	}
	return cycle, nil
}

// CloseCycle is the administrative "close now" override. Only an active cycle
// may complete; a draft cycle must be activated first.
func (s *Service) CloseCycle(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	current, err := s.store.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, err
	}
	if current.Status == CycleStatusDraft {
		return Cycle{}, fmt.Errorf("%w: cycle must be activated before completion", ErrInvalidTransition)
	}
	forced, err := s.ForceComplete(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, err
	}
	changed, err := s.store.MarkCycleCompleted(ctx, tenantID, cycleID, false, s.now())
	if err != nil {
		return Cycle{}, err
	}
	cycle, err := s.store.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, err
	}
	if changed {
		s.notifyHR(ctx, tenantID, NoticeCycleCompleted, "Appraisal cycle completed",
			fmt.Sprintf("Cycle %q was closed manually; %d participants were force-completed.", cycle.Name, forced))
	}
	return cycle, nil
}

func (s *Service) notifyHR(ctx context.Context, tenantID, kind, title, body string) {
	if err := s.notifier.Enqueue(ctx, tenantID, "", kind, title, body); err != nil {
		slog.Warn("hr notification enqueue failed", "kind", kind, "tenantId", tenantID, "err", err)
	}
}
