package appraisal

import (
	"context"
	"fmt"
	"log/slog"
)

// RunSummary reports what one reconciliation pass changed. Counts only cover
// transitions this run performed; a rerun over an already-reconciled tenant
// reports zeros.
type RunSummary struct {
	Activated           int      `json:"activated"`
	Completed           int      `json:"completed"`
	ForcedParticipants  int      `json:"forcedParticipants"`
	OverdueParticipants int      `json:"overdueParticipants"`
	ActionsExecuted     int      `json:"actionsExecuted"`
	Errors              []string `json:"errors,omitempty"`
}

// Reconcile runs one scheduled pass over a tenant: activates due draft
// cycles, completes active cycles past their grace period, flags overdue
// participants, and executes due deferred actions. Failures in one step never
// abort the others; each is collected into the summary instead.
func (s *Service) Reconcile(ctx context.Context, tenantID string) RunSummary {
	summary := RunSummary{}

	candidates, err := s.store.ListActivationCandidates(ctx, tenantID)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("list activation candidates: %v", err))
	}
	for _, cycle := range candidates {
		activated, err := s.TryActivate(ctx, tenantID, cycle)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("activate cycle %s: %v", cycle.ID, err))
			continue
		}
		if activated {
			summary.Activated++
		}
	}

	candidates, err = s.store.ListCompletionCandidates(ctx, tenantID)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("list completion candidates: %v", err))
	}
	for _, cycle := range candidates {
		completed, forced, err := s.TryComplete(ctx, tenantID, cycle)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("complete cycle %s: %v", cycle.ID, err))
			continue
		}
		summary.ForcedParticipants += forced
		if completed {
			summary.Completed++
		}
	}

	overdue, err := s.store.ListOverdueCandidates(ctx, tenantID, s.now())
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("list overdue candidates: %v", err))
	}
	for _, participant := range overdue {
		flagged, err := s.FlagOverdue(ctx, tenantID, participant)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("flag participant %s: %v", participant.ID, err))
			continue
		}
		if flagged {
			summary.OverdueParticipants++
		}
	}

	executed, errs := s.executeDeferredActions(ctx, tenantID)
	summary.ActionsExecuted = executed
	summary.Errors = append(summary.Errors, errs...)

	if len(summary.Errors) > 0 {
		slog.Warn("reconcile pass finished with errors", "tenantId", tenantID, "errors", len(summary.Errors))
	}
	return summary
}

// executeDeferredActions runs post-cycle follow-ups (PIP reviews, promotion
// checkpoints) whose auto_execute_on date has passed. Execution here means
// marking the action done and notifying HR; the action's real-world work is
// tracked outside this system.
func (s *Service) executeDeferredActions(ctx context.Context, tenantID string) (int, []string) {
	due, err := s.store.ListDueDeferredActions(ctx, tenantID, s.now())
	if err != nil {
		return 0, []string{fmt.Sprintf("list deferred actions: %v", err)}
	}
	var executed int
	var errs []string
	for _, action := range due {
		changed, err := s.store.MarkDeferredActionExecuted(ctx, tenantID, action.ID, s.now())
		if err != nil {
			errs = append(errs, fmt.Sprintf("execute action %s: %v", action.ID, err))
			continue
		}
		if !changed {
			continue
		}
		executed++
		s.notifyHR(ctx, tenantID, NoticeActionExecuted, "Follow-up action due",
			fmt.Sprintf("Deferred action %q (%s) reached its execution date.", action.Description, action.ActionType))
	}
	return executed, errs
}
