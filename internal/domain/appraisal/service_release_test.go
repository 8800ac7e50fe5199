package appraisal

import (
	"context"
	"fmt"
	"testing"
)

// seedReleasableEmployee sets up a finalized participant with one
// manager-submitted rating in the cycle.
func seedReleasableEmployee(store *memStore, cycleID string, n int) (participantID, employeeID string) {
	employeeID = fmt.Sprintf("emp-%d", n)
	goalID := fmt.Sprintf("g-%d", n)
	participantID = fmt.Sprintf("part-r%d", n)

	store.participants[participantID] = &Participant{
		ID: participantID, TenantID: "t1", CycleID: cycleID,
		EmployeeID: employeeID, Status: ParticipantStatusFinalized,
	}
	seedGoal(store, goalID, cycleID, employeeID, 100, managerOnlyConfig())
	score := 4.0
	store.submissions["sub-"+goalID] = &GoalRatingSubmission{
		ID: "sub-" + goalID, TenantID: "t1", GoalID: goalID, CycleID: cycleID,
		EmployeeID: employeeID, RatingConfigID: "cfg-" + goalID,
		ManagerRating: &score, FinalScore: &score,
		Status: SubmissionStatusManagerSubmitted,
	}
	return participantID, employeeID
}

func TestBulkReleaseAllEligible(t *testing.T) {
	store := newMemStore()
	service, notifier := newTestService(store, date(2026, 7, 15))

	for n := 1; n <= 3; n++ {
		seedReleasableEmployee(store, "c1", n)
	}

	result, err := service.BulkRelease(context.Background(), "t1", "c1", "hr-1", nil)
	if err != nil {
		t.Fatalf("bulk release: %v", err)
	}
	if result.Released != 3 || result.Notified != 3 || len(result.Errors) != 0 {
		t.Fatalf("expected 3 clean releases, got %+v", result)
	}
	if notifier.countKind(NoticeRatingsReleased) != 3 {
		t.Fatalf("expected one notification per employee, got %d", notifier.countKind(NoticeRatingsReleased))
	}

	for _, participant := range store.participants {
		if participant.Status != ParticipantStatusReleased {
			t.Fatalf("expected released participant, got %+v", participant)
		}
		if participant.OverallScore == nil || *participant.OverallScore != 4.0 {
			t.Fatalf("expected overall score 4.0, got %+v", participant.OverallScore)
		}
	}
	for _, sub := range store.submissions {
		if sub.Status != SubmissionStatusReleased {
			t.Fatalf("expected released submission, got %+v", sub)
		}
	}
}

func TestBulkReleaseCountsOnlyRecordedNotifications(t *testing.T) {
	store := newMemStore()
	service, notifier := newTestService(store, date(2026, 7, 15))
	seedReleasableEmployee(store, "c1", 1)
	notifier.enqueueErr = fmt.Errorf("sink unavailable")

	result, err := service.BulkRelease(context.Background(), "t1", "c1", "hr-1", nil)
	if err != nil {
		t.Fatalf("bulk release: %v", err)
	}
	if result.Released != 1 {
		t.Fatalf("expected 1 released, got %+v", result)
	}
	if result.Notified != 0 {
		t.Fatalf("failed enqueue must not count as notified, got %+v", result)
	}
	if notifier.countKind(NoticeRatingsReleased) != 0 {
		t.Fatalf("expected no recorded notifications, got %d", notifier.countKind(NoticeRatingsReleased))
	}
}

func TestBulkReleasePartialFailureAndRetry(t *testing.T) {
	store := newMemStore()
	service, notifier := newTestService(store, date(2026, 7, 15))

	ids := make([]string, 0, 5)
	for n := 1; n <= 5; n++ {
		id, _ := seedReleasableEmployee(store, "c1", n)
		ids = append(ids, id)
	}
	store.failRelease[ids[2]] = true

	result, err := service.BulkRelease(context.Background(), "t1", "c1", "hr-1", nil)
	if err != nil {
		t.Fatalf("bulk release: %v", err)
	}
	if result.Released != 4 {
		t.Fatalf("expected 4 releases around the failure, got %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected one recorded failure, got %+v", result.Errors)
	}
	if notifier.countKind(NoticeRatingsReleased) != 4 {
		t.Fatalf("expected 4 notifications, got %d", notifier.countKind(NoticeRatingsReleased))
	}

	// Retry only touches the failed participant: the other four are released
	// and drop out of the candidate set, so no duplicate notifications.
	delete(store.failRelease, ids[2])
	result, err = service.BulkRelease(context.Background(), "t1", "c1", "hr-1", nil)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.Released != 1 || len(result.Errors) != 0 {
		t.Fatalf("expected single release on retry, got %+v", result)
	}
	if notifier.countKind(NoticeRatingsReleased) != 5 {
		t.Fatalf("expected 5 total notifications, got %d", notifier.countKind(NoticeRatingsReleased))
	}
}

func TestBulkReleaseSubsetSelection(t *testing.T) {
	store := newMemStore()
	service, _ := newTestService(store, date(2026, 7, 15))

	first, _ := seedReleasableEmployee(store, "c1", 1)
	second, _ := seedReleasableEmployee(store, "c1", 2)

	result, err := service.BulkRelease(context.Background(), "t1", "c1", "hr-1", []string{first})
	if err != nil {
		t.Fatalf("bulk release: %v", err)
	}
	if result.Released != 1 {
		t.Fatalf("expected one release, got %+v", result)
	}
	if store.participants[first].Status != ParticipantStatusReleased {
		t.Fatal("selected participant must be released")
	}
	if store.participants[second].Status != ParticipantStatusFinalized {
		t.Fatal("unselected participant must be untouched")
	}
}

func TestBulkReleaseWeightedOverallScore(t *testing.T) {
	store := newMemStore()
	service, _ := newTestService(store, date(2026, 7, 15))

	participantID, employeeID := seedReleasableEmployee(store, "c1", 1)

	// Second goal with a different weight and score.
	seedGoal(store, "g-extra", "c1", employeeID, 25, managerOnlyConfig())
	low := 2.0
	store.submissions["sub-extra"] = &GoalRatingSubmission{
		ID: "sub-extra", TenantID: "t1", GoalID: "g-extra", CycleID: "c1",
		EmployeeID: employeeID, RatingConfigID: "cfg-g-extra",
		ManagerRating: &low, FinalScore: &low,
		Status: SubmissionStatusManagerSubmitted,
	}

	result, err := service.BulkRelease(context.Background(), "t1", "c1", "hr-1", nil)
	if err != nil || result.Released != 1 {
		t.Fatalf("bulk release: result=%+v err=%v", result, err)
	}

	// (4.0*100 + 2.0*25) / 125 = 3.6
	participant := store.participants[participantID]
	if participant.OverallScore == nil || !almostEqual(*participant.OverallScore, 3.6) {
		t.Fatalf("expected weighted overall score 3.6, got %+v", participant.OverallScore)
	}
}

func TestForceCompleteIdempotent(t *testing.T) {
	store := newMemStore()
	service, _ := newTestService(store, date(2026, 7, 15))

	store.participants["p1"] = &Participant{
		ID: "p1", TenantID: "t1", CycleID: "c1",
		EmployeeID: "emp-1", Status: ParticipantStatusInProgress,
	}
	store.participants["p2"] = &Participant{
		ID: "p2", TenantID: "t1", CycleID: "c1",
		EmployeeID: "emp-2", Status: ParticipantStatusReleased,
	}

	forced, err := service.ForceComplete(context.Background(), "t1", "c1")
	if err != nil || forced != 1 {
		t.Fatalf("expected one forced participant, got forced=%d err=%v", forced, err)
	}
	if store.participants["p2"].Status != ParticipantStatusReleased {
		t.Fatal("released participant must be untouched")
	}

	forced, err = service.ForceComplete(context.Background(), "t1", "c1")
	if err != nil || forced != 0 {
		t.Fatalf("second force completion must be a no-op, got forced=%d err=%v", forced, err)
	}
}
