package appraisal

import "time"

type Cycle struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenantId"`
	Name               string     `json:"name"`
	Status             string     `json:"status"`
	StartDate          time.Time  `json:"startDate"`
	EndDate            time.Time  `json:"endDate"`
	EvaluationDeadline time.Time  `json:"evaluationDeadline"`
	GracePeriodDays    int        `json:"gracePeriodDays"`
	AutoActivate       bool       `json:"autoActivate"`
	AutoComplete       bool       `json:"autoComplete"`
	AutoActivatedAt    *time.Time `json:"autoActivatedAt,omitempty"`
	AutoCompletedAt    *time.Time `json:"autoCompletedAt,omitempty"`
}

// CompletionDeadline is the end date pushed out by the grace period. The
// grace period is a pure date offset, never a separately stored deadline.
func (c Cycle) CompletionDeadline() time.Time {
	return c.EndDate.AddDate(0, 0, c.GracePeriodDays)
}

type Participant struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenantId"`
	CycleID           string     `json:"cycleId"`
	EmployeeID        string     `json:"employeeId"`
	Status            string     `json:"status"`
	DueDate           *time.Time `json:"dueDate,omitempty"`
	IsOverdue         bool       `json:"isOverdue"`
	OverdueNotifiedAt *time.Time `json:"overdueNotifiedAt,omitempty"`
	ReleasedAt        *time.Time `json:"releasedAt,omitempty"`
	ReleasedBy        string     `json:"releasedBy,omitempty"`
	OverallScore      *float64   `json:"overallScore,omitempty"`
}

type GoalRatingSubmission struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenantId"`
	GoalID          string     `json:"goalId"`
	CycleID         string     `json:"cycleId"`
	EmployeeID      string     `json:"employeeId"`
	ManagerID       string     `json:"managerId,omitempty"`
	RatingConfigID  string     `json:"ratingConfigId"`
	SelfRating      *float64   `json:"selfRating,omitempty"`
	SelfRatingAt    *time.Time `json:"selfRatingAt,omitempty"`
	SelfComments    string     `json:"selfComments,omitempty"`
	ManagerRating   *float64   `json:"managerRating,omitempty"`
	ManagerRatingAt *time.Time `json:"managerRatingAt,omitempty"`
	ManagerComments string     `json:"managerComments,omitempty"`
	CalculatedScore *float64   `json:"calculatedScore,omitempty"`
	FinalScore      *float64   `json:"finalScore,omitempty"`
	Status          string     `json:"status"`

	IsDisputed        bool       `json:"isDisputed"`
	DisputeCategory   string     `json:"disputeCategory,omitempty"`
	DisputeReason     string     `json:"disputeReason,omitempty"`
	DisputeStatus     string     `json:"disputeStatus,omitempty"`
	DisputeResolution string     `json:"disputeResolution,omitempty"`
	DisputedAt        *time.Time `json:"disputedAt,omitempty"`
	DisputeResolvedAt *time.Time `json:"disputeResolvedAt,omitempty"`
	DisputeResolvedBy string     `json:"disputeResolvedBy,omitempty"`

	ReleasedAt             *time.Time `json:"releasedAt,omitempty"`
	ReleasedBy             string     `json:"releasedBy,omitempty"`
	AcknowledgedAt         *time.Time `json:"acknowledgedAt,omitempty"`
	AcknowledgedBy         string     `json:"acknowledgedBy,omitempty"`
	AcknowledgmentComments string     `json:"acknowledgmentComments,omitempty"`
}

// RatingConfig is immutable once referenced by a released submission;
// changes are saved as new versions instead of edits in place.
type RatingConfig struct {
	ID                 string  `json:"id"`
	TenantID           string  `json:"tenantId"`
	Name               string  `json:"name"`
	CalculationMethod  string  `json:"calculationMethod"`
	SelfWeight         float64 `json:"selfWeight"`
	ManagerWeight      float64 `json:"managerWeight"`
	ProgressWeight     float64 `json:"progressWeight"`
	SelfRatingRequired bool    `json:"selfRatingRequired"`
	ScaleMax           float64 `json:"scaleMax"`
	Precision          float64 `json:"precision"`
	Version            int     `json:"version"`
}

type DeferredAction struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenantId"`
	CycleID          string     `json:"cycleId,omitempty"`
	EmployeeID       string     `json:"employeeId,omitempty"`
	ActionType       string     `json:"actionType"`
	Description      string     `json:"description,omitempty"`
	ExecuteAfterDays int        `json:"executeAfterDays"`
	AutoExecuteOn    *time.Time `json:"autoExecuteOn,omitempty"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	ExecutedAt       *time.Time `json:"executedAt,omitempty"`
}

// GoalContext is the slice of a goal the engine needs when creating or
// scoring a submission.
type GoalContext struct {
	GoalID         string
	CycleID        string
	EmployeeID     string
	ManagerID      string
	RatingConfigID string
	Weight         float64
	Progress       *float64
}
