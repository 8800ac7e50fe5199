package appraisal

const (
	CycleStatusDraft     = "draft"
	CycleStatusActive    = "active"
	CycleStatusCompleted = "completed"

	ParticipantStatusPending      = "pending"
	ParticipantStatusInProgress   = "in_progress"
	ParticipantStatusCompleted    = "completed"
	ParticipantStatusFinalized    = "finalized"
	ParticipantStatusReviewed     = "reviewed"
	ParticipantStatusReleased     = "released"
	ParticipantStatusAcknowledged = "acknowledged"
	ParticipantStatusCancelled    = "cancelled"

	SubmissionStatusNone             = "none"
	SubmissionStatusSelfSubmitted    = "self_submitted"
	SubmissionStatusManagerSubmitted = "manager_submitted"
	SubmissionStatusReleased         = "released"
	SubmissionStatusAcknowledged     = "acknowledged"
	SubmissionStatusDisputed         = "disputed"

	DisputeStatusOpen        = "open"
	DisputeStatusUnderReview = "under_review"
	DisputeStatusResolved    = "resolved"
	DisputeStatusRejected    = "rejected"

	CalcMethodAuto            = "auto"
	CalcMethodManual          = "manual"
	CalcMethodWeightedAverage = "weighted_average"
	CalcMethodManagerOnly     = "manager_only"

	DeferredStatusPending   = "pending"
	DeferredStatusExecuted  = "executed"
	DeferredStatusCancelled = "cancelled"
)

// Notification intent kinds recorded by the engine. Delivery is the sink's
// problem; the engine only writes the intent.
const (
	NoticeCycleActivated    = "cycle_activated"
	NoticeCycleCompleted    = "cycle_completed"
	NoticeEvaluationOverdue = "evaluation_overdue"
	NoticeRatingsReleased   = "ratings_released"
	NoticeDisputeOpened     = "dispute_opened"
	NoticeDisputeResolved   = "dispute_resolved"
	NoticeActionExecuted    = "action_executed"
)

const (
	DefaultScaleMax  = 5.0
	DefaultPrecision = 0.1
)
