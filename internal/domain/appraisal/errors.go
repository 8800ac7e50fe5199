package appraisal

import "errors"

var (
	ErrNotFound                   = errors.New("record not found")
	ErrInvalidTransition          = errors.New("invalid status transition")
	ErrSelfRatingPending          = errors.New("self rating required before manager rating")
	ErrNoSubmissionFound          = errors.New("no rating submission found for goal")
	ErrWeightConfigurationInvalid = errors.New("rating weights must sum to 100")
	ErrDisputeAlreadyOpen         = errors.New("a dispute is already open for this submission")
	ErrConcurrentModification     = errors.New("record was changed by another request")
)
