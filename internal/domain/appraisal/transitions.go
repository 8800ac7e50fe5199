package appraisal

// participantNext is the single source of truth for participant status
// transitions. finalized may move straight to released: bulk release treats
// finalized and reviewed as equivalent selection states.
var participantNext = map[string][]string{
	ParticipantStatusPending:      {ParticipantStatusInProgress, ParticipantStatusCancelled},
	ParticipantStatusInProgress:   {ParticipantStatusCompleted, ParticipantStatusFinalized, ParticipantStatusCancelled},
	ParticipantStatusCompleted:    {ParticipantStatusReviewed, ParticipantStatusCancelled},
	ParticipantStatusFinalized:    {ParticipantStatusReviewed, ParticipantStatusReleased, ParticipantStatusCancelled},
	ParticipantStatusReviewed:     {ParticipantStatusReleased, ParticipantStatusCancelled},
	ParticipantStatusReleased:     {ParticipantStatusAcknowledged, ParticipantStatusCancelled},
	ParticipantStatusAcknowledged: nil,
	ParticipantStatusCancelled:    nil,
}

var cycleNext = map[string]string{
	CycleStatusDraft:  CycleStatusActive,
	CycleStatusActive: CycleStatusCompleted,
}

// Status sets submission operations may transition from. Conditional updates
// use these as their predicate, so two racing callers degrade to one success
// plus one zero-row update.
var (
	submissionSelfEditable = []string{SubmissionStatusNone, SubmissionStatusSelfSubmitted}
	submissionManagerFrom  = []string{SubmissionStatusNone, SubmissionStatusSelfSubmitted, SubmissionStatusManagerSubmitted}
	submissionReleaseFrom  = []string{SubmissionStatusManagerSubmitted}
	submissionDisputeFrom  = []string{SubmissionStatusReleased, SubmissionStatusAcknowledged}

	participantReleaseFrom = []string{ParticipantStatusFinalized, ParticipantStatusReviewed}
	participantOpenSet     = []string{ParticipantStatusPending, ParticipantStatusInProgress}
)

func participantCanAdvance(from, to string) bool {
	for _, next := range participantNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

func participantTerminal(status string) bool {
	return status == ParticipantStatusAcknowledged || status == ParticipantStatusCancelled
}

func cycleCanAdvance(from, to string) bool {
	return cycleNext[from] == to
}

func statusIn(status string, set []string) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// ValidParticipantStatus reports whether value is a known participant status.
// Unknown values are rejected at the persistence boundary instead of being
// written through as free-form strings.
func ValidParticipantStatus(value string) bool {
	_, ok := participantNext[value]
	return ok
}

func ValidCycleStatus(value string) bool {
	switch value {
	case CycleStatusDraft, CycleStatusActive, CycleStatusCompleted:
		return true
	}
	return false
}

func ValidSubmissionStatus(value string) bool {
	switch value {
	case SubmissionStatusNone, SubmissionStatusSelfSubmitted, SubmissionStatusManagerSubmitted,
		SubmissionStatusReleased, SubmissionStatusAcknowledged, SubmissionStatusDisputed:
		return true
	}
	return false
}

func ValidCalculationMethod(value string) bool {
	switch value {
	case CalcMethodAuto, CalcMethodManual, CalcMethodWeightedAverage, CalcMethodManagerOnly:
		return true
	}
	return false
}
