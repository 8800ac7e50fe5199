package reports

import (
	"context"
	"sort"
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

type ScoreBand struct {
	Band  int `json:"band"`
	Count int `json:"count"`
}

// CycleSummary is the HR progress view over one appraisal cycle: where
// participants sit in the lifecycle and how released scores are shaping up.
type CycleSummary struct {
	CycleID           string         `json:"cycleId"`
	CycleName         string         `json:"cycleName"`
	CycleStatus       string         `json:"cycleStatus"`
	Participants      int            `json:"participants"`
	StatusCounts      map[string]int `json:"statusCounts"`
	OverdueCount      int            `json:"overdueCount"`
	AverageScore      *float64       `json:"averageScore,omitempty"`
	ScoreDistribution []ScoreBand    `json:"scoreDistribution"`
	ReleasedRatings   int            `json:"releasedRatings"`
	Acknowledged      int            `json:"acknowledged"`
	OpenDisputes      int            `json:"openDisputes"`
}

func (s *Service) CycleSummary(ctx context.Context, tenantID, cycleID string) (CycleSummary, error) {
	name, status, err := s.Store.CycleHeader(ctx, tenantID, cycleID)
	if err != nil {
		return CycleSummary{}, err
	}

	statusCounts, overdue, err := s.Store.ParticipantStatusCounts(ctx, tenantID, cycleID)
	if err != nil {
		return CycleSummary{}, err
	}
	total := 0
	for _, count := range statusCounts {
		total += count
	}

	avg, err := s.Store.AverageOverallScore(ctx, tenantID, cycleID)
	if err != nil {
		return CycleSummary{}, err
	}

	buckets, err := s.Store.ScoreDistribution(ctx, tenantID, cycleID)
	if err != nil {
		return CycleSummary{}, err
	}
	bands := make([]ScoreBand, 0, len(buckets))
	for band, count := range buckets {
		bands = append(bands, ScoreBand{Band: band, Count: count})
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].Band < bands[j].Band })

	released, acknowledged, openDisputes, err := s.Store.SubmissionCounts(ctx, tenantID, cycleID)
	if err != nil {
		return CycleSummary{}, err
	}

	return CycleSummary{
		CycleID:           cycleID,
		CycleName:         name,
		CycleStatus:       status,
		Participants:      total,
		StatusCounts:      statusCounts,
		OverdueCount:      overdue,
		AverageScore:      avg,
		ScoreDistribution: bands,
		ReleasedRatings:   released,
		Acknowledged:      acknowledged,
		OpenDisputes:      openDisputes,
	}, nil
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	return s.Store.EmployeeIDByUserID(ctx, tenantID, userID)
}
