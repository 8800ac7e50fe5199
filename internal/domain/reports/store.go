package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CycleHeader(ctx context.Context, tenantID, cycleID string) (string, string, error) {
	var name, status string
	err := s.DB.QueryRow(ctx, `
    SELECT name, status
    FROM appraisal_cycles
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, cycleID).Scan(&name, &status)
	return name, status, err
}

func (s *Store) ParticipantStatusCounts(ctx context.Context, tenantID, cycleID string) (map[string]int, int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(1), COUNT(1) FILTER (WHERE is_overdue)
    FROM appraisal_participants
    WHERE tenant_id = $1 AND cycle_id = $2
    GROUP BY status
  `, tenantID, cycleID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	counts := map[string]int{}
	overdue := 0
	for rows.Next() {
		var status string
		var count, overdueCount int
		if err := rows.Scan(&status, &count, &overdueCount); err != nil {
			return nil, 0, err
		}
		counts[status] = count
		overdue += overdueCount
	}
	return counts, overdue, rows.Err()
}

func (s *Store) AverageOverallScore(ctx context.Context, tenantID, cycleID string) (*float64, error) {
	var avg *float64
	err := s.DB.QueryRow(ctx, `
    SELECT AVG(overall_score)
    FROM appraisal_participants
    WHERE tenant_id = $1 AND cycle_id = $2 AND overall_score IS NOT NULL
  `, tenantID, cycleID).Scan(&avg)
	return avg, err
}

// ScoreDistribution buckets final goal scores by their integer floor, so a
// 1-5 scale yields bands 0..5.
func (s *Store) ScoreDistribution(ctx context.Context, tenantID, cycleID string) (map[int]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT FLOOR(final_score)::int, COUNT(1)
    FROM goal_rating_submissions
    WHERE tenant_id = $1 AND cycle_id = $2 AND final_score IS NOT NULL
    GROUP BY FLOOR(final_score)::int
  `, tenantID, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := map[int]int{}
	for rows.Next() {
		var band, count int
		if err := rows.Scan(&band, &count); err != nil {
			return nil, err
		}
		buckets[band] = count
	}
	return buckets, rows.Err()
}

func (s *Store) SubmissionCounts(ctx context.Context, tenantID, cycleID string) (released, acknowledged, openDisputes int, err error) {
	err = s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FILTER (WHERE status IN ('released','acknowledged','disputed')),
           COUNT(1) FILTER (WHERE status = 'acknowledged'),
           COUNT(1) FILTER (WHERE dispute_status IN ('open','under_review'))
    FROM goal_rating_submissions
    WHERE tenant_id = $1 AND cycle_id = $2
  `, tenantID, cycleID).Scan(&released, &acknowledged, &openDisputes)
	return released, acknowledged, openDisputes, err
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var employeeID string
	err := s.DB.QueryRow(ctx, "SELECT id FROM employees WHERE tenant_id = $1 AND user_id = $2", tenantID, userID).Scan(&employeeID)
	return employeeID, err
}
