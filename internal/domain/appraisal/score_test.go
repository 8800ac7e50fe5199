package appraisal

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeFinalScoreWeightedAverage(t *testing.T) {
	cfg := RatingConfig{
		CalculationMethod: CalcMethodWeightedAverage,
		SelfWeight:        30,
		ManagerWeight:     50,
		ProgressWeight:    20,
		ScaleMax:          5,
		Precision:         0.1,
	}
	// 4.0*0.3 + 5.0*0.5 + (60/100*5)*0.2 = 1.2 + 2.5 + 0.6 = 4.3... with
	// manager 5.0 and progress 3-of-5 equivalents.
	score, err := ComputeFinalScore(floatPtr(4.0), floatPtr(5.0), floatPtr(80.0), cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 1.2 + 2.5 + (80/100*5)*0.2 = 4.5
	if !almostEqual(score, 4.5) {
		t.Fatalf("expected 4.5, got %v", score)
	}

	score, err = ComputeFinalScore(floatPtr(4.0), floatPtr(5.0), floatPtr(60.0), cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !almostEqual(score, 4.3) {
		t.Fatalf("expected 4.3, got %v", score)
	}
}

func TestComputeFinalScoreMissingOptionalComponent(t *testing.T) {
	cfg := RatingConfig{
		CalculationMethod: CalcMethodWeightedAverage,
		SelfWeight:        30,
		ManagerWeight:     50,
		ProgressWeight:    20,
		ScaleMax:          5,
		Precision:         0.1,
	}
	// Missing optional self component is excluded without renormalizing.
	score, err := ComputeFinalScore(nil, floatPtr(4.0), floatPtr(100.0), cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !almostEqual(score, 3.0) {
		t.Fatalf("expected 3.0 (2.0 + 1.0), got %v", score)
	}
}

func TestComputeFinalScoreSelfRequired(t *testing.T) {
	cfg := RatingConfig{
		CalculationMethod:  CalcMethodWeightedAverage,
		SelfWeight:         30,
		ManagerWeight:      70,
		SelfRatingRequired: true,
		ScaleMax:           5,
	}
	if _, err := ComputeFinalScore(nil, floatPtr(4.0), nil, cfg); !errors.Is(err, ErrSelfRatingPending) {
		t.Fatalf("expected ErrSelfRatingPending, got %v", err)
	}
}

func TestComputeFinalScoreManagerOnly(t *testing.T) {
	cfg := RatingConfig{CalculationMethod: CalcMethodManagerOnly, Precision: 0.1}
	score, err := ComputeFinalScore(floatPtr(1.0), floatPtr(4.25), nil, cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !almostEqual(score, 4.3) {
		t.Fatalf("expected manager rating rounded to 4.3, got %v", score)
	}
	if _, err := ComputeFinalScore(floatPtr(1.0), nil, nil, cfg); err == nil {
		t.Fatal("expected error without manager rating")
	}
}

func TestComputeFinalScoreAutoMapsProgressToScale(t *testing.T) {
	cfg := RatingConfig{CalculationMethod: CalcMethodAuto, ScaleMax: 5, Precision: 0.1}
	score, err := ComputeFinalScore(nil, nil, floatPtr(80.0), cfg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !almostEqual(score, 4.0) {
		t.Fatalf("expected 80%% progress to map to 4.0, got %v", score)
	}
	if _, err := ComputeFinalScore(nil, nil, nil, cfg); err == nil {
		t.Fatal("expected error without progress data")
	}
}

func TestValidateRatingConfigWeights(t *testing.T) {
	cfg := RatingConfig{
		CalculationMethod: CalcMethodWeightedAverage,
		SelfWeight:        30,
		ManagerWeight:     50,
		ProgressWeight:    10,
	}
	if err := ValidateRatingConfig(cfg); !errors.Is(err, ErrWeightConfigurationInvalid) {
		t.Fatalf("expected ErrWeightConfigurationInvalid for 90%% total, got %v", err)
	}
	cfg.ProgressWeight = 20
	if err := ValidateRatingConfig(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	cfg.SelfWeight = -10
	if err := ValidateRatingConfig(cfg); !errors.Is(err, ErrWeightConfigurationInvalid) {
		t.Fatalf("expected rejection of negative weight, got %v", err)
	}
	cfg.SelfWeight = 30
	cfg.CalculationMethod = "median"
	if err := ValidateRatingConfig(cfg); err == nil {
		t.Fatal("expected rejection of unknown calculation method")
	}
}

func TestRoundToPrecision(t *testing.T) {
	if got := roundToPrecision(4.26, 0.1); !almostEqual(got, 4.3) {
		t.Fatalf("expected 4.3, got %v", got)
	}
	if got := roundToPrecision(4.24, 0.5); !almostEqual(got, 4.0) {
		t.Fatalf("expected 4.0, got %v", got)
	}
	if got := roundToPrecision(4.26, 0); !almostEqual(got, 4.3) {
		t.Fatalf("expected default precision 0.1, got %v", got)
	}
}
