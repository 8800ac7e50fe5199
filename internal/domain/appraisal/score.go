package appraisal

import (
	"fmt"
	"math"
)

// ValidateRatingConfig enforces weight policy at save time. A weighted_average
// config whose weights do not sum to 100 is never persisted.
func ValidateRatingConfig(cfg RatingConfig) error {
	if !ValidCalculationMethod(cfg.CalculationMethod) {
		return fmt.Errorf("unknown calculation method %q", cfg.CalculationMethod)
	}
	if cfg.SelfWeight < 0 || cfg.ManagerWeight < 0 || cfg.ProgressWeight < 0 {
		return fmt.Errorf("%w: weights must not be negative", ErrWeightConfigurationInvalid)
	}
	if cfg.CalculationMethod == CalcMethodWeightedAverage {
		sum := cfg.SelfWeight + cfg.ManagerWeight + cfg.ProgressWeight
		if sum != 100 {
			return fmt.Errorf("%w: got %v", ErrWeightConfigurationInvalid, sum)
		}
	}
	if cfg.ScaleMax < 0 || cfg.Precision < 0 {
		return fmt.Errorf("%w: scale max and precision must not be negative", ErrWeightConfigurationInvalid)
	}
	return nil
}

// ComputeFinalScore turns self/manager/progress inputs into a final goal
// rating per the config's calculation method. Progress is on a 0-100 scale;
// ratings are on the config's rating scale. Weight validity is enforced at
// config save time, not here.
func ComputeFinalScore(selfRating, managerRating, progressScore *float64, cfg RatingConfig) (float64, error) {
	switch cfg.CalculationMethod {
	case CalcMethodManagerOnly:
		if managerRating == nil {
			return 0, fmt.Errorf("manager rating required for %s calculation", CalcMethodManagerOnly)
		}
		return roundToPrecision(*managerRating, cfg.Precision), nil

	case CalcMethodAuto:
		if progressScore == nil {
			return 0, fmt.Errorf("no progress data available for %s calculation", CalcMethodAuto)
		}
		scaleMax := cfg.ScaleMax
		if scaleMax <= 0 {
			scaleMax = DefaultScaleMax
		}
		return roundToPrecision(*progressScore / 100 * scaleMax, cfg.Precision), nil

	case CalcMethodManual:
		if managerRating == nil {
			return 0, fmt.Errorf("manager rating required for %s calculation", CalcMethodManual)
		}
		return roundToPrecision(*managerRating, cfg.Precision), nil

	case CalcMethodWeightedAverage:
		// Components with zero weight or a missing value are excluded;
		// remaining weights are deliberately not renormalized.
		var total float64
		if cfg.SelfWeight > 0 {
			if selfRating != nil {
				total += *selfRating * cfg.SelfWeight
			} else if cfg.SelfRatingRequired {
				return 0, fmt.Errorf("%w: weighted self component missing", ErrSelfRatingPending)
			}
		}
		if cfg.ManagerWeight > 0 && managerRating != nil {
			total += *managerRating * cfg.ManagerWeight
		}
		if cfg.ProgressWeight > 0 && progressScore != nil {
			scaleMax := cfg.ScaleMax
			if scaleMax <= 0 {
				scaleMax = DefaultScaleMax
			}
			total += (*progressScore / 100 * scaleMax) * cfg.ProgressWeight
		}
		return roundToPrecision(total/100, cfg.Precision), nil

	default:
		return 0, fmt.Errorf("unknown calculation method %q", cfg.CalculationMethod)
	}
}

func roundToPrecision(value, precision float64) float64 {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	return math.Round(value/precision) * precision
}
