package network

import "fmt"

// LevelClassifier maps a normalized similarity to a tier using a strictly
// descending threshold list. Tier n (1-based) requires score >= thresholds[n-1].
type LevelClassifier struct {
	thresholds []float64
}

// NewLevelClassifier validates the thresholds: non-empty, each in (0,1],
// strictly descending.
func NewLevelClassifier(thresholds []float64) (*LevelClassifier, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("%w: no thresholds configured", ErrConfiguration)
	}
	for i, t := range thresholds {
		if t <= 0 || t > 1 {
			return nil, fmt.Errorf("%w: threshold %d (%v) outside (0,1]", ErrConfiguration, i+1, t)
		}
		if i > 0 && t >= thresholds[i-1] {
			return nil, fmt.Errorf("%w: thresholds must be strictly descending, got %v after %v",
				ErrConfiguration, t, thresholds[i-1])
		}
	}
	own := make([]float64, len(thresholds))
	copy(own, thresholds)
	return &LevelClassifier{thresholds: own}, nil
}

// Classify returns the best tier the score qualifies for. ok is false when the
// score is below the lowest threshold.
func (c *LevelClassifier) Classify(score float64) (level int, ok bool) {
	for i, t := range c.thresholds {
		if score >= t {
			return i + 1, true
		}
	}
	return 0, false
}

// Levels returns the number of tiers.
func (c *LevelClassifier) Levels() int {
	return len(c.thresholds)
}

// Threshold returns the lower bound of a 1-based tier, or 0 when out of range.
func (c *LevelClassifier) Threshold(level int) float64 {
	if level < 1 || level > len(c.thresholds) {
		return 0
	}
	return c.thresholds[level-1]
}
