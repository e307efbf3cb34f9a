package network

import (
	"fmt"
	"math"
	"strings"
)

// RawScore is what a vector store reports for one hit. Either field may be absent.
type RawScore struct {
	Certainty *float64
	Distance  *float64
}

// ScorePolicy converts a RawScore to a similarity in [0,1] where 1 is identical.
type ScorePolicy int

const (
	// ScoreAuto uses certainty when it is positive and falls back to distance.
	ScoreAuto ScorePolicy = iota
	// ScoreCertainty passes a positive certainty through; anything else scores 0.
	ScoreCertainty
	// ScoreDistance converts a cosine-like distance d via max(0, 1-d/2).
	ScoreDistance
)

func (p ScorePolicy) String() string {
	switch p {
	case ScoreCertainty:
		return "certainty"
	case ScoreDistance:
		return "distance"
	default:
		return "auto"
	}
}

// ParseScorePolicy maps a config value to a policy.
func ParseScorePolicy(s string) (ScorePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ScoreAuto, nil
	case "certainty":
		return ScoreCertainty, nil
	case "distance":
		return ScoreDistance, nil
	default:
		return ScoreAuto, fmt.Errorf("%w: unknown score policy %q", ErrConfiguration, s)
	}
}

// Normalize applies the policy. The result is always within [0,1].
func (p ScorePolicy) Normalize(raw RawScore) float64 {
	certainty := func() (float64, bool) {
		if raw.Certainty != nil && *raw.Certainty > 0 {
			return *raw.Certainty, true
		}
		return 0, false
	}
	distance := func() (float64, bool) {
		if raw.Distance != nil {
			return math.Max(0, 1-*raw.Distance/2), true
		}
		return 0, false
	}

	var v float64
	switch p {
	case ScoreCertainty:
		v, _ = certainty()
	case ScoreDistance:
		v, _ = distance()
	default:
		var ok bool
		if v, ok = certainty(); !ok {
			v, _ = distance()
		}
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
