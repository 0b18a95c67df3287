// Package scoring turns a completed session's answers into a percentage and a level.
package scoring

import "math"

type Level string

const (
	Expert       Level = "Expert"
	Proficient   Level = "Proficient"
	Working      Level = "Working"
	Foundational Level = "Foundational"
)

// Outcome is one administered question as seen by the scorer.
type Outcome struct {
	QuestionID uint
	Correct    bool
	LatencyMs  int64
	// TrustAtSubmission is the session trust score when the answer was accepted.
	TrustAtSubmission float64
}

type Config struct {
	PassThreshold int
	// PlausibilityThreshold: a correct answer given while trust was below it
	// counts only by that trust, and a final trust below it caps the score.
	PlausibilityThreshold float64
	ScoreCap              int
}

func DefaultConfig() Config {
	return Config{PassThreshold: 50, PlausibilityThreshold: 0.5, ScoreCap: 40}
}

// Result is the materialized score of a session.
type Result struct {
	Score  int
	Level  Level
	Passed bool
}

// Score is deterministic for the same inputs. An empty outcome list scores 0.
func Score(cfg Config, outcomes []Outcome, finalTrust float64) Result {
	score := 0
	if len(outcomes) > 0 {
		var weighted float64
		for _, o := range outcomes {
			if !o.Correct {
				continue
			}
			w := 1.0
			if o.TrustAtSubmission < cfg.PlausibilityThreshold {
				w = math.Max(0, o.TrustAtSubmission)
			}
			weighted += w
		}
		score = int(math.Floor(weighted/float64(len(outcomes))*100 + 1e-9))
	}
	if finalTrust < cfg.PlausibilityThreshold && score > cfg.ScoreCap {
		score = cfg.ScoreCap
	}
	score = clamp(score, 0, 100)
	return Result{Score: score, Level: LevelFor(score), Passed: Passed(cfg, score)}
}

// LevelFor maps a score to its level using inclusive lower bounds.
func LevelFor(score int) Level {
	switch {
	case score >= 90:
		return Expert
	case score >= 70:
		return Proficient
	case score >= 50:
		return Working
	default:
		return Foundational
	}
}

func Passed(cfg Config, score int) bool {
	return score >= cfg.PassThreshold
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
