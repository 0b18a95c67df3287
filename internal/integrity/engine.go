package integrity

import (
	"math"
	"sort"
)

// Engine evaluates the rule set over a session's full log.
type Engine struct {
	cfg   Config
	rules []Rule
}

func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{cfg: cfg, rules: DefaultRules(cfg)}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// SortEvents orders events by timestamp. Ties break on type and then ID so
// that the order never depends on arrival.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ID < b.ID
	})
}

// Evaluate runs every rule over the given log. The inputs are copied before
// sorting.
func (e *Engine) Evaluate(events []Event, answers []Answer) Verdict {
	log := &Log{
		Events:  append([]Event(nil), events...),
		Answers: append([]Answer(nil), answers...),
	}
	SortEvents(log.Events)
	sort.SliceStable(log.Answers, func(i, j int) bool {
		return log.Answers[i].SubmittedAt.Before(log.Answers[j].SubmittedAt)
	})

	var flags []Flag
	for _, r := range e.rules {
		f := r.Detect(log)
		if f == nil {
			continue
		}
		flags = append(flags, Flag{
			Rule:        r.Name(),
			Severity:    r.Severity(),
			Penalty:     e.cfg.Penalty(r.Name()),
			Evidence:    f.Evidence,
			FirstSeen:   f.FirstSeen,
			Description: f.Description,
		})
	}
	return newVerdict(flags)
}

// Degrade folds next into prev: the trust score keeps its minimum and flags
// accumulate. A nil prev is treated as a clean session.
func Degrade(prev *Verdict, next Verdict) Verdict {
	if prev == nil {
		return newVerdict(next.Flags)
	}
	byRule := make(map[string]Flag, len(prev.Flags)+len(next.Flags))
	for _, f := range prev.Flags {
		byRule[f.Rule] = f
	}
	for _, f := range next.Flags {
		old, ok := byRule[f.Rule]
		if !ok {
			byRule[f.Rule] = f
			continue
		}
		if f.Evidence > old.Evidence {
			old.Evidence = f.Evidence
			old.Description = f.Description
		}
		if f.FirstSeen.Before(old.FirstSeen) {
			old.FirstSeen = f.FirstSeen
		}
		byRule[f.Rule] = old
	}
	flags := make([]Flag, 0, len(byRule))
	for _, f := range byRule {
		flags = append(flags, f)
	}
	v := newVerdict(flags)
	v.TrustScore = math.Min(prev.TrustScore, v.TrustScore)
	v.TrustScore = math.Min(v.TrustScore, next.TrustScore)
	return v
}

func newVerdict(flags []Flag) Verdict {
	sortFlags(flags)
	trust := 1.0
	for _, f := range flags {
		trust -= f.Penalty
	}
	return Verdict{TrustScore: round4(clamp01(trust)), Flags: flags}
}

func sortFlags(flags []Flag) {
	sort.SliceStable(flags, func(i, j int) bool {
		if !flags[i].FirstSeen.Equal(flags[j].FirstSeen) {
			return flags[i].FirstSeen.Before(flags[j].FirstSeen)
		}
		return flags[i].Rule < flags[j].Rule
	})
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
