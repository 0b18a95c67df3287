package integrity

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Log is the ordered input every rule inspects.
type Log struct {
	Events  []Event  // sorted by SortEvents
	Answers []Answer // sorted by SubmittedAt
}

func (l *Log) ofType(types ...EventType) []Event {
	var res []Event
	for _, e := range l.Events {
		for _, t := range types {
			if e.Type == t {
				res = append(res, e)
				break
			}
		}
	}
	return res
}

// Finding is what a rule reports when it triggers.
type Finding struct {
	Evidence    int
	FirstSeen   time.Time
	Description string
}

// Rule is one anomaly detector. Detect must be monotone: a superset of the
// log must never produce a nil finding where the subset produced one.
type Rule interface {
	Name() string
	Severity() Severity
	Detect(log *Log) *Finding
}

// DefaultRules returns the rule set in evaluation order.
func DefaultRules(cfg Config) []Rule {
	cfg = cfg.withDefaults()
	return []Rule{
		&focusLossBurstRule{window: cfg.FocusLossWindow, max: cfg.FocusLossMax},
		&rapidFireBurstRule{min: cfg.RapidFireMin},
		&pasteWithRapidAnswerRule{window: cfg.PasteWindow, minLatency: cfg.MinHumanLatency},
		&presenceRule{name: RuleDevtoolsOpen, severity: SeverityHigh, typ: DevtoolsOpen},
		&presenceRule{name: RulePasteAction, severity: SeverityLow, typ: PasteAction},
		&idleGapRule{min: cfg.IdleGapMin},
		&implausibleLatencyRule{minLatency: cfg.MinHumanLatency, min: cfg.ImplausibleAnswersMin},
	}
}

type focusLossBurstRule struct {
	window time.Duration
	max    int
}

func (r *focusLossBurstRule) Name() string       { return RuleFocusLossBurst }
func (r *focusLossBurstRule) Severity() Severity { return SeverityMedium }

func (r *focusLossBurstRule) Detect(log *Log) *Finding {
	evs := log.ofType(FocusLoss, TabSwitch)
	best, start := 0, -1
	i := 0
	for j := range evs {
		for evs[j].Timestamp.Sub(evs[i].Timestamp) >= r.window {
			i++
		}
		if n := j - i + 1; n > best {
			best = n
			if n > r.max && start < 0 {
				start = i
			}
		}
	}
	if best <= r.max {
		return nil
	}
	return &Finding{
		Evidence:    best,
		FirstSeen:   evs[start].Timestamp,
		Description: fmt.Sprintf("%d focus losses within %s", best, r.window),
	}
}

type rapidFireBurstRule struct {
	min int
}

func (r *rapidFireBurstRule) Name() string       { return RuleRapidFireBurst }
func (r *rapidFireBurstRule) Severity() Severity { return SeverityHigh }

func (r *rapidFireBurstRule) Detect(log *Log) *Finding {
	evs := log.ofType(RapidFireAnswer)
	if len(evs) < r.min {
		return nil
	}
	return &Finding{
		Evidence:    len(evs),
		FirstSeen:   evs[0].Timestamp,
		Description: fmt.Sprintf("%d rapid-fire answers", len(evs)),
	}
}

// pasteWithRapidAnswerRule fires when a paste sits next to a rapid-fire
// signal, or just before an answer submitted faster than a human could read.
type pasteWithRapidAnswerRule struct {
	window     time.Duration
	minLatency time.Duration
}

func (r *pasteWithRapidAnswerRule) Name() string       { return RulePasteWithRapidAnswer }
func (r *pasteWithRapidAnswerRule) Severity() Severity { return SeverityCritical }

func (r *pasteWithRapidAnswerRule) Detect(log *Log) *Finding {
	pastes := log.ofType(PasteAction)
	if len(pastes) == 0 {
		return nil
	}
	rapid := log.ofType(RapidFireAnswer)

	var hits []Event
	for _, p := range pastes {
		if r.nearRapidFire(p, rapid) || r.beforeFastAnswer(p, log.Answers) {
			hits = append(hits, p)
		}
	}
	if len(hits) == 0 {
		return nil
	}
	return &Finding{
		Evidence:    len(hits),
		FirstSeen:   hits[0].Timestamp,
		Description: fmt.Sprintf("%d pastes co-occurring with rapid answers", len(hits)),
	}
}

func (r *pasteWithRapidAnswerRule) nearRapidFire(p Event, rapid []Event) bool {
	for _, e := range rapid {
		d := e.Timestamp.Sub(p.Timestamp)
		if d < 0 {
			d = -d
		}
		if d <= r.window {
			return true
		}
	}
	return false
}

func (r *pasteWithRapidAnswerRule) beforeFastAnswer(p Event, answers []Answer) bool {
	for _, a := range answers {
		if a.Latency >= r.minLatency {
			continue
		}
		if !p.Timestamp.After(a.SubmittedAt) && a.SubmittedAt.Sub(p.Timestamp) <= r.window {
			return true
		}
	}
	return false
}

// presenceRule fires on the first occurrence of an event type.
type presenceRule struct {
	name     string
	severity Severity
	typ      EventType
}

func (r *presenceRule) Name() string       { return r.name }
func (r *presenceRule) Severity() Severity { return r.severity }

func (r *presenceRule) Detect(log *Log) *Finding {
	evs := log.ofType(r.typ)
	if len(evs) == 0 {
		return nil
	}
	return &Finding{
		Evidence:    len(evs),
		FirstSeen:   evs[0].Timestamp,
		Description: fmt.Sprintf("%d %s events", len(evs), r.typ),
	}
}

type idleGapRule struct {
	min time.Duration
}

func (r *idleGapRule) Name() string       { return RuleIdleGap }
func (r *idleGapRule) Severity() Severity { return SeverityLow }

func (r *idleGapRule) Detect(log *Log) *Finding {
	var hits []Event
	for _, e := range log.ofType(IdleGap) {
		ms, ok := number(e.Payload["durationMs"])
		if ok && time.Duration(ms)*time.Millisecond >= r.min {
			hits = append(hits, e)
		}
	}
	if len(hits) == 0 {
		return nil
	}
	return &Finding{
		Evidence:    len(hits),
		FirstSeen:   hits[0].Timestamp,
		Description: fmt.Sprintf("%d idle gaps of at least %s", len(hits), r.min),
	}
}

type implausibleLatencyRule struct {
	minLatency time.Duration
	min        int
}

func (r *implausibleLatencyRule) Name() string       { return RuleImplausibleLatency }
func (r *implausibleLatencyRule) Severity() Severity { return SeverityMedium }

func (r *implausibleLatencyRule) Detect(log *Log) *Finding {
	var hits []Answer
	for _, a := range log.Answers {
		if a.Latency < r.minLatency {
			hits = append(hits, a)
		}
	}
	if len(hits) < r.min {
		return nil
	}
	return &Finding{
		Evidence:    len(hits),
		FirstSeen:   hits[0].SubmittedAt,
		Description: fmt.Sprintf("%d answers faster than %s", len(hits), r.minLatency),
	}
}

// number reads a payload value decoded from JSON or set programmatically.
// A missing value is not zero.
func number(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	return f, err == nil
}
