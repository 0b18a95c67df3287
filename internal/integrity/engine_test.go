package integrity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suspiciousLog() []Event {
	var events []Event
	for i := 0; i < 5; i++ {
		events = append(events, ev(uint(i+1), RapidFireAnswer, time.Duration(i)*time.Second))
	}
	events = append(events,
		ev(6, PasteAction, 3*time.Second),
		ev(7, FocusLoss, 10*time.Second),
		ev(8, FocusLoss, 11*time.Second),
		ev(9, TabSwitch, 12*time.Second),
		ev(10, FocusLoss, 13*time.Second),
		ev(11, Custom, 14*time.Second),
	)
	return events
}

func TestEvaluateCleanLog(t *testing.T) {
	e := NewEngine(DefaultConfig())
	v := e.Evaluate([]Event{ev(1, Custom, 0), ev(2, FocusLoss, time.Second)}, nil)
	assert.Equal(t, 1.0, v.TrustScore)
	assert.Empty(t, v.Flags)
	assert.Equal(t, Clean(), Verdict{TrustScore: v.TrustScore})
}

func TestEvaluateRapidFireWithPaste(t *testing.T) {
	e := NewEngine(DefaultConfig())
	var events []Event
	for i := 0; i < 5; i++ {
		events = append(events, ev(uint(i+1), RapidFireAnswer, time.Duration(i)*time.Second))
	}
	events = append(events, ev(6, PasteAction, 2*time.Second))

	v := e.Evaluate(events, nil)
	assert.InDelta(t, 0.2, v.TrustScore, 1e-9)
	rules := make([]string, 0, len(v.Flags))
	for _, f := range v.Flags {
		rules = append(rules, f.Rule)
	}
	assert.Equal(t, []string{RuleRapidFireBurst, RulePasteAction, RulePasteWithRapidAnswer}, rules)
	assert.Less(t, v.TrustScore, 0.6)
}

func TestEvaluateClampsAtZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Penalties = map[string]float64{RuleDevtoolsOpen: 1, RulePasteAction: 1}
	v := NewEngine(cfg).Evaluate([]Event{ev(1, DevtoolsOpen, 0), ev(2, PasteAction, time.Second)}, nil)
	assert.Equal(t, 0.0, v.TrustScore)
	assert.Len(t, v.Flags, 2)
}

func TestEvaluateIsCommutativeAcrossBatches(t *testing.T) {
	e := NewEngine(DefaultConfig())
	all := suspiciousLog()
	whole := e.Evaluate(all, nil)

	for split := 0; split <= len(all); split++ {
		a, b := all[:split], all[split:]

		ab := Degrade(nil, e.Evaluate(a, nil))
		ab = Degrade(&ab, e.Evaluate(append(append([]Event(nil), a...), b...), nil))

		ba := Degrade(nil, e.Evaluate(b, nil))
		ba = Degrade(&ba, e.Evaluate(append(append([]Event(nil), b...), a...), nil))

		require.Equal(t, whole, ab, "split at %d", split)
		require.Equal(t, whole, ba, "split at %d", split)
	}
}

func TestTrustIsNonIncreasing(t *testing.T) {
	e := NewEngine(DefaultConfig())
	all := suspiciousLog()

	var (
		seen []Event
		prev *Verdict
		last = 1.0
	)
	for i := len(all) - 1; i >= 0; i-- {
		seen = append(seen, all[i])
		v := Degrade(prev, e.Evaluate(seen, nil))
		assert.LessOrEqual(t, v.TrustScore, last)
		last = v.TrustScore
		prev = &v
	}
}

func TestDegradeNeverRaises(t *testing.T) {
	prev := Verdict{TrustScore: 0.3, Flags: []Flag{{Rule: RuleDevtoolsOpen, Penalty: 0.3, FirstSeen: t0}}}
	v := Degrade(&prev, Clean())
	assert.Equal(t, 0.3, v.TrustScore)
	require.Len(t, v.Flags, 1)
	assert.Equal(t, RuleDevtoolsOpen, v.Flags[0].Rule)
}

func TestFlagsOrderedByFirstSeen(t *testing.T) {
	e := NewEngine(DefaultConfig())
	v := e.Evaluate([]Event{
		ev(1, PasteAction, 5*time.Minute),
		ev(2, DevtoolsOpen, time.Minute),
	}, nil)
	require.Len(t, v.Flags, 2)
	assert.Equal(t, RuleDevtoolsOpen, v.Flags[0].Rule)
	assert.Equal(t, RulePasteAction, v.Flags[1].Rule)
	assert.InDelta(t, 0.6, v.TrustScore, 1e-9)
}

func TestSortEventsBreaksTies(t *testing.T) {
	events := []Event{ev(3, PasteAction, 0), ev(1, FocusLoss, 0), ev(2, FocusLoss, 0)}
	SortEvents(events)
	assert.Equal(t, []uint{1, 2, 3}, []uint{events[0].ID, events[1].ID, events[2].ID})
}
