package integrity

import "time"

// Rule names.
const (
	RuleFocusLossBurst       = "focus_loss_burst"
	RuleRapidFireBurst       = "rapid_fire_burst"
	RulePasteWithRapidAnswer = "paste_with_rapid_answer"
	RuleDevtoolsOpen         = "devtools_open"
	RulePasteAction          = "paste_action"
	RuleIdleGap              = "idle_gap"
	RuleImplausibleLatency   = "implausible_latency"
)

var defaultPenalties = map[string]float64{
	RuleFocusLossBurst:       0.20,
	RuleRapidFireBurst:       0.30,
	RulePasteWithRapidAnswer: 0.40,
	RuleDevtoolsOpen:         0.30,
	RulePasteAction:          0.10,
	RuleIdleGap:              0.05,
	RuleImplausibleLatency:   0.15,
}

// Config holds the rule thresholds. Zero fields fall back to DefaultConfig.
type Config struct {
	// FocusLossWindow and FocusLossMax: more than FocusLossMax focus-loss or
	// tab-switch events inside one window trigger focus_loss_burst.
	FocusLossWindow time.Duration
	FocusLossMax    int
	// RapidFireMin rapid-fire-answer events trigger rapid_fire_burst.
	RapidFireMin int
	// PasteWindow is how close a paste must be to a rapid answer to co-occur.
	PasteWindow time.Duration
	// MinHumanLatency is the fastest plausible time to read and answer a question.
	MinHumanLatency       time.Duration
	ImplausibleAnswersMin int
	IdleGapMin            time.Duration

	Penalties map[string]float64
}

func DefaultConfig() Config {
	return Config{
		FocusLossWindow:       60 * time.Second,
		FocusLossMax:          3,
		RapidFireMin:          5,
		PasteWindow:           60 * time.Second,
		MinHumanLatency:       2 * time.Second,
		ImplausibleAnswersMin: 2,
		IdleGapMin:            5 * time.Minute,
	}
}

// withDefaults fills zero thresholds.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FocusLossWindow <= 0 {
		c.FocusLossWindow = d.FocusLossWindow
	}
	if c.FocusLossMax <= 0 {
		c.FocusLossMax = d.FocusLossMax
	}
	if c.RapidFireMin <= 0 {
		c.RapidFireMin = d.RapidFireMin
	}
	if c.PasteWindow <= 0 {
		c.PasteWindow = d.PasteWindow
	}
	if c.MinHumanLatency <= 0 {
		c.MinHumanLatency = d.MinHumanLatency
	}
	if c.ImplausibleAnswersMin <= 0 {
		c.ImplausibleAnswersMin = d.ImplausibleAnswersMin
	}
	if c.IdleGapMin <= 0 {
		c.IdleGapMin = d.IdleGapMin
	}
	return c
}

// Penalty returns the configured penalty of rule, or its default.
func (c Config) Penalty(rule string) float64 {
	if p, ok := c.Penalties[rule]; ok {
		return p
	}
	return defaultPenalties[rule]
}
