// CLAUDE:SUMMARY Defines the Pass report emitted after every reconciliation pass.
package mutation

// Trigger is what caused a reconciliation pass.
type Trigger string

const (
	TriggerInitial  Trigger = "initial"
	TriggerMutation Trigger = "mutation"
	TriggerNavigate Trigger = "navigate"
	TriggerManual   Trigger = "manual"
)

// Failure is one rule application that errored or panicked.
type Failure struct {
	RuleID string `json:"rule_id"`
	XPath  string `json:"xpath,omitempty"`
	Error  string `json:"error"`
}

// Pass is the outcome of one reconciliation pass over a screen.
type Pass struct {
	ID       string    `json:"id"` // pass_<UUIDv7> by default
	Seq      uint64    `json:"seq"`
	ScreenID string    `json:"screen_id"`
	Trigger  Trigger   `json:"trigger"`
	Rules    int       `json:"rules"`    // rules evaluated
	Applied  int       `json:"applied"`  // (rule, element) pairs applied
	Skipped  int       `json:"skipped"`  // already marked
	Filtered int       `json:"filtered"` // rejected by AppliesWhen
	Missing  []string  `json:"missing,omitempty"` // rule IDs whose selector matched nothing
	Failures []Failure `json:"failures,omitempty"`
	Records  []Record  `json:"records,omitempty"`
	Aborted  string    `json:"aborted,omitempty"` // reason the pass did not run
	// StartedAt is epoch milliseconds; Duration is microseconds.
	StartedAt int64 `json:"started_at"`
	Duration  int64 `json:"duration_us"`
}

// Mutations returns the number of DOM writes the pass produced.
func (p *Pass) Mutations() int {
	return len(p.Records)
}

// OK reports whether the pass ran to completion without rule failures.
func (p *Pass) OK() bool {
	return p.Aborted == "" && len(p.Failures) == 0
}
