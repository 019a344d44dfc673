package entities

import (
	"strings"
	"time"
)

// UpkeepDiagnostic reports each upkeep condition independently
type UpkeepDiagnostic struct {
	IsOpen     bool          `json:"is_open"`
	TimePassed bool          `json:"time_passed"`
	HasPlayers bool          `json:"has_players"`
	HasBalance bool          `json:"has_balance"`
	Elapsed    time.Duration `json:"elapsed"`
}

// AllSatisfied returns true when every condition holds
func (d UpkeepDiagnostic) AllSatisfied() bool {
	return d.IsOpen && d.TimePassed && d.HasPlayers && d.HasBalance
}

// FailedConditions lists the names of the conditions that do not hold
func (d UpkeepDiagnostic) FailedConditions() []string {
	var failed []string
	if !d.IsOpen {
		failed = append(failed, "raffle not open")
	}
	if !d.TimePassed {
		failed = append(failed, "interval not elapsed")
	}
	if !d.HasPlayers {
		failed = append(failed, "no participants")
	}
	if !d.HasBalance {
		failed = append(failed, "no pooled value")
	}
	return failed
}

// Reason returns a human readable summary of failed conditions
func (d UpkeepDiagnostic) Reason() string {
	failed := d.FailedConditions()
	if len(failed) == 0 {
		return "all conditions satisfied"
	}
	return strings.Join(failed, ", ")
}

// UpkeepCheck is the outcome of evaluating whether upkeep should fire
type UpkeepCheck struct {
	Needed     bool             `json:"needed"`
	Diagnostic UpkeepDiagnostic `json:"diagnostic"`
}
