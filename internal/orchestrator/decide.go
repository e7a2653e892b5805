// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import "github.com/pdiddy/answer-engine/pkg/types"

// Decision is the transition taken after a stage is evaluated.
type Decision int

const (
	Advance Decision = iota
	Retry
	Abort
)

func (d Decision) String() string {
	switch d {
	case Advance:
		return "advance"
	case Retry:
		return "retry"
	case Abort:
		return "abort"
	}
	return "unknown"
}

// decide picks the next transition. A floor violation aborts only when
// abortOnFloor is set; exhausting retries advances with the latest attempt.
func decide(report types.EvaluationReport, counter, maxRetries int, abortOnFloor bool) Decision {
	switch {
	case abortOnFloor && report.FloorViolated():
		return Abort
	case report.Passed:
		return Advance
	case counter >= maxRetries:
		return Advance
	case len(report.Feedback) == 0:
		return Advance
	}
	return Retry
}
