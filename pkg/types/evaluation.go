// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CriterionScore is the result of one rubric criterion.
type CriterionScore struct {
	Key       string  `json:"key" yaml:"key"`
	Score     float64 `json:"score" yaml:"score"`
	MaxPoints float64 `json:"max_points" yaml:"max_points"`

	// Floor is the hard minimum for this criterion. A score below it fails
	// the whole report regardless of the total.
	Floor *float64 `json:"floor,omitempty" yaml:"floor,omitempty"`

	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// BelowFloor reports whether the criterion carries a floor and misses it.
func (c CriterionScore) BelowFloor() bool {
	return c.Floor != nil && c.Score < *c.Floor
}

// EvaluationReport is the outcome of scoring content against one rubric.
type EvaluationReport struct {
	Rubric     string           `json:"rubric" yaml:"rubric"`
	Criteria   []CriterionScore `json:"criteria" yaml:"criteria"`
	TotalScore float64          `json:"total_score" yaml:"total_score"`
	Threshold  float64          `json:"threshold" yaml:"threshold"`
	Passed     bool             `json:"passed" yaml:"passed"`

	// Feedback holds deficiency descriptions, consumed verbatim as revision
	// instructions by the next attempt.
	Feedback []string `json:"feedback" yaml:"feedback"`

	// Metrics carries rubric-specific measurements (coverage, counts, gates).
	Metrics map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// FloorViolated reports whether any floor-bearing criterion is below its floor.
func (r EvaluationReport) FloorViolated() bool {
	for _, c := range r.Criteria {
		if c.BelowFloor() {
			return true
		}
	}
	return false
}

// ViolatedFloors returns the keys of criteria that missed their floor.
func (r EvaluationReport) ViolatedFloors() []string {
	var keys []string
	for _, c := range r.Criteria {
		if c.BelowFloor() {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// Criterion returns the named criterion score, if present.
func (r EvaluationReport) Criterion(key string) (CriterionScore, bool) {
	for _, c := range r.Criteria {
		if c.Key == key {
			return c, true
		}
	}
	return CriterionScore{}, false
}

// Clone returns a deep copy of the report.
func (r EvaluationReport) Clone() EvaluationReport {
	out := r
	if r.Criteria != nil {
		out.Criteria = make([]CriterionScore, len(r.Criteria))
		for i, c := range r.Criteria {
			if c.Floor != nil {
				f := *c.Floor
				c.Floor = &f
			}
			out.Criteria[i] = c
		}
	}
	if r.Feedback != nil {
		out.Feedback = append([]string(nil), r.Feedback...)
	}
	if r.Metrics != nil {
		out.Metrics = make(map[string]float64, len(r.Metrics))
		for k, v := range r.Metrics {
			out.Metrics[k] = v
		}
	}
	return out
}
