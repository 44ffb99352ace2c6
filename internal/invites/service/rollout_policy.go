package service

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// RolloutStage is one step of a staged rollout and the bar traffic at this
// percent must clear before moving to the next stage.
type RolloutStage struct {
	Percent              int     `yaml:"percent"`
	AdvanceMinConversion float64 `yaml:"advance_min_conversion"`
	AdvanceMaxErrorRate  float64 `yaml:"advance_max_error_rate"`
}

// RolloutPolicy drives RolloutMonitor decisions.
type RolloutPolicy struct {
	Stages []RolloutStage `yaml:"stages"`

	// Rollback triggers; either one forces the flag to RollbackTo.
	RollbackBelowConversion float64 `yaml:"rollback_below_conversion"`
	RollbackAboveErrorRate  float64 `yaml:"rollback_above_error_rate"`
	RollbackTo              int     `yaml:"rollback_to"`

	Window           time.Duration `yaml:"window"`
	MinSamples       int           `yaml:"min_samples"`
	MinStageDuration time.Duration `yaml:"min_stage_duration"`

	// CountRateLimited includes rate_limited failures in the error rate.
	CountRateLimited bool `yaml:"count_rate_limited"`
}

func DefaultRolloutPolicy() RolloutPolicy {
	return RolloutPolicy{
		Stages: []RolloutStage{
			{Percent: 10, AdvanceMinConversion: 0.65, AdvanceMaxErrorRate: 0.10},
			{Percent: 25, AdvanceMinConversion: 0.65, AdvanceMaxErrorRate: 0.10},
			{Percent: 50, AdvanceMinConversion: 0.65, AdvanceMaxErrorRate: 0.10},
			{Percent: 100},
		},
		RollbackBelowConversion: 0.50,
		RollbackAboveErrorRate:  0.25,
		RollbackTo:              0,
		Window:                  time.Hour,
		MinSamples:              50,
		MinStageDuration:        30 * time.Minute,
	}
}

// LoadRolloutPolicy reads a YAML policy. Fields absent from the file keep
// their defaults.
func LoadRolloutPolicy(path string) (RolloutPolicy, error) {
	policy := DefaultRolloutPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		return RolloutPolicy{}, fmt.Errorf("read rollout policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return RolloutPolicy{}, fmt.Errorf("parse rollout policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return RolloutPolicy{}, err
	}
	return policy, nil
}

// Validate checks stages ascend within 1..100 and thresholds are ratios.
func (p RolloutPolicy) Validate() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("rollout policy: no stages")
	}
	prev := 0
	for _, s := range p.Stages {
		if s.Percent <= prev || s.Percent > 100 {
			return fmt.Errorf("rollout policy: stages must ascend within 1..100, got %d after %d", s.Percent, prev)
		}
		if !ratio(s.AdvanceMinConversion) || !ratio(s.AdvanceMaxErrorRate) {
			return fmt.Errorf("rollout policy: stage %d thresholds must be within 0..1", s.Percent)
		}
		prev = s.Percent
	}
	if !ratio(p.RollbackBelowConversion) || !ratio(p.RollbackAboveErrorRate) {
		return fmt.Errorf("rollout policy: rollback thresholds must be within 0..1")
	}
	if p.RollbackTo < 0 || p.RollbackTo >= p.Stages[0].Percent {
		return fmt.Errorf("rollout policy: rollback_to must be below the first stage")
	}
	if p.Window <= 0 {
		return fmt.Errorf("rollout policy: window must be positive")
	}
	return nil
}

// stageFor returns the stage governing percent: the highest stage at or
// below it, or the first stage when percent sits below every stage.
func (p RolloutPolicy) stageFor(percent int) RolloutStage {
	i := slices.IndexFunc(p.Stages, func(s RolloutStage) bool { return s.Percent > percent })
	switch i {
	case 0:
		return p.Stages[0]
	case -1:
		return p.Stages[len(p.Stages)-1]
	default:
		return p.Stages[i-1]
	}
}

// nextStage returns the first stage above percent.
func (p RolloutPolicy) nextStage(percent int) (RolloutStage, bool) {
	for _, s := range p.Stages {
		if s.Percent > percent {
			return s, true
		}
	}
	return RolloutStage{}, false
}

func ratio(f float64) bool { return f >= 0 && f <= 1 }
