package domain

import "time"

// RolloutFlag controls the share of traffic served by a feature's new path.
type RolloutFlag struct {
	FeatureName string
	Percent     int // 0..100
	UpdatedAt   time.Time
	UpdatedBy   string
}

// RolloutChange is an audit record of a percent change.
type RolloutChange struct {
	ID          string
	FeatureName string
	FromPercent int
	ToPercent   int
	Reason      string
	Actor       string
	Automatic   bool
	CreatedAt   time.Time
}

// ClampPercent bounds p to 0..100.
func ClampPercent(p int) int {
	return min(max(p, 0), 100)
}
