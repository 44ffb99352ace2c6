package service

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// Bucket maps identity to 0..99 for feature. The feature name salts the hash
// so rollouts of different features are independent.
func Bucket(identity, feature string) int {
	sum := sha256.Sum256([]byte(feature + ":" + identity))
	return int(binary.BigEndian.Uint64(sum[:8]) % 100)
}

// ShouldUseNewPath is a pure function of its inputs: a given identity stays
// in the same bucket as percent changes, and joins once percent passes it.
func ShouldUseNewPath(identity, feature string, percent int) bool {
	return Bucket(identity, feature) < percent
}

// RolloutGate routes requests between the new and legacy invite paths.
type RolloutGate struct {
	Flags FlagAccessor
}

// Evaluate reports whether identity is served by the new path and the
// percent that decision used. Accessor errors resolve to the legacy path.
func (g *RolloutGate) Evaluate(ctx context.Context, identity, feature string) (bool, int) {
	percent, err := g.Flags.Percent(ctx, feature)
	if err != nil {
		return false, 0
	}
	return ShouldUseNewPath(identity, feature, percent), percent
}
