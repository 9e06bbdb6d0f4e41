package engine

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/LiveSortTable/server/internal/domain/entity"
)

// Per-tick delta bounds. Applied before the score clamp.
const (
	MinDelta = -40
	MaxDelta = 60
)

// DriftParams shapes the random walk. Only the delta and score bounds are fixed;
// everything here is tunable.
type DriftParams struct {
	SpikeChance float64 // Probability of a spike per entity per tick
	SpikeMin    int     // Inclusive
	SpikeMax    int     // Exclusive
	DriftScale  float64
	DriftOffset float64
}

// DefaultDrift yields a 10% chance of a +/-[10,40) spike on top of a rounded
// drift spread over roughly [-3.6, +4.4].
var DefaultDrift = DriftParams{
	SpikeChance: 0.10,
	SpikeMin:    10,
	SpikeMax:    40,
	DriftScale:  8,
	DriftOffset: -3.6,
}

// RawDelta draws one unclamped step. Draw order: spike roll, spike sign,
// spike magnitude (only when spiking), drift.
func (p DriftParams) RawDelta(rng Rand) int {
	spike := 0
	if rng.Float64() < p.SpikeChance {
		sign := 1
		if rng.Float64() < 0.5 {
			sign = -1
		}
		span := p.SpikeMax - p.SpikeMin
		magnitude := p.SpikeMin
		if span > 0 {
			magnitude += int(rng.Float64() * float64(span))
		}
		spike = sign * magnitude
	}

	// Round half up.
	drift := int(math.Floor(rng.Float64()*p.DriftScale + p.DriftOffset + 0.5))
	return spike + drift
}

// Advance applies a raw step to one entity. The delta is clamped to its own
// range first and recorded as is; the score clamp afterwards does not touch it.
func Advance(e entity.Entity, raw int, now time.Time) entity.Entity {
	delta := entity.Clamp(raw, MinDelta, MaxDelta)
	e.Score = entity.ClampScore(e.Score + delta)
	e.LastDelta = delta
	e.LastUpdatedAt = now
	return e
}

// Tick advances every entity by one step using DefaultDrift.
func Tick(set entity.Set, now time.Time, rng Rand) entity.Set {
	return TickWith(set, now, rng, DefaultDrift)
}

// TickWith advances every entity by one step. The input set is never mutated;
// every entity in the result shares the same LastUpdatedAt.
func TickWith(set entity.Set, now time.Time, rng Rand, params DriftParams) entity.Set {
	next := make(entity.Set, len(set))
	for i, e := range set {
		next[i] = Advance(e, params.RawDelta(rng), now)
	}
	return next
}

// Seed creates one entity per name with a random starting score in
// [MinSeedScore, MaxSeedScore).
func Seed(names []string, rng Rand, now time.Time) entity.Set {
	span := entity.MaxSeedScore - entity.MinSeedScore
	set := make(entity.Set, len(names))
	for i, name := range names {
		set[i] = entity.Entity{
			ID:            uuid.NewString(),
			Name:          name,
			Score:         entity.MinSeedScore + int(rng.Float64()*float64(span)),
			LastDelta:     0,
			LastUpdatedAt: now,
		}
	}
	return set
}
