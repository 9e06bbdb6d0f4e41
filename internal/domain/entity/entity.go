// Package entity defines the leaderboard participants and the set they live in.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package entity

import (
	"errors"
	"fmt"
	"time"
)

// Score bounds. Every entity stays inside [MinScore, MaxScore] after every tick.
const (
	MinScore = 0
	MaxScore = 9999
)

// Seed range for freshly created entities. MaxSeedScore is exclusive.
const (
	MinSeedScore = 400
	MaxSeedScore = 1000
)

// DefaultNames is the fixed roster the board is seeded with.
var DefaultNames = []string{
	"Aurora", "Blaze", "Cobalt", "Dynamo",
	"Echo", "Falcon", "Glacier", "Helix",
	"Ion", "Jade", "Kestrel", "Lumen",
}

// ErrDuplicateID is returned by Validate when two entities share an identifier.
var ErrDuplicateID = errors.New("duplicate entity id")

// ErrScoreOutOfRange is returned by Validate when a score escaped its bounds.
var ErrScoreOutOfRange = errors.New("score out of range")

// Entity is one ranked participant.
type Entity struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Score         int       `json:"score"`
	LastDelta     int       `json:"last_delta"` // Pre-score-clamp delta of the most recent tick
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Set is the ordered-by-creation collection of entities. Membership is fixed once seeded.
type Set []Entity

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// Validate checks the identifier and score invariants.
func (s Set) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, e := range s {
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}
		seen[e.ID] = struct{}{}

		if e.Score < MinScore || e.Score > MaxScore {
			return fmt.Errorf("%w: %s has %d", ErrScoreOutOfRange, e.ID, e.Score)
		}
	}
	return nil
}

// IDs returns the identifiers in creation order.
func (s Set) IDs() []string {
	ids := make([]string, len(s))
	for i, e := range s {
		ids[i] = e.ID
	}
	return ids
}

// ClampScore saturates a candidate score at the score bounds.
func ClampScore(score int) int {
	return Clamp(score, MinScore, MaxScore)
}

// Clamp restricts v to the closed interval [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
