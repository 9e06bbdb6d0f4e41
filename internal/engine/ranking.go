package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/MRamiBalles/LiveSortTable/server/internal/domain/entity"
)

// SortKey selects the field the board is ordered by.
type SortKey string

const (
	SortByScore  SortKey = "score"
	SortByChange SortKey = "change"
)

// ErrUnknownSortKey is returned when a control surface receives an unsupported key.
var ErrUnknownSortKey = errors.New("unknown sort key")

// ParseSortKey validates a user-supplied sort key.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortByScore, SortByChange:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
}

// Label is the human name used in notices.
func (k SortKey) Label() string {
	if k == SortByChange {
		return "Change"
	}
	return "Score"
}

func (k SortKey) value(e entity.Entity) int {
	if k == SortByChange {
		return e.LastDelta
	}
	return e.Score
}

// Rank returns the display order for set: descending by key, ties broken by
// score descending, remaining ties kept in creation order. The input is not modified.
func Rank(set entity.Set, key SortKey) []entity.Entity {
	ranked := make([]entity.Entity, len(set))
	copy(ranked, set)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := key.value(ranked[i]), key.value(ranked[j])
		if a != b {
			return a > b
		}
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
