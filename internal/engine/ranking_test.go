package engine

import (
	"errors"
	"testing"

	"github.com/MRamiBalles/LiveSortTable/server/internal/domain/entity"
)

func ids(ranked []entity.Entity) []string {
	out := make([]string, len(ranked))
	for i, e := range ranked {
		out[i] = e.ID
	}
	return out
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRankByScoreKeepsTiesStable(t *testing.T) {
	set := entity.Set{
		{ID: "p500", Score: 500},
		{ID: "p900a", Score: 900},
		{ID: "p900b", Score: 900},
		{ID: "p300", Score: 300},
	}

	got := ids(Rank(set, SortByScore))
	want := []string{"p900a", "p900b", "p500", "p300"}
	if !sameOrder(got, want) {
		t.Errorf("Rank by score = %v, want %v", got, want)
	}
}

func TestRankByChangeBreaksTiesOnScore(t *testing.T) {
	set := entity.Set{
		{ID: "low", Score: 100, LastDelta: 5},
		{ID: "top", Score: 50, LastDelta: 30},
		{ID: "high", Score: 800, LastDelta: 5},
		{ID: "neg", Score: 999, LastDelta: -12},
		{ID: "mid", Score: 400, LastDelta: 5},
	}

	got := ids(Rank(set, SortByChange))
	want := []string{"top", "high", "mid", "low", "neg"}
	if !sameOrder(got, want) {
		t.Errorf("Rank by change = %v, want %v", got, want)
	}
}

func TestRankByChangeStableOnFullTie(t *testing.T) {
	set := entity.Set{
		{ID: "first", Score: 700, LastDelta: 3},
		{ID: "second", Score: 700, LastDelta: 3},
		{ID: "third", Score: 700, LastDelta: 3},
	}

	got := ids(Rank(set, SortByChange))
	if !sameOrder(got, []string{"first", "second", "third"}) {
		t.Errorf("Expected creation order on full tie, got %v", got)
	}
}

func TestRankIsDeterministicAndPure(t *testing.T) {
	set := Seed(entity.DefaultNames, NewRand(9), t0)
	set = Tick(set, t0, NewRand(10))
	before := set.Clone()

	for _, key := range []SortKey{SortByScore, SortByChange} {
		first := ids(Rank(set, key))
		second := ids(Rank(set, key))
		if !sameOrder(first, second) {
			t.Errorf("%s: successive ranks differ: %v vs %v", key, first, second)
		}
	}

	for i := range set {
		if set[i] != before[i] {
			t.Fatalf("Rank mutated input at %d", i)
		}
	}
}

func TestRankEmpty(t *testing.T) {
	got := Rank(entity.Set{}, SortByScore)
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", got)
	}
}

func TestParseSortKey(t *testing.T) {
	for _, ok := range []string{"score", "change"} {
		if _, err := ParseSortKey(ok); err != nil {
			t.Errorf("ParseSortKey(%q) unexpected error: %v", ok, err)
		}
	}
	if _, err := ParseSortKey("name"); !errors.Is(err, ErrUnknownSortKey) {
		t.Errorf("Expected ErrUnknownSortKey, got %v", err)
	}
}
