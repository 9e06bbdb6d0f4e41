// Package view turns a ranked board into rows a display can render as is.
package view

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/LiveSortTable/server/internal/domain/entity"
)

// Direction of the last change. Zero counts as up.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Row is one rendered leaderboard line.
type Row struct {
	Rank       int    `json:"rank"` // 1-based
	ID         string `json:"id"`
	Name       string `json:"name"`
	Score      int    `json:"score"`
	ScoreText  string `json:"score_text"`
	Change     int    `json:"change"`
	ChangeText string `json:"change_text"`
	Direction  string `json:"direction"`
	UpdatedAgo string `json:"updated_ago"`
	Moved      int    `json:"moved"` // Places gained since the previous projection, negative when dropped
}

// Positions maps entity ID to 1-based rank.
type Positions map[string]int

// Project builds rows for ranked as of now. prev holds the positions from the
// previous projection (nil on the first frame) and drives Row.Moved.
// The returned Positions feed the next call.
func Project(ranked []entity.Entity, now time.Time, prev Positions) ([]Row, Positions) {
	rows := make([]Row, len(ranked))
	pos := make(Positions, len(ranked))

	for i, e := range ranked {
		rank := i + 1
		pos[e.ID] = rank

		moved := 0
		if before, ok := prev[e.ID]; ok {
			moved = before - rank
		}

		rows[i] = Row{
			Rank:       rank,
			ID:         e.ID,
			Name:       e.Name,
			Score:      e.Score,
			ScoreText:  humanize.Comma(int64(e.Score)),
			Change:     e.LastDelta,
			ChangeText: SignedChange(e.LastDelta),
			Direction:  ChangeDirection(e.LastDelta),
			UpdatedAgo: TimeAgo(now.Sub(e.LastUpdatedAt)),
			Moved:      moved,
		}
	}
	return rows, pos
}

// SignedChange always carries a sign: "+0", "+12", "-7".
func SignedChange(delta int) string {
	if delta >= 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

// ChangeDirection reports "up" for non-negative deltas and "down" otherwise.
func ChangeDirection(delta int) string {
	if delta < 0 {
		return DirectionDown
	}
	return DirectionUp
}

// TimeAgo renders elapsed time with whole-unit truncation and no unit above hours.
func TimeAgo(elapsed time.Duration) string {
	switch {
	case elapsed < 2*time.Second:
		return "just now"
	case elapsed < time.Minute:
		return fmt.Sprintf("%ds ago", int(elapsed/time.Second))
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed/time.Minute))
	default:
		return fmt.Sprintf("%dh ago", int(elapsed/time.Hour))
	}
}
