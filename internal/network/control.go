package network

import (
	"errors"
	"fmt"

	"github.com/MRamiBalles/LiveSortTable/server/internal/engine"
)

// Command types accepted from display surfaces.
const (
	CommandPause    = "pause"
	CommandResume   = "resume"
	CommandInterval = "interval"
	CommandSort     = "sort"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingInterval = errors.New("interval_ms is required")
)

// Command is a control request from the browser widget or the REST API.
type Command struct {
	Type       string `json:"type"` // "pause", "resume", "interval", "sort"
	IntervalMs *int   `json:"interval_ms,omitempty"`
	SortKey    string `json:"sort_key,omitempty"`
}

// ControlResult reports the board settings after a command.
type ControlResult struct {
	Changed  bool            `json:"changed"`
	Settings engine.Settings `json:"settings"`
}

// Apply runs cmd against board on behalf of actor. Out-of-range intervals are
// clamped, never rejected; unknown sort keys are rejected.
func Apply(board *engine.Board, cmd Command, actor string) (ControlResult, error) {
	var changed bool

	switch cmd.Type {
	case CommandPause:
		changed = board.Pause(actor)
	case CommandResume:
		changed = board.Resume(actor)
	case CommandInterval:
		if cmd.IntervalMs == nil {
			return ControlResult{}, ErrMissingInterval
		}
		_, changed = board.SetInterval(*cmd.IntervalMs, actor)
	case CommandSort:
		key, err := engine.ParseSortKey(cmd.SortKey)
		if err != nil {
			return ControlResult{}, err
		}
		if changed, err = board.SetSortKey(key, actor); err != nil {
			return ControlResult{}, err
		}
	default:
		return ControlResult{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}

	return ControlResult{Changed: changed, Settings: board.Settings()}, nil
}
