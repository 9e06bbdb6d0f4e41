// Package engine contains the board's heartbeat and simulation logic.
//
// Tick is a pure function over an entity set; Rank is a pure projection of
// one. Board owns the current set, a Ticker that calls Tick on a fixed,
// cancellable cadence, and the settings that control both.
package engine
