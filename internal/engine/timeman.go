package engine

import (
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// ClockLimits holds the clock state sent with a move request.
type ClockLimits struct {
	Time      [2]time.Duration // Remaining time for each color
	Inc       [2]time.Duration // Increment per move for each color
	MovesToGo int              // Moves until the next time control (0 = sudden death)
	MoveTime  time.Duration    // Fixed time per move, overrides the clock
}

// TimeManager decides how long a timed search may run. The search stops
// starting new iterations after the optimum time and is cut off at the
// maximum.
type TimeManager struct {
	baseOptimum time.Duration
	optimumTime time.Duration
	maximumTime time.Duration
	startTime   time.Time
}

// NewTimeManager allocates time for a move by color us at game ply ply
// (half-moves played) and starts the clock.
func NewTimeManager(limits ClockLimits, us board.Color, ply int) *TimeManager {
	tm := &TimeManager{startTime: time.Now()}

	// Fixed move time mode
	if limits.MoveTime > 0 {
		tm.baseOptimum = limits.MoveTime
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		return tm
	}

	timeLeft := limits.Time[us]
	if timeLeft <= 0 {
		tm.baseOptimum = time.Hour
		tm.optimumTime = time.Hour
		tm.maximumTime = time.Hour
		return tm
	}
	inc := limits.Inc[us]

	// Estimate moves to go
	mtg := limits.MovesToGo
	if mtg == 0 {
		// Sudden death: expect fewer moves as the game goes on
		mtg = min(max(50-ply/4, 10), 50)
	}

	optimum := timeLeft/time.Duration(mtg) + inc*9/10
	if ply < 8 {
		optimum = optimum * 85 / 100
	}

	// Maximum: 5x optimum or 80% of remaining, whichever is smaller
	maximum := min(optimum*5, timeLeft*8/10)

	tm.maximumTime = max(maximum, 50*time.Millisecond)
	tm.baseOptimum = max(optimum, 10*time.Millisecond)
	tm.optimumTime = min(tm.baseOptimum, tm.maximumTime)
	return tm
}

// Elapsed returns the time elapsed since the clock started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// PastOptimum returns true once the optimum time has passed.
func (tm *TimeManager) PastOptimum() bool {
	return tm.Elapsed() >= tm.optimumTime
}

// Update rescales the optimum after an iteration. stability counts the
// consecutive iterations that kept the best move and changes counts how
// often it changed: a settled search stops early, an unsettled one gets
// more time, up to the maximum.
func (tm *TimeManager) Update(stability, changes int) {
	percent := time.Duration(100)
	switch {
	case changes >= 4:
		percent = 200
	case changes >= 2:
		percent = 150
	case stability >= 6:
		percent = 40
	case stability >= 4:
		percent = 60
	case stability >= 2:
		percent = 80
	}
	tm.optimumTime = min(tm.baseOptimum*percent/100, tm.maximumTime)
}
