package engine

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
)

func TestTimeManagerAllocation(t *testing.T) {
	tests := []struct {
		name    string
		limits  ClockLimits
		us      board.Color
		ply     int
		optimum time.Duration
		maximum time.Duration
	}{
		{
			name:    "fixed move time",
			limits:  ClockLimits{MoveTime: 300 * time.Millisecond, Time: [2]time.Duration{time.Minute, time.Minute}},
			optimum: 300 * time.Millisecond,
			maximum: 300 * time.Millisecond,
		},
		{
			name:    "no clock",
			optimum: time.Hour,
			maximum: time.Hour,
		},
		{
			name:    "sudden death, middlegame",
			limits:  ClockLimits{Time: [2]time.Duration{0, 60 * time.Second}},
			us:      board.Black,
			ply:     40,
			optimum: 60 * time.Second / 40,
			maximum: 60 * time.Second / 40 * 5,
		},
		{
			name:    "moves to go with increment",
			limits:  ClockLimits{Time: [2]time.Duration{10 * time.Second, 0}, Inc: [2]time.Duration{time.Second, 0}, MovesToGo: 10},
			ply:     20,
			optimum: time.Second + 900*time.Millisecond,
			maximum: 8 * time.Second,
		},
		{
			name:    "opening discount",
			limits:  ClockLimits{Time: [2]time.Duration{50 * time.Second, 0}},
			ply:     0,
			optimum: time.Second * 85 / 100,
			maximum: time.Second * 85 / 100 * 5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tm := NewTimeManager(tc.limits, tc.us, tc.ply)
			assert.Equal(t, tc.optimum, tm.OptimumTime())
			assert.Equal(t, tc.maximum, tm.MaximumTime())
		})
	}
}

func TestTimeManagerUpdate(t *testing.T) {
	tm := NewTimeManager(ClockLimits{Time: [2]time.Duration{50 * time.Second, 0}}, board.White, 100)
	base := tm.OptimumTime()
	require.Equal(t, 10*time.Second, tm.MaximumTime())

	tm.Update(6, 0)
	assert.Equal(t, base*40/100, tm.OptimumTime())
	tm.Update(0, 2)
	assert.Equal(t, base*150/100, tm.OptimumTime())
	tm.Update(0, 0)
	assert.Equal(t, base, tm.OptimumTime())
}

func TestSelectMoveTimed(t *testing.T) {
	b := board.NewStandardBoard()
	eng := NewEngine(logr.Discard())

	tm := NewTimeManager(ClockLimits{MoveTime: 100 * time.Millisecond}, board.White, 0)
	start := time.Now()
	m, err := eng.SelectMoveTimed(context.Background(), b, board.White, tm)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err = b.ParseMove(m.String())
	assert.NoError(t, err)
}

func TestSelectMoveTimedFindsMate(t *testing.T) {
	b := mustFEN(t, "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1")
	eng := NewEngine(logr.Discard())

	tm := NewTimeManager(ClockLimits{Time: [2]time.Duration{10 * time.Second, 10 * time.Second}}, board.White, 60)
	m, err := eng.SelectMoveTimed(context.Background(), b, board.White, tm)
	require.NoError(t, err)
	assert.Equal(t, "a1a8", m.String())
}

func TestSelectMoveTimedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tm := NewTimeManager(ClockLimits{MoveTime: time.Second}, board.White, 0)
	_, err := NewEngine(logr.Discard()).SelectMoveTimed(ctx, board.NewStandardBoard(), board.White, tm)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBookMove(t *testing.T) {
	start := board.NewStandardBoard()
	bk := book.New()
	m, err := start.ParseMove("b1c3")
	require.NoError(t, err)
	require.NoError(t, bk.Add(start, m, 1))

	eng := NewEngine(logr.Discard())
	eng.SetBook(bk)

	var progress []float32
	eng.OnProgress = func(v float32) { progress = append(progress, v) }

	got, err := eng.SelectMove(context.Background(), start, board.White, 3)
	require.NoError(t, err)
	assert.Equal(t, "b1c3", got.String())
	assert.Equal(t, []float32{1}, progress)

	// Out of book the engine searches
	after := start.Copy()
	after.Move(m)
	got, err = eng.SelectMove(context.Background(), after, board.Black, 1)
	require.NoError(t, err)
	assert.NotEqual(t, board.NoMove, got)

	// Without a book the start position is searched too
	eng.SetBook(nil)
	progress = nil
	_, err = eng.SelectMove(context.Background(), start, board.White, 1)
	require.NoError(t, err)
	require.NotEmpty(t, progress)
	assert.Equal(t, float32(0), progress[0])
	assert.Equal(t, float32(1), progress[len(progress)-1])
}
