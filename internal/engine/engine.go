package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
)

// ErrNoMoves is returned when the side to search has no legal move.
var ErrNoMoves = errors.New("engine: no legal moves")

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth int // Maximum depth in plies
}

// Difficulty represents the AI difficulty level.
type Difficulty int

const (
	Easy   Difficulty = iota // 2 ply
	Medium                   // 3 ply
	Hard                     // 4 ply
)

// DifficultySettings maps difficulty to search limits.
var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 2},
	Medium: {Depth: 3},
	Hard:   {Depth: 4},
}

// String returns the difficulty name.
func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return "difficulty(" + strconv.Itoa(int(d)) + ")"
	}
}

// ParseDifficulty parses "easy", "medium" or "hard".
func ParseDifficulty(s string) (Difficulty, error) {
	for d := Easy; d <= Hard; d++ {
		if d.String() == s {
			return d, nil
		}
	}
	return Medium, errors.Errorf("unknown difficulty %q", s)
}

// DefaultHashMB is the size of the per-search hash table.
const DefaultHashMB = 4

// Engine is the chess AI engine. It keeps no position state between
// searches: every call builds its own hash table and killer moves, so one
// Engine may serve many games, though not concurrently.
type Engine struct {
	difficulty Difficulty
	hashMB     int
	book       *book.Book
	log        logr.Logger

	// Callbacks
	OnInfo     func(SearchInfo)
	OnProgress func(float32) // Fraction of root moves searched, 0 to 1
}

// NewEngine creates a new chess engine.
func NewEngine(log logr.Logger) *Engine {
	return &Engine{
		difficulty: Medium,
		hashMB:     DefaultHashMB,
		log:        log.WithName("engine"),
	}
}

// SetDifficulty sets the engine difficulty.
func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// Difficulty returns the engine difficulty.
func (e *Engine) Difficulty() Difficulty {
	return e.difficulty
}

// SetHashSize sets the per-search hash table size in MB.
func (e *Engine) SetHashSize(mb int) {
	if mb < 1 {
		mb = 1
	}
	e.hashMB = mb
}

// SetBook sets the opening book consulted before searching standard
// boards. nil disables it.
func (e *Engine) SetBook(bk *book.Book) {
	e.book = bk
}

// Search finds the best move for the side to move at the engine's difficulty.
func (e *Engine) Search(ctx context.Context, b *board.Board) (board.Move, error) {
	return e.SelectMove(ctx, b, b.SideToMove(), DifficultySettings[e.difficulty].Depth)
}

// SelectMove searches b for side to the given depth in plies and returns
// the best move. b is never modified; the search runs on a copy.
//
// The depths 1..depth are searched in turn, each seeding the move order of
// the next. Progress reported through OnProgress covers the final depth.
// If ctx is cancelled the best move of the deepest completed depth is
// returned together with the context's error (NoMove if none completed).
// Panics if depth < 1.
func (e *Engine) SelectMove(ctx context.Context, b *board.Board, side board.Color, depth int) (board.Move, error) {
	if depth < 1 {
		panic(fmt.Sprintf("engine: invalid search depth %d", depth))
	}
	return e.search(ctx, b, side, min(depth, MaxPly-1), nil)
}

// SelectMoveTimed searches b for side until tm runs out: no new depth is
// started past the optimum time and the search is cut off at the maximum.
// Running out of time is not an error once a depth has completed.
func (e *Engine) SelectMoveTimed(ctx context.Context, b *board.Board, side board.Color, tm *TimeManager) (board.Move, error) {
	timed, cancel := context.WithTimeout(ctx, tm.MaximumTime())
	defer cancel()

	m, err := e.search(timed, b, side, MaxPly-1, tm)
	if err != nil && ctx.Err() == nil && m != board.NoMove && errors.Is(err, context.DeadlineExceeded) {
		return m, nil
	}
	return m, err
}

func (e *Engine) search(ctx context.Context, b *board.Board, side board.Color, depth int, tm *TimeManager) (board.Move, error) {
	pos := b.Copy()
	if pos.SideToMove() != side {
		pos.SetSideToMove(side)
	}

	moves := pos.MoveList(side)
	if len(moves) == 0 {
		return board.NoMove, ErrNoMoves
	}

	if m, ok := e.book.Probe(pos); ok {
		e.log.V(1).Info("book move", "side", side.String(), "move", m.String())
		e.progress(1)
		return m, nil
	}

	s := newSearcher(ctx, e.hashMB)
	startTime := time.Now()
	bestMove := board.NoMove
	stability, changes := 0, 0
	e.progress(0)

	for d := 1; d <= depth; d++ {
		var progress func(int)
		if d == depth && tm == nil {
			progress = func(done int) {
				e.progress(float32(done) / float32(len(moves)))
			}
		}

		move, score, err := s.searchRoot(pos, moves, d, progress)
		if err != nil {
			e.log.V(1).Info("search stopped", "depth", d, "nodes", s.nodes, "reason", err.Error())
			return bestMove, err
		}
		if move == bestMove {
			stability++
		} else if bestMove != board.NoMove {
			stability = 0
			changes++
		}
		bestMove = move

		e.log.V(2).Info("iteration done", "depth", d, "score", ScoreToString(score), "nodes", s.nodes, "best", move.String())
		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    d,
				Score:    score,
				Nodes:    s.nodes,
				Time:     time.Since(startTime),
				PV:       s.tt.pv(pos, d),
				HashFull: s.tt.hashFull(),
			})
		}

		// Early termination: found mate
		if IsMateScore(score) && d < depth {
			e.progress(1)
			break
		}
		if tm != nil {
			tm.Update(stability, changes)
			if tm.PastOptimum() {
				e.progress(1)
				break
			}
		}
	}

	e.log.V(1).Info("search done", "side", side.String(), "depth", depth, "move", bestMove.String(), "nodes", s.nodes, "elapsed", time.Since(startTime).String())
	return bestMove, nil
}

func (e *Engine) progress(v float32) {
	if e.OnProgress != nil {
		e.OnProgress(v)
	}
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score > MateScore-MaxPly {
		mateIn := (MateScore - score + 1) / 2
		return "Mate in " + strconv.Itoa(mateIn)
	}
	if score < -MateScore+MaxPly {
		mateIn := (MateScore + score + 1) / 2
		return "Mated in " + strconv.Itoa(mateIn)
	}

	// Convert centipawns to pawns
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
