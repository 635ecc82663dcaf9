package engine

import (
	"slices"

	"github.com/hailam/chesscore/internal/board"
)

// Move ordering priorities
const (
	HashMoveScore   = 10000000 // Hash move gets highest priority
	GoodCaptureBase = 1000000  // Base score for captures
	PromotionBase   = 950000   // Quiet promotions
	KillerScore1    = 900000   // First killer move
	KillerScore2    = 800000   // Second killer move
)

// MVV-LVA (Most Valuable Victim - Least Valuable Attacker) scores
// Higher score = search first
var mvvLva = [6][6]int{
	//       P    N    B    R    Q    K  (attacker)
	/* P */ {15, 14, 14, 13, 12, 11}, // Pawn victim
	/* N */ {25, 24, 24, 23, 22, 21}, // Knight victim
	/* B */ {35, 34, 34, 33, 32, 31}, // Bishop victim
	/* R */ {45, 44, 44, 43, 42, 41}, // Rook victim
	/* Q */ {55, 54, 54, 53, 52, 51}, // Queen victim
	/* K */ {0, 0, 0, 0, 0, 0},       // King can't be captured
}

// moveOrderer sorts moves so that alpha-beta finds cutoffs early. Its state
// lives for one search only.
type moveOrderer struct {
	// Killer moves (quiet moves that caused beta cutoffs)
	killers [MaxPly][2]board.Move
}

func newMoveOrderer() *moveOrderer {
	mo := &moveOrderer{}
	for i := range mo.killers {
		mo.killers[i] = [2]board.Move{board.NoMove, board.NoMove}
	}
	return mo
}

// scoreMove returns the ordering score of m in position b.
func (mo *moveOrderer) scoreMove(b *board.Board, m board.Move, ply int, hashMove board.Move) int {
	if m == hashMove {
		return HashMoveScore
	}

	score := 0
	if m.IsCapture() {
		attacker := b.PieceAt(m.From).Type()
		score = GoodCaptureBase + mvvLva[m.Captured.Type()][attacker]*100
	}
	if m.IsPromotion() {
		if score == 0 {
			score = PromotionBase
		}
		score += board.PieceValue[m.Promotion] / 10
	}
	if score != 0 {
		return score
	}

	if ply < MaxPly {
		if m == mo.killers[ply][0] {
			return KillerScore1
		}
		if m == mo.killers[ply][1] {
			return KillerScore2
		}
	}
	return 0
}

// sort orders moves best first. Moves with equal scores keep their
// generation order, so the search is deterministic.
func (mo *moveOrderer) sort(b *board.Board, moves []board.Move, ply int, hashMove board.Move) {
	type scored struct {
		move  board.Move
		score int
	}
	buf := make([]scored, len(moves))
	for i, m := range moves {
		buf[i] = scored{m, mo.scoreMove(b, m, ply, hashMove)}
	}
	slices.SortStableFunc(buf, func(a, c scored) int {
		return c.score - a.score
	})
	for i := range buf {
		moves[i] = buf[i].move
	}
}

// addKiller records a quiet move that caused a beta cutoff at ply.
func (mo *moveOrderer) addKiller(ply int, m board.Move) {
	if ply >= MaxPly || !m.IsQuiet() || m == mo.killers[ply][0] {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}
