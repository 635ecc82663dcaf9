// Package engine implements the chess AI search engine.
package engine

import (
	"sync"

	"github.com/hailam/chesscore/internal/board"
)

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

// Piece values array for quick lookup. Kings are never captured and count
// for nothing.
var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0, 0}

// Centralization weights per piece type
var centerWeight = [6]int{0, 4, 3, 1, 1, 0} // Pawn, Knight, Bishop, Rook, Queen, King

const (
	pawnAdvanceBonus = 8  // Per rank advanced
	bishopPairBonus  = 25 // Having two bishops
)

// pieceSquareTables holds the positional bonus of every piece type on every
// square, seen from White. Black uses the rank-mirrored square.
type pieceSquareTables struct {
	dims   board.Dims
	values [6][]int
}

var pstCache sync.Map // board.Dims -> *pieceSquareTables

func tablesFor(d board.Dims) *pieceSquareTables {
	if t, ok := pstCache.Load(d); ok {
		return t.(*pieceSquareTables)
	}
	t, _ := pstCache.LoadOrStore(d, newPieceSquareTables(d))
	return t.(*pieceSquareTables)
}

// newPieceSquareTables derives the tables from the board size: pieces gain
// for standing near the center, pawns for every rank they have advanced.
func newPieceSquareTables(d board.Dims) *pieceSquareTables {
	t := &pieceSquareTables{dims: d}
	maxDist := (d.Files - 1) + (d.Ranks - 1)

	for pt := board.Pawn; pt <= board.King; pt++ {
		t.values[pt] = make([]int, d.Size())
		for i := range t.values[pt] {
			sq := d.Square(i)
			// Doubled coordinates keep the center on a whole number
			dist := abs(2*sq.File-(d.Files-1)) + abs(2*sq.Rank-(d.Ranks-1))
			v := (maxDist - dist) * centerWeight[pt] / 2
			if pt == board.Pawn {
				v += d.RelativeRank(sq, board.White) * pawnAdvanceBonus
			}
			t.values[pt][i] = v
		}
	}
	return t
}

// bonus returns the table value of a piece of color c on sq.
func (t *pieceSquareTables) bonus(pt board.PieceType, c board.Color, sq board.Square) int {
	if c == board.Black {
		sq.Rank = t.dims.Ranks - 1 - sq.Rank
	}
	return t.values[pt][sq.Rank*t.dims.Files+sq.File]
}

// Evaluate returns the static evaluation of b in centipawns from side's
// point of view. It is computed as White minus Black and negated for Black,
// so Evaluate(b, White) == -Evaluate(b, Black).
func Evaluate(b *board.Board, side board.Color) int {
	d := b.Dims()
	t := tablesFor(d)

	score := 0
	var bishops [2]int
	for i := 0; i < d.Size(); i++ {
		sq := d.Square(i)
		p := b.PieceAt(sq)
		if p == board.NoPiece {
			continue
		}
		pt, c := p.Type(), p.Color()
		v := pieceValues[pt] + t.bonus(pt, c, sq)
		if pt == board.Bishop {
			bishops[c]++
		}
		if c == board.White {
			score += v
		} else {
			score -= v
		}
	}

	if bishops[board.White] >= 2 {
		score += bishopPairBonus
	}
	if bishops[board.Black] >= 2 {
		score -= bishopPairBonus
	}

	if side == board.Black {
		return -score
	}
	return score
}

// EvaluateMaterial returns only the material balance from White's view.
func EvaluateMaterial(b *board.Board) int {
	d := b.Dims()
	score := 0
	for i := 0; i < d.Size(); i++ {
		p := b.PieceAt(d.Square(i))
		if p == board.NoPiece {
			continue
		}
		if p.Color() == board.White {
			score += pieceValues[p.Type()]
		} else {
			score -= pieceValues[p.Type()]
		}
	}
	return score
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
