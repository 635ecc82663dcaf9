package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hailam/chesscore/internal/board"
)

// mirror returns b with the ranks flipped and the colors swapped.
func mirror(b *board.Board) *board.Board {
	d := b.Dims()
	m := board.NewBoard(d)
	for i := 0; i < d.Size(); i++ {
		sq := d.Square(i)
		p := b.PieceAt(sq)
		if p == board.NoPiece {
			continue
		}
		to := board.NewSquare(sq.File, d.Ranks-1-sq.Rank)
		m.Put(to, board.NewPiece(p.Type(), p.Color().Other()))
	}
	m.SetSideToMove(b.SideToMove().Other())
	return m
}

func TestEvaluateSymmetry(t *testing.T) {
	fens := []string{
		board.StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1",
		"rnqknr/pppppp/6/6/PPPPPP/RNQKNR w - - 0 1",
		"rnbqkbnqnr/pppppppppp/10/10/10/10/PPPPPPPPPP/RNBQKBNQNR w KQkq - 0 1",
	}

	for _, fen := range fens {
		b := mustFEN(t, fen)
		assert.Equal(t, Evaluate(b, board.White), -Evaluate(b, board.Black), fen)
		assert.Equal(t, Evaluate(b, board.White), Evaluate(mirror(b), board.Black), fen)
	}
}

func TestEvaluateStartIsBalanced(t *testing.T) {
	assert.Equal(t, 0, Evaluate(board.NewStandardBoard(), board.White))
	assert.Equal(t, 0, EvaluateMaterial(board.NewStandardBoard()))
}

func TestEvaluateMaterial(t *testing.T) {
	b := mustFEN(t, "4k3/8/8/3q4/8/8/8/3RK3 w - - 0 1")
	assert.Equal(t, RookValue-QueenValue, EvaluateMaterial(b))
	assert.Less(t, Evaluate(b, board.White), 0)
	assert.Greater(t, Evaluate(b, board.Black), 0)
}

func TestEvaluateRewardsCenterAndAdvance(t *testing.T) {
	corner := mustFEN(t, "4k3/8/8/8/8/8/8/N3K3 w - - 0 1")
	center := mustFEN(t, "4k3/8/8/8/3N4/8/8/4K3 w - - 0 1")
	assert.Greater(t, Evaluate(center, board.White), Evaluate(corner, board.White))

	back := mustFEN(t, "4k3/8/8/8/8/8/P7/4K3 w - - 0 1")
	ahead := mustFEN(t, "4k3/8/P7/8/8/8/8/4K3 w - - 0 1")
	assert.Greater(t, Evaluate(ahead, board.White), Evaluate(back, board.White))
}
