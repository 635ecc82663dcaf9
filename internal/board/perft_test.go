package board

import (
	"testing"

	"github.com/dylhunn/dragontoothmg"
)

// oraclePerft counts leaf nodes with dragontoothmg's generator.
func oraclePerft(b *dragontoothmg.Board, depth int) int64 {
	if depth == 0 {
		return 1
	}
	moves := b.GenerateLegalMoves()
	if depth == 1 {
		return int64(len(moves))
	}
	var nodes int64
	for _, m := range moves {
		unapply := b.Apply(m)
		nodes += oraclePerft(b, depth-1)
		unapply()
	}
	return nodes
}

func mustFEN(t testing.TB, fen string) *Board {
	t.Helper()
	b, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("Failed to parse FEN %q: %v", fen, err)
	}
	return b
}

// TestPerftStartingPosition tests move generation from the starting position.
func TestPerftStartingPosition(t *testing.T) {
	b := NewStandardBoard()

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 20},
		{2, 400},
		{3, 8902},
		{4, 197281},
	}

	for _, tc := range tests {
		if testing.Short() && tc.depth > 3 {
			continue
		}
		got := Perft(b, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// TestPerftKiwipete tests the famous Kiwipete position with many edge cases.
func TestPerftKiwipete(t *testing.T) {
	b := mustFEN(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -")

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 48},
		{2, 2039},
		{3, 97862},
	}

	for _, tc := range tests {
		got := Perft(b, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// TestPerftPosition3 tests en passant edge cases.
func TestPerftPosition3(t *testing.T) {
	b := mustFEN(t, "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -")

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 14},
		{2, 191},
		{3, 2812},
		{4, 43238},
	}

	for _, tc := range tests {
		got := Perft(b, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// TestPerftEnPassantPin: the e4 pawn may not take en passant on d3 because
// removing both pawns from the fourth rank exposes the a4 king to the h4 rook.
func TestPerftEnPassantPin(t *testing.T) {
	b := mustFEN(t, "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")

	for _, m := range b.MoveList(Black) {
		if m.IsEnPassant() {
			t.Errorf("en passant capture %v should be illegal", m)
		}
	}
	if got := Perft(b, 1); got != 6 {
		t.Errorf("perft(1) = %d, want 6", got)
	}
}

// TestPerftMatchesOracle compares node counts with an independent bitboard
// move generator on positions full of promotions, castling and pins.
func TestPerftMatchesOracle(t *testing.T) {
	fens := []string{
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
		"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
		"n1n5/PPPk4/8/8/8/8/4Kppp/5N1N b - - 0 1",
	}

	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			b := mustFEN(t, fen)
			oracle := dragontoothmg.ParseFen(fen)
			for depth := 1; depth <= 3; depth++ {
				want := oraclePerft(&oracle, depth)
				if got := Perft(b, depth); got != want {
					t.Errorf("perft(%d) = %d, oracle says %d", depth, got, want)
				}
			}
		})
	}
}

// TestPerftVariantBoard runs perft on a 6x6 board with no bishops or
// castling, checked against hand-counted first-ply totals.
func TestPerftVariantBoard(t *testing.T) {
	b := mustFEN(t, "rnqknr/pppppp/6/6/PPPPPP/RNQKNR w - - 0 1")

	if got := b.Dims(); got != (Dims{Files: 6, Ranks: 6}) {
		t.Fatalf("dims = %v, want 6x6", got)
	}

	// Six pawns with single and double pushes plus two knights with two
	// jumps each.
	if got := Perft(b, 1); got != 16 {
		t.Errorf("perft(1) = %d, want 16", got)
	}
	// Pushed pawns block black pushes on their file and can be captured.
	if got := Perft(b, 2); got != 244 {
		t.Errorf("perft(2) = %d, want 244", got)
	}
}

func TestPerftNegativeDepth(t *testing.T) {
	b := NewStandardBoard()
	if got := Perft(b, -1); got != 0 {
		t.Errorf("perft(-1) = %d, want 0", got)
	}
	if got := Perft(b, 0); got != 1 {
		t.Errorf("perft(0) = %d, want 1", got)
	}
}
