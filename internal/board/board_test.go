package board

import (
	"math/rand/v2"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sq(s string) Square {
	s2, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return s2
}

func TestDoublePawnPush(t *testing.T) {
	b := NewStandardBoard()

	m, err := b.ParseMove("e2e4")
	require.NoError(t, err)
	assert.Equal(t, FlagDoublePush, m.Flag)

	b.Move(m)
	assert.Equal(t, WhitePawn, b.PieceAt(sq("e4")))
	assert.Equal(t, NoPiece, b.PieceAt(sq("e2")))
	assert.Equal(t, sq("e3"), b.EnPassant())
	assert.Equal(t, Black, b.SideToMove())
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", b.ToFEN())
}

func TestCheckmate(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		mate bool
	}{
		// Rook on e1 checks down the open file, the king is boxed in by its own pieces
		{"rook on the e-file", "3rkr2/3p1p2/8/8/8/8/8/4R2K b - - 0 1", true},
		{"back rank", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", true},
		{"king takes the rook", "6Rk/8/8/8/8/8/8/K7 b - - 0 1", false},
		{"bishop can interpose", "3rkr2/3p1p2/8/2b5/8/8/8/4R2K b - - 0 1", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := mustFEN(t, tc.fen)
			require.True(t, b.Check(Black))
			if got := b.Checkmate(Black); got != tc.mate {
				t.Errorf("Checkmate(Black) = %v, want %v\n%s", got, tc.mate, b)
			}
			assert.False(t, b.Stalemate(Black))
		})
	}
}

func TestStalemate(t *testing.T) {
	b := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")

	assert.True(t, b.Stalemate(Black))
	assert.False(t, b.Checkmate(Black))
	assert.False(t, b.Check(Black))
	assert.Empty(t, b.MoveList(Black))
	assert.True(t, b.IsDraw())
}

func TestUndoEmptyHistory(t *testing.T) {
	b := NewStandardBoard()
	before := b.Copy()

	require.ErrorIs(t, b.Undo(), ErrNoHistory)
	assert.True(t, b.Equal(before))
}

func TestUndoRestoresPosition(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1",
		"n1n5/PPPk4/8/8/8/8/4Kppp/5N1N b - - 0 1",
	}

	for _, fen := range fens {
		b := mustFEN(t, fen)
		for _, m := range b.MoveList(b.SideToMove()) {
			b.Move(m)
			require.NoError(t, b.Undo())
			if got := b.ToFEN(); got != fen {
				t.Errorf("%s: after %v and undo got %s", fen, m, got)
			}
		}
	}
}

func TestEnPassant(t *testing.T) {
	b := mustFEN(t, "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1")

	m, err := b.ParseMove("e5d6")
	require.NoError(t, err)
	require.True(t, m.IsEnPassant())
	assert.Equal(t, BlackPawn, m.Captured)

	b.Move(m)
	assert.Equal(t, NoPiece, b.PieceAt(sq("d5")))
	assert.Equal(t, WhitePawn, b.PieceAt(sq("d6")))

	require.NoError(t, b.Undo())
	assert.Equal(t, BlackPawn, b.PieceAt(sq("d5")))
	assert.Equal(t, WhitePawn, b.PieceAt(sq("e5")))
}

func TestCopyIndependence(t *testing.T) {
	b := NewStandardBoard()
	c := b.Copy()
	require.True(t, b.Equal(c))
	require.Equal(t, b.Hash(), c.Hash())

	m, err := c.ParseMove("g1f3")
	require.NoError(t, err)
	c.Move(m)
	c.Put(sq("a2"), NoPiece)

	assert.Equal(t, StartFEN, b.ToFEN())
	assert.False(t, b.Equal(c))
	assert.Empty(t, b.History())
	assert.Equal(t, []Move{m}, c.History())

	// The copy does not inherit history
	d := c.Copy()
	assert.ErrorIs(t, d.Undo(), ErrNoHistory)
}

func TestCastlingRights(t *testing.T) {
	const fen = "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"

	tests := []struct {
		name  string
		moves []string
		want  string
	}{
		{"king move", []string{"e1f1"}, "kq"},
		{"king side rook move", []string{"h1h2"}, "Qkq"},
		{"queen side rook move", []string{"a1b1"}, "Kkq"},
		{"rook captures rook", []string{"a1a8"}, "Kk"},
		{"rook captured at home", []string{"e1d1", "h8h1"}, "q"},
		{"rook returns home", []string{"h1h2", "a8a7", "h2h1"}, "Qk"},
		{"castle king side", []string{"e1g1"}, "kq"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := mustFEN(t, fen)
			for _, s := range tc.moves {
				m, err := b.ParseMove(s)
				require.NoError(t, err, s)
				b.Move(m)
			}
			assert.Equal(t, tc.want, b.CastlingRights().String())
		})
	}
}

func TestCastlingMoves(t *testing.T) {
	b := mustFEN(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	castles := map[string]bool{}
	for m := range b.Moves(sq("e1")) {
		if m.IsCastling() {
			castles[m.String()] = true
		}
	}
	assert.Equal(t, map[string]bool{"e1g1": true, "e1c1": true}, castles)

	m, err := b.ParseMove("e1c1")
	require.NoError(t, err)
	b.Move(m)
	assert.Equal(t, WhiteKing, b.PieceAt(sq("c1")))
	assert.Equal(t, WhiteRook, b.PieceAt(sq("d1")))
	assert.Equal(t, NoPiece, b.PieceAt(sq("a1")))

	require.NoError(t, b.Undo())
	assert.Equal(t, WhiteRook, b.PieceAt(sq("a1")))
	assert.Equal(t, WhiteKing, b.PieceAt(sq("e1")))
	assert.Equal(t, NoPiece, b.PieceAt(sq("d1")))
}

func TestCastlingBlockedByAttack(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want []string
	}{
		{"crossing square attacked", "r3k2r/8/8/8/8/8/5r2/R3K2R w KQkq - 0 1", []string{"e1c1"}},
		{"king in check", "r3k2r/8/8/8/8/8/4r3/R3K2R w KQkq - 0 1", nil},
		{"landing square attacked", "r3k2r/8/8/8/8/8/2r5/R3K2R w KQkq - 0 1", []string{"e1g1"}},
		{"attacked rook is fine", "r3k2r/8/8/8/8/8/1r5r/R3K2R w KQkq - 0 1", []string{"e1g1", "e1c1"}},
		{"piece in between", "r3k2r/8/8/8/8/8/8/RN2K2R w KQkq - 0 1", []string{"e1g1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := mustFEN(t, tc.fen)
			var got []string
			for m := range b.LegalMoves(White) {
				if m.IsCastling() {
					got = append(got, m.String())
				}
			}
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestCastlingVariantBoard(t *testing.T) {
	// King on c1 with rooks in the corners of a 6x6 board. Castling toward
	// a1 would put the king on the rook's square, so only the long side works.
	b := mustFEN(t, "r1k2r/6/6/6/6/R1K2R w KQkq - 0 1")

	var castles []Move
	for m := range b.Moves(sq("c1")) {
		if m.IsCastling() {
			castles = append(castles, m)
		}
	}
	require.Len(t, castles, 1)
	assert.Equal(t, "c1e1", castles[0].String())

	b.Move(castles[0])
	assert.Equal(t, WhiteKing, b.PieceAt(sq("e1")))
	assert.Equal(t, WhiteRook, b.PieceAt(sq("d1")))
	assert.Equal(t, NoPiece, b.PieceAt(sq("f1")))
	assert.Equal(t, "kq", b.CastlingRights().String())
}

func TestPromotion(t *testing.T) {
	b := mustFEN(t, "8/4P3/8/8/8/8/k7/4K3 w - - 0 1")

	var promos []PieceType
	for m := range b.Moves(sq("e7")) {
		promos = append(promos, m.Promotion)
	}
	assert.Equal(t, []PieceType{Queen, Rook, Bishop, Knight}, promos)

	m, err := b.ParseMove("e7e8")
	require.NoError(t, err)
	assert.Equal(t, Queen, m.Promotion)

	m, err = b.ParseMove("e7e8n")
	require.NoError(t, err)
	b.Move(m)
	assert.Equal(t, WhiteKnight, b.PieceAt(sq("e8")))

	require.NoError(t, b.Undo())
	assert.Equal(t, WhitePawn, b.PieceAt(sq("e7")))
	assert.Equal(t, NoPiece, b.PieceAt(sq("e8")))
}

func TestParseMoveErrors(t *testing.T) {
	b := NewStandardBoard()

	for _, s := range []string{"", "e2", "e2e5", "e7e5", "e2e4q", "e2e4x", "z9z9", "e2e44"} {
		_, err := b.ParseMove(s)
		assert.Error(t, err, "ParseMove(%q)", s)
	}
}

func TestSAN(t *testing.T) {
	tests := []struct {
		fen  string
		move string
		want string
	}{
		{StartFEN, "g1f3", "Nf3"},
		{StartFEN, "e2e4", "e4"},
		{"4k3/8/8/8/8/8/8/1N2KN2 w - - 0 1", "b1d2", "Nbd2"},
		{"4k3/8/8/8/R7/8/8/R3K3 w - - 0 1", "a1a3", "R1a3"},
		{"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "a1a8", "Ra8#"},
		{"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", "a1a8", "Ra8+"},
		{"8/4P3/8/8/8/8/k7/4K3 w - - 0 1", "e7e8q", "e8=Q"},
		{"4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", "e5d6", "exd6"},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1", "O-O"},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1c1", "O-O-O"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			b := mustFEN(t, tc.fen)
			m, err := b.ParseMove(tc.move)
			require.NoError(t, err)
			assert.Equal(t, tc.want, b.SAN(m))
		})
	}
}

func TestMovesToSAN(t *testing.T) {
	b := NewStandardBoard()
	var moves []Move
	for _, s := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		m, err := b.ParseMove(s)
		require.NoError(t, err)
		moves = append(moves, m)
		b.Move(m)
	}

	start := NewStandardBoard()
	assert.Equal(t, []string{"f3", "e5", "g4", "Qh4#"}, start.MovesToSAN(moves))
	assert.Equal(t, StartFEN, start.ToFEN())
	assert.True(t, b.Checkmate(White))
}

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		"rnqknr/pppppp/6/6/PPPPPP/RNQKNR w - - 0 1",
		"rnbqkbnqnr/pppppppppp/10/10/10/10/PPPPPPPPPP/RNBQKBNQNR w KQkq - 0 1",
		"4k7/12/12/12/12/12/12/12/12/12/12/4K7 b - - 12 40",
	}

	for _, fen := range fens {
		b := mustFEN(t, fen)
		assert.Equal(t, fen, b.ToFEN())
	}
}

func TestParseFENErrors(t *testing.T) {
	bad := []string{
		"",
		"8/8/8/8 w - -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBN w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQxq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq z9 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - -1 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBXR w KQkq - 0 1",
	}

	for _, fen := range bad {
		_, err := ParseFEN(fen)
		assert.Error(t, err, "ParseFEN(%q)", fen)
	}
}

func TestSetCastlingDropsMissingPieces(t *testing.T) {
	b := mustFEN(t, "4k3/8/8/8/8/8/8/4K2R w KQkq - 0 1")
	assert.Equal(t, "K", b.CastlingRights().String())
}

func TestValidate(t *testing.T) {
	require.NoError(t, NewStandardBoard().Validate())

	b := mustFEN(t, "4k3/8/8/8/8/8/8/KP2K3 w - - 0 1")
	err := b.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)

	// Black is in check with White to move
	b = mustFEN(t, "4k3/8/8/8/8/8/8/4RK2 w - - 0 1")
	assert.Error(t, b.Validate())

	b = mustFEN(t, "4k3/8/8/8/8/8/8/4K3 w - e3 0 1")
	assert.Error(t, b.Validate())
}

func TestOutOfRangePanics(t *testing.T) {
	b := NewStandardBoard()

	assert.Panics(t, func() { b.PieceAt(Square{File: 8, Rank: 0}) })
	assert.Panics(t, func() { b.PieceAt(Square{File: 0, Rank: -1}) })
	assert.Panics(t, func() { b.Put(Square{File: 3, Rank: 8}, WhiteQueen) })
	assert.Panics(t, func() { Knight.Rays(Square{File: 9, Rank: 9}, White, Standard) })
	assert.Panics(t, func() { NewBoard(Dims{Files: 4, Ranks: 8}) })
	assert.Panics(t, func() { NewBoard(Dims{Files: 27, Ranks: 8}) })
}

func TestRays(t *testing.T) {
	rays := Knight.Rays(sq("a1"), White, Standard)
	assert.Len(t, rays, 2)

	rays = Rook.Rays(sq("a1"), White, Standard)
	require.Len(t, rays, 2)
	for _, r := range rays {
		assert.Equal(t, RayMove, r.Kind)
		assert.Len(t, r.Squares, 7)
	}
	assert.Equal(t, sq("a2"), rays[0].Squares[0], "rays are ordered outward")

	rays = Pawn.Rays(sq("e2"), White, Standard)
	require.Len(t, rays, 3)
	assert.Equal(t, Ray{Kind: RayPush, Squares: []Square{sq("e3"), sq("e4")}}, rays[0])
	assert.Equal(t, Ray{Kind: RayCapture, Squares: []Square{sq("d3")}}, rays[1])
	assert.Equal(t, Ray{Kind: RayCapture, Squares: []Square{sq("f3")}}, rays[2])

	rays = Pawn.Rays(sq("e7"), Black, Standard)
	assert.Equal(t, []Square{sq("e6"), sq("e5")}, rays[0].Squares)

	// A pawn on the far edge has one capture square
	rays = Pawn.Rays(sq("h3"), White, Standard)
	require.Len(t, rays, 2)
	assert.Equal(t, []Square{sq("h4")}, rays[0].Squares)

	queen := Queen.Rays(sq("d4"), White, Dims{Files: 12, Ranks: 10})
	n := 0
	for _, r := range queen {
		n += len(r.Squares)
	}
	// 11 on the rank, 9 on the file, 6+3+3+3 on the diagonals
	assert.Equal(t, 35, n)
}

func TestHashTranspositions(t *testing.T) {
	play := func(moves ...string) *Board {
		b := NewStandardBoard()
		for _, s := range moves {
			m, err := b.ParseMove(s)
			require.NoError(t, err)
			b.Move(m)
		}
		return b
	}

	a := play("g1f3", "g8f6", "b1c3")
	c := play("b1c3", "g8f6", "g1f3")
	assert.Equal(t, a.Hash(), c.Hash())
	assert.NotEqual(t, a.Hash(), NewStandardBoard().Hash())

	b := NewStandardBoard()
	b.SetSideToMove(Black)
	assert.NotEqual(t, b.Hash(), NewStandardBoard().Hash())
}

func TestHashIgnoresUnusableEnPassant(t *testing.T) {
	b := NewStandardBoard()
	m, err := b.ParseMove("e2e4")
	require.NoError(t, err)
	b.Move(m)
	require.Equal(t, sq("e3"), b.EnPassant())

	// No black pawn stands beside e4
	plain := mustFEN(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	assert.Equal(t, plain.Hash(), b.Hash())

	// With a black pawn on d4 the capture is possible and the key differs
	withTarget := mustFEN(t, "rnbqkbnr/ppp1pppp/8/8/3pP3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	without := mustFEN(t, "rnbqkbnr/ppp1pppp/8/8/3pP3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	assert.NotEqual(t, without.Hash(), withTarget.Hash())
}

func TestPolyglotHash(t *testing.T) {
	// Keys from the Polyglot book format description
	tests := []struct {
		moves []string
		key   uint64
	}{
		{nil, 0x463b96181691fc9c},
		{[]string{"e2e4"}, 0x823c9b50fd114196},
		{[]string{"e2e4", "d7d5"}, 0x0756b94461c50fb0},
		{[]string{"e2e4", "d7d5", "e4e5"}, 0x662fafb965db29d4},
		{[]string{"e2e4", "d7d5", "e4e5", "f7f5"}, 0x22a48b5a8e47ff78},
		{[]string{"e2e4", "d7d5", "e4e5", "f7f5", "e1e2"}, 0x652a607ca3f242c1},
	}

	for _, tc := range tests {
		b := NewStandardBoard()
		for _, s := range tc.moves {
			m, err := b.ParseMove(s)
			require.NoError(t, err)
			b.Move(m)
		}
		key, ok := b.PolyglotHash()
		require.True(t, ok)
		assert.Equal(t, tc.key, key, "after %v", tc.moves)
	}

	_, ok := mustFEN(t, "rnqknr/pppppp/6/6/PPPPPP/RNQKNR w - - 0 1").PolyglotHash()
	assert.False(t, ok)
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		fen  string
		want bool
	}{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4K2N w - - 0 1", true},
		{"4kb2/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"4kb2/8/8/8/8/8/8/4K2N w - - 0 1", false},
		{"4k3/8/8/8/8/8/8/4KN1N w - - 0 1", false},
		{"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", false},
		{StartFEN, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, mustFEN(t, tc.fen).InsufficientMaterial(), tc.fen)
	}
}

// TestRandomPlayouts walks seeded random games on several board sizes and
// checks the move generator's invariants in every position reached.
func TestRandomPlayouts(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnqknr/pppppp/6/6/PPPPPP/RNQKNR w - - 0 1",
		"rnbqk/ppppp/5/PPPPP/RNBQK w - - 0 1",
		"rnbqkbnqnr/pppppppppp/10/10/10/10/PPPPPPPPPP/RNBQKBNQNR w KQkq - 0 1",
	}
	games := 4
	plies := 60
	if testing.Short() {
		games, plies = 1, 30
	}

	rng := rand.New(rand.NewPCG(7, 11))
	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			for g := 0; g < games; g++ {
				b := mustFEN(t, fen)
				for ply := 0; ply < plies; ply++ {
					moves := checkPosition(t, b)
					if len(moves) == 0 {
						break
					}
					b.Move(moves[rng.IntN(len(moves))])
				}
				// Unwind the whole game back to the start
				for range b.History() {
					require.NoError(t, b.Undo())
				}
				assert.Equal(t, fen, b.ToFEN())
			}
		})
	}
}

// checkPosition verifies legality, undo and terminal-state invariants for
// the side to move and returns its legal moves.
func checkPosition(t *testing.T, b *Board) []Move {
	t.Helper()
	us := b.SideToMove()
	moves := b.MoveList(us)

	perSquare := 0
	for i := 0; i < b.Dims().Size(); i++ {
		from := b.Dims().Square(i)
		if p := b.PieceAt(from); p != NoPiece && p.Color() == us {
			for range b.Moves(from) {
				perSquare++
			}
		}
	}
	require.Equal(t, len(moves), perSquare, "Moves(sq) and LegalMoves disagree\n%s", b)

	before := b.Copy()
	hash := b.Hash()
	for _, m := range moves {
		b.Move(m)
		if b.Check(us) {
			t.Fatalf("%v leaves the %s king attacked\n%s", m, us, b)
		}
		require.NoError(t, b.Undo())
		if !b.Equal(before) || b.Hash() != hash {
			t.Fatalf("move/undo of %v changed the position\n%s", m, b)
		}
	}

	mate, stale := b.Checkmate(us), b.Stalemate(us)
	require.False(t, mate && stale)
	if len(moves) == 0 {
		require.True(t, mate != stale)
		require.Equal(t, b.Check(us), mate)
	} else {
		require.False(t, mate || stale)
	}
	return moves
}
