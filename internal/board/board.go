package board

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNoHistory is returned by Undo when no move has been applied.
var ErrNoHistory = errors.New("board: no move to undo")

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// castleBit returns the right for one color and wing.
func castleBit(c Color, kingSide bool) CastlingRights {
	bit := WhiteKingSideCastle
	if !kingSide {
		bit = WhiteQueenSideCastle
	}
	if c == Black {
		bit <<= 2
	}
	return bit
}

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	if cr&WhiteKingSideCastle != 0 {
		s += "K"
	}
	if cr&WhiteQueenSideCastle != 0 {
		s += "Q"
	}
	if cr&BlackKingSideCastle != 0 {
		s += "k"
	}
	if cr&BlackQueenSideCastle != 0 {
		s += "q"
	}
	return s
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	return cr&castleBit(c, kingSide) != 0
}

// wing indexes for rookHome
const (
	kingWing  = 0
	queenWing = 1
)

// undoRecord holds everything Move changes that cannot be recomputed from
// the move itself.
type undoRecord struct {
	move       Move
	moved      Piece
	captured   Piece
	capturedAt Square
	sideToMove Color
	castling   CastlingRights
	enPassant  Square
	halfMove   int
	fullMove   int
}

// Board is a chess position on a board of any supported size, together with
// the log of moves applied to it.
type Board struct {
	dims    Dims
	table   *rayTable
	squares []Piece

	sideToMove Color
	castling   CastlingRights
	enPassant  Square // Target square for en passant, NoSquare if none
	halfMove   int    // Moves since last pawn move or capture (for 50-move rule)
	fullMove   int    // Full move counter, starts at 1

	kings    [2]Square
	kingHome [2]Square
	rookHome [2][2]Square // [Color][kingWing|queenWing]

	history []undoRecord
}

// NewBoard creates an empty board of the given size with White to move.
// Panics if the size is outside the supported limits.
func NewBoard(d Dims) *Board {
	if err := d.Validate(); err != nil {
		panic(err)
	}
	b := &Board{
		dims:      d,
		table:     tableFor(d),
		squares:   make([]Piece, d.Size()),
		enPassant: NoSquare,
		fullMove:  1,
		kings:     [2]Square{NoSquare, NoSquare},
	}
	for i := range b.squares {
		b.squares[i] = NoPiece
	}
	b.SetCastling(NoCastling)
	return b
}

// NewStandardBoard creates the standard 8x8 starting position.
func NewStandardBoard() *Board {
	b, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return b
}

// Dims returns the board size.
func (b *Board) Dims() Dims {
	return b.dims
}

// SideToMove returns the color whose turn it is.
func (b *Board) SideToMove() Color {
	return b.sideToMove
}

// SetSideToMove sets the color to move. Used while setting up a position.
func (b *Board) SetSideToMove(c Color) {
	if c != White && c != Black {
		panic(fmt.Sprintf("board: invalid side to move %d", c))
	}
	b.sideToMove = c
}

// CastlingRights returns the castling rights still available.
func (b *Board) CastlingRights() CastlingRights {
	return b.castling
}

// SetCastling sets the castling rights after the pieces are placed. The king
// home square is wherever each king stands on its back rank, the rook homes
// are the corner squares. Rights whose king or rook is not in place are dropped.
func (b *Board) SetCastling(cr CastlingRights) {
	for c := White; c <= Black; c++ {
		back := b.dims.BackRank(c)
		b.kingHome[c] = NoSquare
		if k := b.kings[c]; k != NoSquare && k.Rank == back {
			b.kingHome[c] = k
		}
		b.rookHome[c][kingWing] = Square{File: b.dims.Files - 1, Rank: back}
		b.rookHome[c][queenWing] = Square{File: 0, Rank: back}

		rook := NewPiece(Rook, c)
		for wing, kingSide := range [2]bool{true, false} {
			if b.kingHome[c] == NoSquare || b.PieceAt(b.rookHome[c][wing]) != rook {
				cr &^= castleBit(c, kingSide)
			}
		}
	}
	b.castling = cr
}

// EnPassant returns the en passant target square, or NoSquare.
func (b *Board) EnPassant() Square {
	return b.enPassant
}

// HalfMoveClock returns the number of plies since the last capture or pawn move.
func (b *Board) HalfMoveClock() int {
	return b.halfMove
}

// FullMoveNumber returns the move number, starting at 1 and incremented after Black moves.
func (b *Board) FullMoveNumber() int {
	return b.fullMove
}

// KingSquare returns the square of c's king, or NoSquare if there is none.
func (b *Board) KingSquare(c Color) Square {
	return b.kings[c]
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
// Panics if the square is off the board.
func (b *Board) PieceAt(sq Square) Piece {
	return b.squares[b.dims.Index(sq)]
}

// at is PieceAt for squares already known to be on the board.
func (b *Board) at(sq Square) Piece {
	return b.squares[sq.Rank*b.dims.Files+sq.File]
}

// Put places a piece on a square (NoPiece clears it). Used while setting up
// a position; call SetCastling afterwards if rooks or kings moved.
func (b *Board) Put(sq Square, p Piece) {
	b.dims.Index(sq)
	b.set(sq, p)
}

// set writes a square and keeps the king cache current.
func (b *Board) set(sq Square, p Piece) {
	i := sq.Rank*b.dims.Files + sq.File
	if old := b.squares[i]; old != NoPiece && old.Type() == King && b.kings[old.Color()] == sq {
		b.kings[old.Color()] = NoSquare
	}
	b.squares[i] = p
	if p != NoPiece && p.Type() == King {
		b.kings[p.Color()] = sq
	}
}

// Copy returns an independent copy of the position. The undo history is
// not copied: the copy cannot undo moves made before it was taken.
func (b *Board) Copy() *Board {
	c := *b
	c.squares = slices.Clone(b.squares)
	c.history = nil
	return &c
}

// Equal reports whether two boards hold the same position: placement, side
// to move, castling rights, en passant target and clocks.
func (b *Board) Equal(o *Board) bool {
	return b.dims == o.dims &&
		slices.Equal(b.squares, o.squares) &&
		b.sideToMove == o.sideToMove &&
		b.castling == o.castling &&
		b.enPassant == o.enPassant &&
		b.halfMove == o.halfMove &&
		b.fullMove == o.fullMove &&
		b.kingHome == o.kingHome
}

// Move applies a move unconditionally. The move must come from the legal
// move generator; anything else leaves the board in an undefined state.
func (b *Board) Move(m Move) {
	piece := b.at(m.From)
	us := piece.Color()

	rec := undoRecord{
		move:       m,
		moved:      piece,
		captured:   NoPiece,
		capturedAt: NoSquare,
		sideToMove: b.sideToMove,
		castling:   b.castling,
		enPassant:  b.enPassant,
		halfMove:   b.halfMove,
		fullMove:   b.fullMove,
	}

	// Handle captures
	capSq := m.To
	if m.Flag == FlagEnPassant {
		capSq = Square{File: m.To.File, Rank: m.From.Rank}
	}
	if captured := b.at(capSq); captured != NoPiece {
		rec.captured = captured
		rec.capturedAt = capSq
		b.set(capSq, NoPiece)
	}

	// Move the piece, promoting if asked
	b.set(m.From, NoPiece)
	if m.IsPromotion() {
		b.set(m.To, NewPiece(m.Promotion, us))
	} else {
		b.set(m.To, piece)
	}

	if m.Flag == FlagCastle {
		rookFrom, rookTo := b.castleRook(us, m)
		b.set(rookTo, b.at(rookFrom))
		b.set(rookFrom, NoPiece)
	}

	// Update castling rights: king moves clear both wings, anything leaving
	// or landing on a rook home clears that wing
	if piece.Type() == King {
		b.castling &^= castleBit(us, true) | castleBit(us, false)
	}
	for c := White; c <= Black; c++ {
		for wing, kingSide := range [2]bool{true, false} {
			if home := b.rookHome[c][wing]; home == m.From || home == m.To {
				b.castling &^= castleBit(c, kingSide)
			}
		}
	}

	// Set en passant square for double pawn push
	b.enPassant = NoSquare
	if m.Flag == FlagDoublePush {
		b.enPassant = Square{File: m.From.File, Rank: (m.From.Rank + m.To.Rank) / 2}
	}

	if piece.Type() == Pawn || rec.captured != NoPiece {
		b.halfMove = 0
	} else {
		b.halfMove++
	}
	if us == Black {
		b.fullMove++
	}

	b.sideToMove = us.Other()
	b.history = append(b.history, rec)
}

// castleRook returns where the castling rook starts and lands: it jumps
// over the king onto the square the king crossed.
func (b *Board) castleRook(us Color, m Move) (from, to Square) {
	if m.To.File > m.From.File {
		return b.rookHome[us][kingWing], Square{File: m.To.File - 1, Rank: m.To.Rank}
	}
	return b.rookHome[us][queenWing], Square{File: m.To.File + 1, Rank: m.To.Rank}
}

// Undo takes back the most recent move, restoring the exact prior position.
// Returns ErrNoHistory, leaving the board untouched, if there is none.
func (b *Board) Undo() error {
	if len(b.history) == 0 {
		return ErrNoHistory
	}
	rec := b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]
	m := rec.move
	us := rec.moved.Color()

	if m.Flag == FlagCastle {
		rookFrom, rookTo := b.castleRook(us, m)
		b.set(rookFrom, b.at(rookTo))
		b.set(rookTo, NoPiece)
	}

	b.set(m.To, NoPiece)
	b.set(m.From, rec.moved)
	if rec.captured != NoPiece {
		b.set(rec.capturedAt, rec.captured)
	}

	b.sideToMove = rec.sideToMove
	b.castling = rec.castling
	b.enPassant = rec.enPassant
	b.halfMove = rec.halfMove
	b.fullMove = rec.fullMove
	return nil
}

// History returns the moves applied to this board, oldest first.
func (b *Board) History() []Move {
	moves := make([]Move, len(b.history))
	for i, rec := range b.history {
		moves[i] = rec.move
	}
	return moves
}

// LastMove returns the most recent move, or NoMove.
func (b *Board) LastMove() Move {
	if len(b.history) == 0 {
		return NoMove
	}
	return b.history[len(b.history)-1].move
}

// String returns a visual representation of the board.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	for rank := b.dims.Ranks - 1; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%2d  ", rank+1)
		for file := 0; file < b.dims.Files; file++ {
			piece := b.at(Square{File: file, Rank: rank})
			if piece == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(piece.String() + " ")
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n    ")
	for file := 0; file < b.dims.Files; file++ {
		sb.WriteByte(byte('a' + file))
		sb.WriteByte(' ')
	}
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Side to move: %s\n", b.sideToMove)
	fmt.Fprintf(&sb, "Castling: %s\n", b.castling)
	fmt.Fprintf(&sb, "En passant: %s\n", b.enPassant)
	fmt.Fprintf(&sb, "Half-move clock: %d\n", b.halfMove)
	fmt.Fprintf(&sb, "Full move: %d\n", b.fullMove)
	return sb.String()
}
