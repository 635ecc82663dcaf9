package board

import (
	"fmt"
	"strings"
)

// MoveFlag marks the special moves that need extra work to apply or undo.
type MoveFlag uint8

const (
	FlagNormal MoveFlag = iota
	FlagDoublePush
	FlagEnPassant
	FlagCastle
)

// Move is a single move. Moves are produced by the board's legal move
// generator and consumed by Board.Move; Captured is filled in by the
// generator so callers can order captures without looking at the board.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType // NoPieceType unless the move promotes
	Captured  Piece     // NoPiece unless the move captures
	Flag      MoveFlag
}

// NoMove represents an invalid or null move.
var NoMove = Move{From: NoSquare, To: NoSquare, Promotion: NoPieceType, Captured: NoPiece}

// NewMove creates a quiet move with no special flags.
func NewMove(from, to Square) Move {
	return Move{From: from, To: to, Promotion: NoPieceType, Captured: NoPiece}
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m.Promotion != NoPieceType
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	return m.Flag == FlagCastle
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Flag == FlagEnPassant
}

// IsCapture returns true if this move captures a piece.
func (m Move) IsCapture() bool {
	return m.Captured != NoPiece
}

// IsQuiet returns true if this is not a capture or promotion.
func (m Move) IsQuiet() bool {
	return !m.IsCapture() && !m.IsPromotion()
}

// String returns the coordinate form of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m.From == NoSquare {
		return "0000"
	}

	s := m.From.String() + m.To.String()
	if m.IsPromotion() {
		s += string(m.Promotion.Char())
	}
	return s
}

// ParseMove resolves a coordinate move string against the legal moves of the
// side to move. The promotion suffix defaults to a queen when omitted.
func (b *Board) ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	from, n := scanSquare(s)
	if n == 0 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}
	to, k := scanSquare(s[n:])
	if k == 0 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	promo := NoPieceType
	switch rest := s[n+k:]; rest {
	case "":
	case "n":
		promo = Knight
	case "b":
		promo = Bishop
	case "r":
		promo = Rook
	case "q":
		promo = Queen
	default:
		return NoMove, fmt.Errorf("invalid promotion piece: %s", rest)
	}

	if !b.dims.Contains(from) || !b.dims.Contains(to) {
		return NoMove, fmt.Errorf("move %s leaves the %v board", s, b.dims)
	}

	for m := range b.Moves(from) {
		if m.To != to {
			continue
		}
		if !m.IsPromotion() && promo != NoPieceType {
			continue
		}
		if m.IsPromotion() && m.Promotion != promo && !(promo == NoPieceType && m.Promotion == Queen) {
			continue
		}
		if b.PieceAt(from).Color() != b.sideToMove {
			break
		}
		return m, nil
	}

	return NoMove, fmt.Errorf("illegal move: %s", s)
}
