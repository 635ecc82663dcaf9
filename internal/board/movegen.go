package board

import (
	"iter"
	"slices"
)

// Moves returns the legal moves of the piece on sq, whichever side it
// belongs to. The sequence is lazy: each candidate is checked for king
// safety only when the consumer asks for it.
func (b *Board) Moves(sq Square) iter.Seq[Move] {
	return func(yield func(Move) bool) {
		p := b.PieceAt(sq)
		if p == NoPiece {
			return
		}
		var scratch *Board
		for _, m := range b.appendPseudoLegal(nil, sq) {
			if scratch == nil {
				scratch = b.Copy()
			}
			if scratch.leavesKingSafe(m, p.Color()) && !yield(m) {
				return
			}
		}
	}
}

// LegalMoves returns the legal moves of every piece of color c, scanning
// squares from a1 upwards.
func (b *Board) LegalMoves(c Color) iter.Seq[Move] {
	return func(yield func(Move) bool) {
		var scratch *Board
		var buf []Move
		for i, p := range b.squares {
			if p == NoPiece || p.Color() != c {
				continue
			}
			buf = b.appendPseudoLegal(buf[:0], b.dims.Square(i))
			for _, m := range buf {
				if scratch == nil {
					scratch = b.Copy()
				}
				if scratch.leavesKingSafe(m, c) && !yield(m) {
					return
				}
			}
		}
	}
}

// MoveList returns all legal moves of color c as a slice.
func (b *Board) MoveList(c Color) []Move {
	return slices.Collect(b.LegalMoves(c))
}

// HasLegalMoves returns true if color c has at least one legal move.
func (b *Board) HasLegalMoves(c Color) bool {
	for range b.LegalMoves(c) {
		return true
	}
	return false
}

// Checkmate returns true if c is in check and has no legal moves.
func (b *Board) Checkmate(c Color) bool {
	return b.Check(c) && !b.HasLegalMoves(c)
}

// Stalemate returns true if c is not in check and has no legal moves.
func (b *Board) Stalemate(c Color) bool {
	return !b.Check(c) && !b.HasLegalMoves(c)
}

// leavesKingSafe plays m on the scratch board and reports whether the
// mover's king is safe afterwards. The scratch board is restored.
func (b *Board) leavesKingSafe(m Move, us Color) bool {
	b.Move(m)
	safe := !b.Check(us)
	b.Undo()
	return safe
}

// appendPseudoLegal appends the moves of the piece on from that respect its
// geometry and the board occupancy, without looking at check.
func (b *Board) appendPseudoLegal(ml []Move, from Square) []Move {
	p := b.at(from)
	us := p.Color()

	for _, r := range b.table.get(p.Type(), us, from) {
		switch r.Kind {
		case RayMove:
			for _, to := range r.Squares {
				target := b.at(to)
				if target == NoPiece {
					ml = append(ml, NewMove(from, to))
					continue
				}
				if target.Color() != us {
					m := NewMove(from, to)
					m.Captured = target
					ml = append(ml, m)
				}
				break
			}

		case RayPush:
			for i, to := range r.Squares {
				if b.at(to) != NoPiece {
					break
				}
				m := NewMove(from, to)
				if i == 1 {
					m.Flag = FlagDoublePush
				}
				ml = b.appendPawnMove(ml, m, us)
			}

		case RayCapture:
			to := r.Squares[0]
			target := b.at(to)
			switch {
			case target != NoPiece && target.Color() != us:
				m := NewMove(from, to)
				m.Captured = target
				ml = b.appendPawnMove(ml, m, us)
			case target == NoPiece && to == b.enPassant && us == b.sideToMove:
				victim := b.at(Square{File: to.File, Rank: from.Rank})
				if victim == NewPiece(Pawn, us.Other()) {
					m := NewMove(from, to)
					m.Captured = victim
					m.Flag = FlagEnPassant
					ml = append(ml, m)
				}
			}
		}
	}

	if p.Type() == King {
		ml = b.appendCastles(ml, from, us)
	}
	return ml
}

// appendPawnMove appends m, expanded into one move per promotion type when
// the pawn reaches the last rank.
func (b *Board) appendPawnMove(ml []Move, m Move, us Color) []Move {
	if b.dims.RelativeRank(m.To, us) != b.dims.Ranks-1 {
		return append(ml, m)
	}
	for _, pt := range PromotionTypes {
		m.Promotion = pt
		ml = append(ml, m)
	}
	return ml
}

// appendCastles appends the castling moves of the king on from. The king
// moves two files toward the rook; every square between king and rook must
// be empty, and the king may not castle out of, through or into check.
func (b *Board) appendCastles(ml []Move, from Square, us Color) []Move {
	if from != b.kingHome[us] {
		return ml
	}
	them := us.Other()
	rook := NewPiece(Rook, us)

	for wing, kingSide := range [2]bool{true, false} {
		if !b.castling.CanCastle(us, kingSide) {
			continue
		}
		home := b.rookHome[us][wing]
		if b.at(home) != rook {
			continue
		}
		dir := 1
		if !kingSide {
			dir = -1
		}
		to := from.Offset(2*dir, 0)
		// The rook must start beyond the king's landing square
		if (home.File-to.File)*dir <= 0 {
			continue
		}

		clear := true
		for f := from.File + dir; f != home.File; f += dir {
			if b.at(Square{File: f, Rank: from.Rank}) != NoPiece {
				clear = false
				break
			}
		}
		if !clear {
			continue
		}

		safe := true
		for i := 0; i <= 2; i++ {
			if b.Attacked(from.Offset(i*dir, 0), them) {
				safe = false
				break
			}
		}
		if !safe {
			continue
		}

		m := NewMove(from, to)
		m.Flag = FlagCastle
		ml = append(ml, m)
	}
	return ml
}

// IsDraw returns true if the side to move is stalemated, the fifty-move
// rule applies, or neither side can mate.
func (b *Board) IsDraw() bool {
	if b.Stalemate(b.sideToMove) {
		return true
	}
	if b.halfMove >= 100 {
		return true
	}
	return b.InsufficientMaterial()
}

// InsufficientMaterial returns true if neither side can checkmate.
func (b *Board) InsufficientMaterial() bool {
	var minors [2]int
	for _, p := range b.squares {
		switch p.Type() {
		case Pawn, Rook, Queen:
			return false
		case Knight, Bishop:
			minors[p.Color()]++
		}
	}

	// K vs K, K+minor vs K
	if minors[White]+minors[Black] == 0 {
		return true
	}
	if minors[White] <= 1 && minors[Black] == 0 {
		return true
	}
	return minors[Black] <= 1 && minors[White] == 0
}
