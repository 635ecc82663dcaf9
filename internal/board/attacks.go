package board

// Attacked returns true if any piece of color by attacks sq, ignoring pins
// and whose turn it is. The test runs the piece rays backwards from sq: a
// knight on sq would see every knight that attacks it, and so on.
func (b *Board) Attacked(sq Square, by Color) bool {
	t := b.table
	them := by.Other()

	// Pawns: a pawn of the defending color on sq captures exactly the
	// squares an attacking pawn would capture from
	pawn := NewPiece(Pawn, by)
	for _, r := range t.get(Pawn, them, sq) {
		if r.Kind == RayCapture && b.at(r.Squares[0]) == pawn {
			return true
		}
	}

	knight := NewPiece(Knight, by)
	for _, r := range t.get(Knight, them, sq) {
		if b.at(r.Squares[0]) == knight {
			return true
		}
	}

	king := NewPiece(King, by)
	for _, r := range t.get(King, them, sq) {
		if b.at(r.Squares[0]) == king {
			return true
		}
	}

	queen := NewPiece(Queen, by)
	if b.slidingAttack(t.get(Bishop, them, sq), NewPiece(Bishop, by), queen) {
		return true
	}
	return b.slidingAttack(t.get(Rook, them, sq), NewPiece(Rook, by), queen)
}

// slidingAttack reports whether the first piece on any ray is one of the two
// given sliders.
func (b *Board) slidingAttack(rays []Ray, slider, queen Piece) bool {
	for _, r := range rays {
		for _, sq := range r.Squares {
			p := b.at(sq)
			if p == NoPiece {
				continue
			}
			if p == slider || p == queen {
				return true
			}
			break
		}
	}
	return false
}

// Check returns true if c's king is attacked. A side without a king is
// never in check.
func (b *Board) Check(c Color) bool {
	k := b.kings[c]
	if k == NoSquare {
		return false
	}
	return b.Attacked(k, c.Other())
}

// InCheck returns true if the side to move is in check.
func (b *Board) InCheck() bool {
	return b.Check(b.sideToMove)
}
