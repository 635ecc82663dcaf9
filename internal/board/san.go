package board

import (
	"strconv"
	"strings"
)

// SAN converts a legal move of the side to move to Standard Algebraic
// Notation ("Nf3", "exd6", "O-O", "e8=Q#").
func (b *Board) SAN(m Move) string {
	if m.From == NoSquare {
		return "-"
	}

	piece := b.PieceAt(m.From)
	if piece == NoPiece {
		return m.String() // Fallback to coordinates
	}

	var sb strings.Builder

	if m.IsCastling() {
		if m.To.File > m.From.File {
			sb.WriteString("O-O")
		} else {
			sb.WriteString("O-O-O")
		}
	} else {
		pt := piece.Type()

		// Piece letter and disambiguation (not for pawns)
		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(b.disambiguation(m, piece))
		}

		if m.IsCapture() {
			if pt == Pawn {
				// Pawn captures include the file of origin
				sb.WriteByte(byte('a' + m.From.File))
			}
			sb.WriteByte('x')
		}

		sb.WriteString(m.To.String())

		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion])
		}
	}

	// Check/checkmate marker
	after := b.Copy()
	after.Move(m)
	them := piece.Color().Other()
	if after.Checkmate(them) {
		sb.WriteByte('#')
	} else if after.Check(them) {
		sb.WriteByte('+')
	}

	return sb.String()
}

// disambiguation returns the file, rank or square needed to tell m apart
// from moves of other same-type pieces to the same square.
func (b *Board) disambiguation(m Move, piece Piece) string {
	var candidates []Square
	for other := range b.LegalMoves(piece.Color()) {
		if other.To != m.To || other.From == m.From {
			continue
		}
		if b.at(other.From) == piece && !containsSquare(candidates, other.From) {
			candidates = append(candidates, other.From)
		}
	}

	// No ambiguity
	if len(candidates) == 0 {
		return ""
	}

	sameFile := false
	sameRank := false
	for _, sq := range candidates {
		if sq.File == m.From.File {
			sameFile = true
		}
		if sq.Rank == m.From.Rank {
			sameRank = true
		}
	}

	if !sameFile {
		return string(rune('a' + m.From.File))
	}
	if !sameRank {
		return strconv.Itoa(m.From.Rank + 1)
	}
	return m.From.String()
}

func containsSquare(squares []Square, sq Square) bool {
	for _, s := range squares {
		if s == sq {
			return true
		}
	}
	return false
}

// MovesToSAN converts a sequence of moves played from b to SAN. b is not
// modified.
func (b *Board) MovesToSAN(moves []Move) []string {
	result := make([]string, len(moves))
	p := b.Copy()

	for i, m := range moves {
		result[i] = p.SAN(m)
		p.Move(m)
	}

	return result
}
