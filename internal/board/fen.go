package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string and returns a Board. The board size is taken
// from the placement field, so "rnbqk/ppppp/5/5/PPPPP/RNBQK w - - 0 1" gives
// a 5x6 board. Runs of empty squares may use more than one digit.
func ParseFEN(fen string) (*Board, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid FEN: need at least 4 fields, got %d", len(parts))
	}

	rows, d, err := parsePlacementRows(parts[0])
	if err != nil {
		return nil, err
	}
	b := NewBoard(d)

	// Parse piece placement (field 0)
	for i, row := range rows {
		rank := d.Ranks - 1 - i // FEN starts from the top rank
		for file, piece := range row {
			if piece != NoPiece {
				b.set(Square{File: file, Rank: rank}, piece)
			}
		}
	}

	// Parse side to move (field 1)
	switch parts[1] {
	case "w":
		b.sideToMove = White
	case "b":
		b.sideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move: %s", parts[1])
	}

	// Parse castling rights (field 2)
	cr, err := parseCastlingRights(parts[2])
	if err != nil {
		return nil, err
	}
	b.SetCastling(cr)

	// Parse en passant square (field 3)
	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil || !d.Contains(sq) {
			return nil, fmt.Errorf("invalid en passant square: %s", parts[3])
		}
		b.enPassant = sq
	}

	// Parse half-move clock (field 4, optional)
	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil || hmc < 0 {
			return nil, fmt.Errorf("invalid half-move clock: %s", parts[4])
		}
		b.halfMove = hmc
	}

	// Parse full-move number (field 5, optional)
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil || fmn < 1 {
			return nil, fmt.Errorf("invalid full-move number: %s", parts[5])
		}
		b.fullMove = fmn
	}

	return b, nil
}

// parsePlacementRows splits the placement field into rows of pieces, top
// rank first, and derives the board size from them.
func parsePlacementRows(placement string) ([][]Piece, Dims, error) {
	ranks := strings.Split(placement, "/")
	rows := make([][]Piece, len(ranks))

	for i, rankStr := range ranks {
		var row []Piece
		for j := 0; j < len(rankStr); j++ {
			c := rankStr[j]
			if c >= '1' && c <= '9' {
				// Skip empty squares, possibly a multi-digit run
				k := j
				for k+1 < len(rankStr) && rankStr[k+1] >= '0' && rankStr[k+1] <= '9' {
					k++
				}
				n, _ := strconv.Atoi(rankStr[j : k+1])
				for ; n > 0; n-- {
					row = append(row, NoPiece)
				}
				j = k
				continue
			}
			piece := PieceFromChar(c)
			if piece == NoPiece {
				return nil, Dims{}, fmt.Errorf("invalid piece character: %c", c)
			}
			row = append(row, piece)
		}
		if i > 0 && len(row) != len(rows[0]) {
			return nil, Dims{}, fmt.Errorf("invalid number of squares in row %d: got %d, want %d", i+1, len(row), len(rows[0]))
		}
		rows[i] = row
	}

	d := Dims{Ranks: len(rows)}
	if len(rows) > 0 {
		d.Files = len(rows[0])
	}
	if err := d.Validate(); err != nil {
		return nil, Dims{}, err
	}
	return rows, d, nil
}

// parseCastlingRights parses the castling rights section of a FEN string.
func parseCastlingRights(castling string) (CastlingRights, error) {
	if castling == "-" {
		return NoCastling, nil
	}

	var cr CastlingRights
	for _, c := range castling {
		switch c {
		case 'K':
			cr |= WhiteKingSideCastle
		case 'Q':
			cr |= WhiteQueenSideCastle
		case 'k':
			cr |= BlackKingSideCastle
		case 'q':
			cr |= BlackQueenSideCastle
		default:
			return NoCastling, fmt.Errorf("invalid castling character: %c", c)
		}
	}
	return cr, nil
}

// ToFEN returns the FEN representation of the board.
func (b *Board) ToFEN() string {
	var sb strings.Builder

	// Piece placement
	for rank := b.dims.Ranks - 1; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < b.dims.Files; file++ {
			piece := b.at(Square{File: file, Rank: rank})
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	// Side to move
	sb.WriteByte(' ')
	if b.sideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	// Castling rights
	sb.WriteByte(' ')
	sb.WriteString(b.castling.String())

	// En passant
	sb.WriteByte(' ')
	sb.WriteString(b.enPassant.String())

	// Half-move clock and full-move number
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.halfMove))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(b.fullMove))

	return sb.String()
}
