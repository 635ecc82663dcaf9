package board

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Validate checks that the board holds a playable position and reports
// every problem found, not just the first.
func (b *Board) Validate() error {
	var result *multierror.Error

	// Check that each side has exactly one king
	var kings [2]int
	for i, p := range b.squares {
		if p == NoPiece {
			continue
		}
		if p.Type() == King {
			kings[p.Color()]++
		}
		// Pawns cannot stand on either back rank
		if sq := b.dims.Square(i); p.Type() == Pawn && (sq.Rank == 0 || sq.Rank == b.dims.Ranks-1) {
			result = multierror.Append(result, fmt.Errorf("%s pawn on back rank at %s", p.Color(), sq))
		}
	}
	for c := White; c <= Black; c++ {
		if kings[c] != 1 {
			result = multierror.Append(result, fmt.Errorf("%s must have exactly one king, has %d", c, kings[c]))
		}
	}

	// The side that just moved cannot have left its king capturable
	if kings[White] == 1 && kings[Black] == 1 && b.Check(b.sideToMove.Other()) {
		result = multierror.Append(result, fmt.Errorf("%s to move but %s king is in check", b.sideToMove, b.sideToMove.Other()))
	}

	if b.enPassant != NoSquare && b.dims.RelativeRank(b.enPassant, b.sideToMove) != b.dims.Ranks-3 {
		result = multierror.Append(result, fmt.Errorf("en passant square %s on wrong rank", b.enPassant))
	}

	return result.ErrorOrNil()
}
