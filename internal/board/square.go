// Package board implements the chess rules: pieces, squares, moves and a
// mailbox board of configurable size with legality filtering and undo.
package board

import (
	"fmt"
	"strconv"
)

// Board size limits. Files are lettered, so at most 26 of them.
const (
	MinFiles = 5
	MaxFiles = 26
	MinRanks = 5
	MaxRanks = 16
)

// Dims is the size of a board in files (columns) and ranks (rows).
type Dims struct {
	Files int
	Ranks int
}

// Standard is the 8x8 board.
var Standard = Dims{Files: 8, Ranks: 8}

// Validate reports whether the dimensions are within the supported limits.
func (d Dims) Validate() error {
	if d.Files < MinFiles || d.Files > MaxFiles {
		return fmt.Errorf("invalid board width %d: want %d-%d files", d.Files, MinFiles, MaxFiles)
	}
	if d.Ranks < MinRanks || d.Ranks > MaxRanks {
		return fmt.Errorf("invalid board height %d: want %d-%d ranks", d.Ranks, MinRanks, MaxRanks)
	}
	return nil
}

// Size returns the number of squares.
func (d Dims) Size() int {
	return d.Files * d.Ranks
}

// Contains returns true if the square lies on the board.
func (d Dims) Contains(sq Square) bool {
	return sq.File >= 0 && sq.File < d.Files && sq.Rank >= 0 && sq.Rank < d.Ranks
}

// Index returns the array index of a square. Out-of-range squares panic:
// coordinates are never wrapped.
func (d Dims) Index(sq Square) int {
	if !d.Contains(sq) {
		panic(fmt.Sprintf("board: square %v outside %v board", sq, d))
	}
	return sq.Rank*d.Files + sq.File
}

// Square returns the square at array index i.
func (d Dims) Square(i int) Square {
	return Square{File: i % d.Files, Rank: i / d.Files}
}

// BackRank returns the first rank of the given color.
func (d Dims) BackRank(c Color) int {
	if c == White {
		return 0
	}
	return d.Ranks - 1
}

// RelativeRank returns the rank of sq counted from c's side of the board.
func (d Dims) RelativeRank(sq Square, c Color) int {
	if c == White {
		return sq.Rank
	}
	return d.Ranks - 1 - sq.Rank
}

// String returns the dimensions as "8x8".
func (d Dims) String() string {
	return fmt.Sprintf("%dx%d", d.Files, d.Ranks)
}

// Square is a (file, rank) coordinate, both 0-indexed: a1 is {0, 0}.
type Square struct {
	File int
	Rank int
}

// NoSquare marks an absent square (no en passant target, no king).
var NoSquare = Square{File: -1, Rank: -1}

// NewSquare creates a square from file and rank (0-indexed).
func NewSquare(file, rank int) Square {
	return Square{File: file, Rank: rank}
}

// Offset returns the square shifted by df files and dr ranks. The result
// may lie off the board.
func (sq Square) Offset(df, dr int) Square {
	return Square{File: sq.File + df, Rank: sq.Rank + dr}
}

// String returns the algebraic notation for the square (e.g., "e4", "b10").
func (sq Square) String() string {
	if sq.File < 0 || sq.File >= MaxFiles || sq.Rank < 0 {
		return "-"
	}
	return string(rune('a'+sq.File)) + strconv.Itoa(sq.Rank+1)
}

// ParseSquare parses algebraic notation (e.g., "e4") into a Square.
// Ranks above 9 are written with two digits ("c12").
func ParseSquare(s string) (Square, error) {
	sq, n := scanSquare(s)
	if n == 0 || n != len(s) {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}
	return sq, nil
}

// scanSquare reads a square from the front of s and returns it with the
// number of bytes consumed (0 if s does not start with a square).
func scanSquare(s string) (Square, int) {
	if len(s) < 2 || s[0] < 'a' || s[0] >= 'a'+MaxFiles {
		return NoSquare, 0
	}
	n := 1
	for n < len(s) && n < 3 && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == 1 || s[1] == '0' {
		return NoSquare, 0
	}
	rank, err := strconv.Atoi(s[1:n])
	if err != nil || rank > MaxRanks {
		return NoSquare, 0
	}
	return Square{File: int(s[0] - 'a'), Rank: rank - 1}, n
}
