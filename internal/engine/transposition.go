package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// hashEntrySize is the approximate size of a hashEntry in bytes.
const hashEntrySize = 64

// hashEntry remembers the best move found for a position. Scores are not
// stored: the table only feeds move ordering, so the search result is the
// same with or without it.
type hashEntry struct {
	key      uint64 // Full Zobrist key for verification
	bestMove board.Move
	depth    int8
}

// hashTable is a move-ordering cache keyed by Board.Hash. A new table is
// built for every search and dropped when the search returns.
type hashTable struct {
	entries []hashEntry
	mask    uint64
	used    int
}

// newHashTable creates a table of roughly sizeMB megabytes.
func newHashTable(sizeMB int) *hashTable {
	n := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / hashEntrySize)
	if n == 0 {
		n = 1
	}
	return &hashTable{
		entries: make([]hashEntry, n),
		mask:    n - 1,
	}
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// probe returns the remembered best move for the position, or NoMove.
func (t *hashTable) probe(key uint64) board.Move {
	e := &t.entries[key&t.mask]
	if e.key == key && e.depth > 0 {
		return e.bestMove
	}
	return board.NoMove
}

// store records the best move of a position searched to the given depth.
// Deeper results for the same slot are kept.
func (t *hashTable) store(key uint64, depth int, m board.Move) {
	if m == board.NoMove {
		return
	}
	e := &t.entries[key&t.mask]
	if e.depth == 0 {
		t.used++
	} else if e.key != key && int(e.depth) > depth {
		return
	}
	e.key = key
	e.bestMove = m
	e.depth = int8(depth)
}

// hashFull returns the permille of slots in use.
func (t *hashTable) hashFull() int {
	return t.used * 1000 / len(t.entries)
}

// pv follows remembered best moves from b, checking each one against the
// legal moves of the position it is played in. b is not modified.
func (t *hashTable) pv(b *board.Board, maxLen int) []board.Move {
	var line []board.Move
	p := b.Copy()
	seen := make(map[uint64]bool)

	for len(line) < maxLen {
		key := p.Hash()
		if seen[key] {
			break
		}
		seen[key] = true

		m := t.probe(key)
		if m == board.NoMove || !isLegal(p, m) {
			break
		}
		line = append(line, m)
		p.Move(m)
	}
	return line
}

// isLegal reports whether m is one of the side to move's legal moves in b.
func isLegal(b *board.Board, m board.Move) bool {
	if !b.Dims().Contains(m.From) {
		return false
	}
	if p := b.PieceAt(m.From); p == board.NoPiece || p.Color() != b.SideToMove() {
		return false
	}
	for legal := range b.Moves(m.From) {
		if legal == m {
			return true
		}
	}
	return false
}
