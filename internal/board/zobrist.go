package board

// Simple PRNG for reproducible Zobrist keys
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

// xorshift64* algorithm
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

// initZobrist fills the table's hash keys. The seed is fixed so a position
// hashes the same way in every run.
func (t *rayTable) initZobrist() {
	rng := newPRNG(0x98F107A2BEEF1234)
	n := t.dims.Size()

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			t.keys[c][pt] = make([]uint64, n)
			for i := range t.keys[c][pt] {
				t.keys[c][pt][i] = rng.next()
			}
		}
	}

	t.ep = make([]uint64, t.dims.Files)
	for file := range t.ep {
		t.ep[file] = rng.next()
	}

	for i := range t.castl {
		t.castl[i] = rng.next()
	}

	t.side = rng.next()
}

// Hash returns the Zobrist key of the position: placement, side to move,
// castling rights and, when a capture is possible, the en passant file.
// Undo history is not part of the key.
func (b *Board) Hash() uint64 {
	t := b.table
	var hash uint64

	for i, p := range b.squares {
		if p != NoPiece {
			hash ^= t.keys[p.Color()][p.Type()][i]
		}
	}

	if b.sideToMove == Black {
		hash ^= t.side
	}

	hash ^= t.castl[b.castling]

	if b.enPassantCapturable() {
		hash ^= t.ep[b.enPassant.File]
	}

	return hash
}

// enPassantCapturable reports whether a pawn of the side to move stands
// beside the pawn that just pushed two squares. The en passant square only
// counts towards position identity when it does.
func (b *Board) enPassantCapturable() bool {
	if b.enPassant == NoSquare {
		return false
	}
	rank := b.enPassant.Rank - 1
	if b.sideToMove == Black {
		rank = b.enPassant.Rank + 1
	}
	pawn := NewPiece(Pawn, b.sideToMove)
	for _, file := range [2]int{b.enPassant.File - 1, b.enPassant.File + 1} {
		sq := Square{File: file, Rank: rank}
		if b.dims.Contains(sq) && b.at(sq) == pawn {
			return true
		}
	}
	return false
}
