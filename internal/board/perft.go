package board

// Perft counts the leaf nodes of the legal move tree to the given depth.
// It is the standard way to check a move generator against known totals.
// A negative depth counts nothing.
func Perft(b *Board, depth int) int64 {
	if depth < 0 {
		return 0
	}
	if depth == 0 {
		return 1
	}

	moves := b.MoveList(b.sideToMove)
	if depth == 1 {
		return int64(len(moves))
	}

	var nodes int64
	for _, m := range moves {
		b.Move(m)
		nodes += Perft(b, depth-1)
		b.Undo()
	}
	return nodes
}
