package engine

import (
	"context"

	"github.com/hailam/chesscore/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// ctxCheckInterval is how many nodes are searched between context checks.
const ctxCheckInterval = 256

// searcher runs one alpha-beta search. Nothing in it outlives the call that
// created it.
type searcher struct {
	ctx     context.Context
	tt      *hashTable
	orderer *moveOrderer
	nodes   uint64
}

func newSearcher(ctx context.Context, hashMB int) *searcher {
	return &searcher{
		ctx:     ctx,
		tt:      newHashTable(hashMB),
		orderer: newMoveOrderer(),
	}
}

// searchRoot searches every root move to the given depth and returns the
// best one with its score. Ties go to the move searched first. progress is
// called after each root move with the number of moves done.
func (s *searcher) searchRoot(b *board.Board, moves []board.Move, depth int, progress func(done int)) (board.Move, int, error) {
	hash := b.Hash()
	s.orderer.sort(b, moves, 0, s.tt.probe(hash))

	alpha, beta := -Infinity, Infinity
	bestMove := board.NoMove
	bestScore := -Infinity

	for i, m := range moves {
		if err := s.ctx.Err(); err != nil {
			return bestMove, bestScore, err
		}

		b.Move(m)
		score, err := s.negamax(b, depth-1, 1, -beta, -alpha)
		b.Undo()
		if err != nil {
			return bestMove, bestScore, err
		}
		score = -score

		if score > bestScore {
			bestScore = score
			bestMove = m
		}
		if score > alpha {
			alpha = score
		}
		if progress != nil {
			progress(i + 1)
		}
	}

	s.tt.store(hash, depth, bestMove)
	return bestMove, bestScore, nil
}

// negamax returns the score of b for the side to move, searched depth
// plies deep. Mate scores are biased by ply so that quicker mates score
// higher.
func (s *searcher) negamax(b *board.Board, depth, ply, alpha, beta int) (int, error) {
	s.nodes++
	if s.nodes%ctxCheckInterval == 0 {
		if err := s.ctx.Err(); err != nil {
			return 0, err
		}
	}

	us := b.SideToMove()

	if depth <= 0 || ply >= MaxPly {
		if !b.HasLegalMoves(us) {
			return terminalScore(b, us, ply), nil
		}
		return Evaluate(b, us), nil
	}

	moves := b.MoveList(us)
	if len(moves) == 0 {
		return terminalScore(b, us, ply), nil
	}

	hash := b.Hash()
	s.orderer.sort(b, moves, ply, s.tt.probe(hash))

	best := -Infinity
	bestMove := board.NoMove
	for _, m := range moves {
		b.Move(m)
		score, err := s.negamax(b, depth-1, ply+1, -beta, -alpha)
		b.Undo()
		if err != nil {
			return 0, err
		}
		score = -score

		if score > best {
			best = score
			bestMove = m
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta {
			s.orderer.addKiller(ply, m)
			break
		}
	}

	s.tt.store(hash, depth, bestMove)
	return best, nil
}

// terminalScore scores a position where us has no legal moves: mated or
// stalemated.
func terminalScore(b *board.Board, us board.Color, ply int) int {
	if b.Check(us) {
		return -(MateScore - ply)
	}
	return 0
}

// IsMateScore reports whether score announces a forced mate.
func IsMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}
