package board

import (
	"fmt"
	"sync"
)

// RayKind says how a piece may use the squares of a ray.
type RayKind uint8

const (
	RayMove    RayKind = iota // move to an empty square or capture an enemy
	RayPush                   // move only onto empty squares (pawn advance)
	RayCapture                // capture only, including en passant
)

// Ray is an ordered run of squares reachable from an origin, nearest first.
// Sliding pieces are stopped by the first occupied square of a ray.
type Ray struct {
	Kind    RayKind
	Squares []Square
}

type step struct{ df, dr int }

var (
	knightSteps = []step{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = []step{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	rookDirs    = []step{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	bishopDirs  = []step{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	queenDirs   = append(append([]step{}, rookDirs...), bishopDirs...)
)

// Rays returns the geometric reach of a piece of type pt and color c standing
// on from: every square it could move to in one move on an empty board of
// size d, grouped into rays. Occupancy, pins and check are not considered.
// Panics if from is off the board.
func (pt PieceType) Rays(from Square, c Color, d Dims) []Ray {
	if !d.Contains(from) {
		panic(fmt.Sprintf("board: rays from %v outside %v board", from, d))
	}

	switch pt {
	case Pawn:
		return pawnRays(from, c, d)
	case Knight:
		return stepRays(from, d, knightSteps)
	case Bishop:
		return slideRays(from, d, bishopDirs)
	case Rook:
		return slideRays(from, d, rookDirs)
	case Queen:
		return slideRays(from, d, queenDirs)
	case King:
		return stepRays(from, d, kingSteps)
	default:
		return nil
	}
}

func stepRays(from Square, d Dims, steps []step) []Ray {
	rays := make([]Ray, 0, len(steps))
	for _, s := range steps {
		to := from.Offset(s.df, s.dr)
		if d.Contains(to) {
			rays = append(rays, Ray{Kind: RayMove, Squares: []Square{to}})
		}
	}
	return rays
}

func slideRays(from Square, d Dims, dirs []step) []Ray {
	rays := make([]Ray, 0, len(dirs))
	for _, s := range dirs {
		var squares []Square
		for to := from.Offset(s.df, s.dr); d.Contains(to); to = to.Offset(s.df, s.dr) {
			squares = append(squares, to)
		}
		if len(squares) > 0 {
			rays = append(rays, Ray{Kind: RayMove, Squares: squares})
		}
	}
	return rays
}

// pawnRays returns the push ray (two squares long from the pawn's second
// rank) and the two diagonal capture squares.
func pawnRays(from Square, c Color, d Dims) []Ray {
	dir := 1
	if c == Black {
		dir = -1
	}

	var rays []Ray
	var push []Square
	length := 1
	if d.RelativeRank(from, c) == 1 {
		length = 2
	}
	for i := 1; i <= length; i++ {
		to := from.Offset(0, dir*i)
		if !d.Contains(to) {
			break
		}
		push = append(push, to)
	}
	if len(push) > 0 {
		rays = append(rays, Ray{Kind: RayPush, Squares: push})
	}

	for _, df := range []int{-1, 1} {
		to := from.Offset(df, dir)
		if d.Contains(to) {
			rays = append(rays, Ray{Kind: RayCapture, Squares: []Square{to}})
		}
	}
	return rays
}

// rayTable caches the rays of every piece on every square, plus the Zobrist
// keys, for one board size. Tables are shared by all boards of that size and
// never modified after construction.
type rayTable struct {
	dims  Dims
	rays  [2][6][][]Ray // [Color][PieceType][square index]
	keys  [2][6][]uint64
	side  uint64
	ep    []uint64 // one per file
	castl [16]uint64
}

var rayTables sync.Map // Dims -> *rayTable

func tableFor(d Dims) *rayTable {
	if t, ok := rayTables.Load(d); ok {
		return t.(*rayTable)
	}
	t, _ := rayTables.LoadOrStore(d, newRayTable(d))
	return t.(*rayTable)
}

func newRayTable(d Dims) *rayTable {
	t := &rayTable{dims: d}
	n := d.Size()
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			t.rays[c][pt] = make([][]Ray, n)
			for i := 0; i < n; i++ {
				t.rays[c][pt][i] = pt.Rays(d.Square(i), c, d)
			}
		}
	}
	t.initZobrist()
	return t
}

func (t *rayTable) get(pt PieceType, c Color, sq Square) []Ray {
	return t.rays[c][pt][t.dims.Index(sq)]
}
