// Package book implements opening books for the standard 8x8 board.
//
// Books use the Polyglot format: 16-byte big-endian records of position
// key, move, weight and learn data, sorted by key. Keys come from
// Board.PolyglotHash and castling is stored as the king taking its own
// rook (e1h1 for white short castling).
package book

import (
	"encoding/binary"
	"io"
	"os"
	"slices"

	"github.com/pkg/errors"

	"github.com/hailam/chesscore/internal/board"
)

// ErrUnsupportedBoard is returned when adding a position that is not on the
// standard 8x8 board.
var ErrUnsupportedBoard = errors.New("book: only 8x8 boards are supported")

const entrySize = 16

// Entry is a single book move.
type Entry struct {
	Move   board.Move
	Weight uint16
}

// Book represents an opening book.
type Book struct {
	entries map[uint64][]Entry
}

// New creates an empty book.
func New() *Book {
	return &Book{
		entries: make(map[uint64][]Entry),
	}
}

// Load reads a book file.
func Load(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening book")
	}
	defer file.Close()

	bk, err := Read(file)
	return bk, errors.Wrapf(err, "reading book %s", filename)
}

// Read reads a book from r.
func Read(r io.Reader) (*Book, error) {
	bk := New()
	var entry [entrySize]byte

	for {
		_, err := io.ReadFull(r, entry[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		key := binary.BigEndian.Uint64(entry[0:8])
		m, ok := decodeMove(binary.BigEndian.Uint16(entry[8:10]))
		if !ok {
			continue
		}
		bk.entries[key] = append(bk.entries[key], Entry{
			Move:   m,
			Weight: binary.BigEndian.Uint16(entry[10:12]),
		})
	}

	return bk, nil
}

// WriteTo writes the book to w, sorted by key and then by weight.
func (b *Book) WriteTo(w io.Writer) (int64, error) {
	keys := make([]uint64, 0, len(b.entries))
	for key := range b.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var written int64
	var entry [entrySize]byte
	for _, key := range keys {
		for _, e := range b.sorted(key) {
			binary.BigEndian.PutUint64(entry[0:8], key)
			binary.BigEndian.PutUint16(entry[8:10], encodeMove(e.Move))
			binary.BigEndian.PutUint16(entry[10:12], e.Weight)
			n, err := w.Write(entry[:])
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// Add records m as a book move in pos with the given weight. Adding a move
// that is already in the book raises its weight.
func (b *Book) Add(pos *board.Board, m board.Move, weight uint16) error {
	if pos.Dims() != board.Standard {
		return ErrUnsupportedBoard
	}
	legal, ok := findLegal(pos, m)
	if !ok {
		return errors.Errorf("book: %s is not legal in %s", m, pos.ToFEN())
	}

	key, _ := pos.PolyglotHash()
	entries := b.entries[key]
	for i := range entries {
		if sameMove(entries[i].Move, legal) {
			entries[i].Weight = satAdd(entries[i].Weight, weight)
			return nil
		}
	}
	b.entries[key] = append(entries, Entry{Move: legal, Weight: weight})
	return nil
}

// Probe returns the heaviest legal book move for pos. Ties go to the move
// added or read first.
func (b *Book) Probe(pos *board.Board) (board.Move, bool) {
	entries := b.ProbeAll(pos)
	if len(entries) == 0 {
		return board.NoMove, false
	}
	return entries[0].Move, true
}

// ProbeAll returns the legal book moves for pos, heaviest first.
func (b *Book) ProbeAll(pos *board.Board) []Entry {
	if b == nil {
		return nil
	}
	key, ok := pos.PolyglotHash()
	if !ok {
		return nil
	}

	var result []Entry
	for _, e := range b.sorted(key) {
		// Keys can collide; only moves legal here count
		if legal, ok := findLegal(pos, e.Move); ok {
			result = append(result, Entry{Move: legal, Weight: e.Weight})
		}
	}
	return result
}

// Size returns the number of unique positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

func (b *Book) sorted(key uint64) []Entry {
	entries := slices.Clone(b.entries[key])
	slices.SortStableFunc(entries, func(x, y Entry) int {
		return int(y.Weight) - int(x.Weight)
	})
	return entries
}

// findLegal matches m against the legal moves of the side to move by
// squares and promotion, returning the generated move with its flags. A
// castling move matches either its king destination or the rook square.
func findLegal(pos *board.Board, m board.Move) (board.Move, bool) {
	if !pos.Dims().Contains(m.From) || !pos.Dims().Contains(m.To) {
		return board.NoMove, false
	}
	if p := pos.PieceAt(m.From); p == board.NoPiece || p.Color() != pos.SideToMove() {
		return board.NoMove, false
	}
	for legal := range pos.Moves(m.From) {
		if legal.Promotion != m.Promotion {
			continue
		}
		if legal.To == m.To || legal.IsCastling() && castlingRook(legal) == m.To {
			return legal, true
		}
	}
	return board.NoMove, false
}

func sameMove(a, b board.Move) bool {
	return encodeMove(a) == encodeMove(b)
}

// castlingRook returns the corner square of the rook a castling move on
// the standard board uses.
func castlingRook(m board.Move) board.Square {
	if m.To.File > m.From.File {
		return board.NewSquare(7, m.From.Rank)
	}
	return board.NewSquare(0, m.From.Rank)
}

// Move encoding (bits):
// 0-5: to square (file + 8*rank)
// 6-11: from square
// 12-14: promotion piece (0=none, 1=knight, 2=bishop, 3=rook, 4=queen)
var promotionCodes = [...]board.PieceType{board.NoPieceType, board.Knight, board.Bishop, board.Rook, board.Queen}

func encodeMove(m board.Move) uint16 {
	if m.IsCastling() {
		m.To = castlingRook(m)
	}
	data := uint16(m.To.File) | uint16(m.To.Rank)<<3 | uint16(m.From.File)<<6 | uint16(m.From.Rank)<<9
	if m.IsPromotion() {
		data |= uint16(slices.Index(promotionCodes[:], m.Promotion)) << 12
	}
	return data
}

func decodeMove(data uint16) (board.Move, bool) {
	to := board.NewSquare(int(data&7), int(data>>3&7))
	from := board.NewSquare(int(data>>6&7), int(data>>9&7))
	promo := int(data >> 12 & 7)
	if promo >= len(promotionCodes) || from == to {
		return board.NoMove, false
	}

	m := board.NewMove(from, to)
	m.Promotion = promotionCodes[promo]
	return m, true
}

func satAdd(a, b uint16) uint16 {
	if s := uint32(a) + uint32(b); s <= 0xFFFF {
		return uint16(s)
	}
	return 0xFFFF
}
