// Package game runs a chess game between two players: it alternates turns,
// asks the player to move off the caller's goroutine, applies and checks
// the moves, detects the end of the game and notifies listeners.
package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hailam/chesscore/internal/board"
)

var (
	// ErrIllegalMove is returned by Move for a move that is not legal for
	// the side to move.
	ErrIllegalMove = errors.New("game: illegal move")
)

// State is the phase of a game.
type State int

const (
	NotStarted State = iota
	WhiteTurn
	BlackTurn
	Done
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case WhiteTurn:
		return "white to move"
	case BlackTurn:
		return "black to move"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func turnState(c board.Color) State {
	if c == board.White {
		return WhiteTurn
	}
	return BlackTurn
}

// Option configures a Game.
type Option func(*Game)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logr.Logger) Option {
	return func(g *Game) {
		g.log = l
	}
}

// WithDrawRules enables adjudication of the fifty-move rule, threefold
// repetition and insufficient material. Without it only stalemate draws.
func WithDrawRules(enabled bool) Option {
	return func(g *Game) {
		g.drawRules = enabled
	}
}

// WithID sets the game ID instead of a random one.
func WithID(id uuid.UUID) Option {
	return func(g *Game) {
		g.id = id
	}
}

// Game is a chess game between two players. The game owns its board: every
// other component, players included, only ever sees copies.
type Game struct {
	id        uuid.UUID
	log       logr.Logger
	drawRules bool

	mu       sync.Mutex
	board    *board.Board
	players  [2]Player
	state    State
	status   string
	progress float32
	winner   board.Color // NoColor for a draw or an unfinished game
	reason   string      // How the game ended
	hashes   []uint64    // Position keys, one per position reached
	sans     []string    // Moves played, in SAN
	finished chan struct{}

	listeners []listenerEntry

	// Turn dispatch
	ctx        context.Context
	cancel     context.CancelFunc
	generation uint64
	turnCancel context.CancelFunc
	tasks      chan turnTask
	workerDone chan struct{}
}

// New creates a game on b between white and black. The game takes
// ownership of b; callers must not touch it afterwards.
func New(b *board.Board, white, black Player, opts ...Option) *Game {
	if white == nil || black == nil {
		panic("game: nil player")
	}
	g := &Game{
		id:       uuid.New(),
		log:      logr.Discard(),
		board:    b,
		players:  [2]Player{white, black},
		winner:   board.NoColor,
		hashes:   []uint64{b.Hash()},
		finished: make(chan struct{}),
		tasks:    make(chan turnTask, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.WithName("game").WithValues("game", g.id.String())
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.status = "Not started."
	return g
}

// ID returns the game's unique ID.
func (g *Game) ID() uuid.UUID {
	return g.id
}

// Begin starts the game: it sets the turn to the side about to move,
// notifies listeners and, unless the game is already over, asks that
// side's player for a move. Begin returns immediately; calling it again
// has no effect.
func (g *Game) Begin() {
	g.mu.Lock()
	if g.state != NotStarted {
		g.mu.Unlock()
		g.log.Info("begin called twice")
		return
	}
	for _, p := range g.players {
		p.SetGame(g)
	}
	g.workerDone = make(chan struct{})
	go g.worker()

	us := g.board.SideToMove()
	g.state = turnState(us)
	g.status = turnStatus(us)
	if !g.checkGameOverLocked() {
		g.dispatchLocked()
	}
	boards := g.boardCopiesLocked()
	g.mu.Unlock()

	g.log.Info("game started", "fen", boards[0].ToFEN())
	g.sendBoards(boards)
	g.notify()
}

// Move applies m for the side to move. Once the game is over Move does
// nothing and returns nil. A move that is not legal returns ErrIllegalMove
// and leaves the game untouched.
func (g *Game) Move(m board.Move) error {
	return g.play(m, 0, false)
}

// play applies m. With checkGen set the move is dropped unless gen is
// still the current turn generation.
func (g *Game) play(m board.Move, gen uint64, checkGen bool) error {
	g.mu.Lock()
	if g.state == Done || (checkGen && gen != g.generation) {
		g.mu.Unlock()
		return nil
	}
	m, ok := g.legalLocked(m)
	if !ok {
		g.mu.Unlock()
		return errors.Wrapf(ErrIllegalMove, "%s in %s", m, g.board.ToFEN())
	}

	us := g.board.SideToMove()
	san := g.board.SAN(m)
	g.board.Move(m)
	g.hashes = append(g.hashes, g.board.Hash())
	g.sans = append(g.sans, san)
	g.log.V(1).Info("move", "side", us.String(), "move", san)

	g.stopTurnLocked()
	g.progress = 0
	if g.state != NotStarted {
		g.state = turnState(us.Other())
		g.status = turnStatus(us.Other())
		if !g.checkGameOverLocked() {
			g.dispatchLocked()
		}
	}
	boards := g.boardCopiesLocked()
	g.mu.Unlock()

	g.sendBoards(boards)
	g.notify()
	return nil
}

// legalLocked looks m up among the legal moves of the side to move,
// matching on squares and promotion, and returns the generated move.
func (g *Game) legalLocked(m board.Move) (board.Move, bool) {
	if !g.board.Dims().Contains(m.From) || !g.board.Dims().Contains(m.To) {
		return m, false
	}
	if p := g.board.PieceAt(m.From); p == board.NoPiece || p.Color() != g.board.SideToMove() {
		return m, false
	}
	for legal := range g.board.Moves(m.From) {
		if legal.To == m.To && legal.Promotion == m.Promotion {
			return legal, true
		}
	}
	return m, false
}

// Undo takes back the last move. It reopens a finished game, discards any
// move the interrupted player is still working on and asks the player now
// to move for a fresh one. Returns board.ErrNoHistory if no move was made.
func (g *Game) Undo() error {
	_, err := g.undo(func(*board.Board) bool { return false })
	return err
}

// TakeBack undoes the last move and then keeps undoing until side is to
// move or the history runs out, all under one lock. The player to move is
// asked for a move once, at the end. Returns the number of moves undone.
func (g *Game) TakeBack(side board.Color) (int, error) {
	return g.undo(func(b *board.Board) bool { return b.SideToMove() != side })
}

func (g *Game) undo(more func(*board.Board) bool) (int, error) {
	g.mu.Lock()
	if err := g.undoLocked(); err != nil {
		g.mu.Unlock()
		return 0, err
	}
	n := 1
	for more(g.board) && g.undoLocked() == nil {
		n++
	}

	g.stopTurnLocked()
	g.progress = 0
	g.winner = board.NoColor
	g.reason = ""
	if g.state == Done {
		g.finished = make(chan struct{})
	}

	us := g.board.SideToMove()
	if g.state != NotStarted {
		g.state = turnState(us)
		g.status = turnStatus(us)
		if g.ctx.Err() == nil {
			g.dispatchLocked()
		}
	}
	boards := g.boardCopiesLocked()
	g.mu.Unlock()

	g.log.V(1).Info("undo", "side", us.String(), "plies", n)
	g.sendBoards(boards)
	g.notify()
	return n, nil
}

func (g *Game) undoLocked() error {
	if err := g.board.Undo(); err != nil {
		return err
	}
	g.hashes = g.hashes[:len(g.hashes)-1]
	g.sans = g.sans[:len(g.sans)-1]
	return nil
}

// checkGameOverLocked ends the game if the side to move is mated,
// stalemated or, with draw rules on, drawn. Returns true if it ended.
func (g *Game) checkGameOverLocked() bool {
	b := g.board
	us := b.SideToMove()

	switch {
	case b.Checkmate(us):
		g.finishLocked(us.Other(), "checkmate", winStatus(us.Other()))
	case b.Stalemate(us):
		g.finishLocked(board.NoColor, "stalemate", "Stalemate!")
	case g.drawRules && b.HalfMoveClock() >= 100:
		g.finishLocked(board.NoColor, "fifty-move rule", "Draw by fifty-move rule.")
	case g.drawRules && g.repetitionsLocked() >= 3:
		g.finishLocked(board.NoColor, "threefold repetition", "Draw by threefold repetition.")
	case g.drawRules && b.InsufficientMaterial():
		g.finishLocked(board.NoColor, "insufficient material", "Draw by insufficient material.")
	default:
		return false
	}
	return true
}

// repetitionsLocked counts how often the current position has occurred.
func (g *Game) repetitionsLocked() int {
	current := g.hashes[len(g.hashes)-1]
	count := 0
	for _, h := range g.hashes {
		if h == current {
			count++
		}
	}
	return count
}

func (g *Game) finishLocked(winner board.Color, reason, status string) {
	g.state = Done
	g.winner = winner
	g.reason = reason
	g.status = status
	g.progress = 0
	close(g.finished)
	g.log.Info("game over", "reason", reason, "winner", winner.String(), "plies", len(g.sans))
}

func turnStatus(c board.Color) string {
	return c.String() + "'s turn."
}

func winStatus(c board.Color) string {
	return c.String() + " wins!"
}

// SetStatus sets the status message and notifies listeners. Panics on an
// empty message.
func (g *Game) SetStatus(msg string) {
	if msg == "" {
		panic("game: empty status message")
	}
	g.mu.Lock()
	g.status = msg
	g.mu.Unlock()
	g.notify()
}

// SetProgress sets the progress of the current turn and notifies
// listeners. Panics unless 0 <= v <= 1.
func (g *Game) SetProgress(v float32) {
	if math32.IsNaN(v) || v < 0 || v > 1 {
		panic(fmt.Sprintf("game: progress %v outside [0, 1]", v))
	}
	g.mu.Lock()
	g.progress = v
	g.mu.Unlock()
	g.notify()
}

// turnProgress sets progress on behalf of the turn running under ctx. Turn
// contexts are cancelled under g.mu, so once a move or undo has reset the
// progress a late report from the old turn is ignored.
func (g *Game) turnProgress(ctx context.Context, v float32) {
	if math32.IsNaN(v) || v < 0 || v > 1 {
		panic(fmt.Sprintf("game: progress %v outside [0, 1]", v))
	}
	g.mu.Lock()
	if ctx.Err() != nil {
		g.mu.Unlock()
		return
	}
	g.progress = v
	g.mu.Unlock()
	g.notify()
}

// Board returns a copy of the current position.
func (g *Game) Board() *board.Board {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board.Copy()
}

// State returns the phase of the game.
func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Turn returns the side to move.
func (g *Game) Turn() board.Color {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board.SideToMove()
}

// Status returns the status message.
func (g *Game) Status() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Progress returns the progress of the current turn, from 0 to 1.
func (g *Game) Progress() float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.progress
}

// Done returns true once the game is over.
func (g *Game) Done() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == Done
}

// Winner returns the winning side. ok is false while the game is running
// and for draws.
func (g *Game) Winner() (c board.Color, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner, g.winner != board.NoColor
}

// Result returns how the game ended ("checkmate", "stalemate", ...), or ""
// while it is running.
func (g *Game) Result() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reason
}

// MovesSAN returns the moves played so far in SAN.
func (g *Game) MovesSAN() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.sans...)
}

// Player returns the player of side c.
func (g *Game) Player(c board.Color) Player {
	return g.players[c]
}

// Wait blocks until the game is over or ctx is done.
func (g *Game) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		finished := g.finished
		g.mu.Unlock()

		select {
		case <-finished:
			// Undo may have reopened the game in the meantime
			if g.Done() {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// End stops the game: the running turn is cancelled and no further turns
// are dispatched. The position and status stay readable.
func (g *Game) End() {
	g.mu.Lock()
	g.stopTurnLocked()
	g.cancel()
	workerDone := g.workerDone
	g.mu.Unlock()

	if workerDone != nil {
		<-workerDone
	}
}

// boardCopiesLocked returns one board copy per player.
func (g *Game) boardCopiesLocked() [2]*board.Board {
	return [2]*board.Board{g.board.Copy(), g.board.Copy()}
}

// sendBoards hands each player its copy of the new position.
func (g *Game) sendBoards(boards [2]*board.Board) {
	for c, p := range g.players {
		p.SetBoard(boards[c])
	}
}

// Snapshot is a point-in-time summary of a game, shaped for JSON.
type Snapshot struct {
	ID       string   `json:"id"`
	FEN      string   `json:"fen"`
	Turn     string   `json:"turn"`
	State    string   `json:"state"`
	Status   string   `json:"status"`
	Progress float32  `json:"progress"`
	Done     bool     `json:"done"`
	Winner   string   `json:"winner,omitempty"`
	Result   string   `json:"result,omitempty"`
	LastMove string   `json:"last_move,omitempty"`
	Moves    []string `json:"moves"`
}

// Snapshot returns the current state of the game in one consistent read.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		ID:       g.id.String(),
		FEN:      g.board.ToFEN(),
		Turn:     g.board.SideToMove().String(),
		State:    g.state.String(),
		Status:   g.status,
		Progress: g.progress,
		Done:     g.state == Done,
		Result:   g.reason,
		Moves:    append([]string{}, g.sans...),
	}
	if g.winner != board.NoColor {
		s.Winner = g.winner.String()
	}
	if n := len(g.sans); n > 0 {
		s.LastMove = g.sans[n-1]
	}
	return s
}
