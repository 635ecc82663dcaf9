package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/hailam/chesscore/internal/game"
	"github.com/hailam/chesscore/internal/storage"
)

const helpText = `Commands:
  e2e4, e7e8q   make a move
  moves         list legal moves
  board         show the board
  undo          take back a move
  stats         show statistics
  quit          leave the game`

// console prints the game as it changes and reads commands for the human
// players.
type console struct {
	game  *game.Game
	prefs *storage.Preferences
	store *storage.Storage

	mu         sync.Mutex
	out        io.Writer
	lastFEN    string
	lastStatus string
}

func newConsole(g *game.Game, prefs *storage.Preferences, store *storage.Storage, out io.Writer) *console {
	return &console{game: g, prefs: prefs, store: store, out: out}
}

// OnGameEvent implements game.Listener. Progress updates are not printed;
// the board is printed when the position changes and the status when it
// changes.
func (c *console) OnGameEvent(g *game.Game) {
	snap := g.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	if snap.FEN != c.lastFEN {
		c.lastFEN = snap.FEN
		if n := len(snap.Moves); n > 0 {
			dots := "."
			if n%2 == 0 {
				dots = "..."
			}
			fmt.Fprintf(c.out, "\n%d%s %s\n", (n+1)/2, dots, snap.LastMove)
		}
		fmt.Fprint(c.out, g.Board())
	}
	if snap.Status != c.lastStatus {
		c.lastStatus = snap.Status
		fmt.Fprintln(c.out, snap.Status)
	}
}

func (c *console) printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, a...)
}

// run reads commands until quit, end of input or ctx is done.
func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			c.printf("Interrupted.\n")
			return nil
		case err := <-readErr:
			return errors.Wrap(err, "reading input")
		case line := <-lines:
			if quit := c.handle(strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

// handle executes one command and reports whether to quit.
func (c *console) handle(line string) bool {
	switch line {
	case "":
	case "quit", "exit":
		return true
	case "help":
		c.printf("%s\n", helpText)
	case "board":
		c.printf("%s", c.game.Board())
	case "moves":
		b := c.game.Board()
		var sans []string
		for m := range b.LegalMoves(b.SideToMove()) {
			sans = append(sans, b.SAN(m))
		}
		c.printf("%s\n", strings.Join(sans, " "))
	case "undo":
		if err := c.takeBack(); err != nil {
			c.printf("Cannot undo: %v\n", err)
		}
	case "stats":
		c.printStats()
	default:
		c.submit(line)
	}
	return false
}

// submit hands a move to the human whose turn it is.
func (c *console) submit(text string) {
	if c.game.Done() {
		c.printf("The game is over. Type undo or quit.\n")
		return
	}
	human, ok := c.game.Player(c.game.Turn()).(*game.HumanPlayer)
	if !ok {
		c.printf("Wait for your turn.\n")
		return
	}
	if _, err := human.Submit(text); err != nil {
		c.printf("Illegal move %q: %v\n", text, errors.Cause(err))
	}
}

// takeBack undoes one move, or against the computer as many as needed to
// give the human the move again.
func (c *console) takeBack() error {
	if c.prefs.GameMode != storage.ModeHumanVsComputer {
		return c.game.Undo()
	}
	_, err := c.game.TakeBack(c.prefs.HumanColor)
	return err
}

func (c *console) printStats() {
	stats, err := c.store.LoadStats()
	if err != nil {
		c.printf("Cannot load stats: %v\n", err)
		return
	}
	c.printf("Games: %d  White wins: %d  Black wins: %d  Draws: %d\n",
		stats.GamesPlayed, stats.WhiteWins, stats.BlackWins, stats.Draws)
	if stats.Wins+stats.Losses > 0 {
		c.printf("Against the computer: %d won, %d lost (%.0f%%), best streak %d\n",
			stats.Wins, stats.Losses, stats.WinRate(), stats.LongestWinStrk)
	}
}
