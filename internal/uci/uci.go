// Package uci drives the engine over the Universal Chess Interface text
// protocol on the standard 8x8 board.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Board
	log      logr.Logger

	out   io.Writer
	outMu sync.Mutex

	// Search state
	cancel     context.CancelFunc
	searchDone chan struct{}
}

// New creates a new UCI protocol handler writing responses to out.
func New(eng *engine.Engine, out io.Writer, log logr.Logger) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewStandardBoard(),
		log:      log.WithName("uci"),
		out:      out,
	}
}

// Run reads commands from in until "quit" or end of input. A running
// search is stopped before Run returns.
func (u *UCI) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	defer u.handleStop()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.println(u.position.String())
		case "perft":
			u.handlePerft(args)
		default:
			u.log.Info("unknown command", "command", cmd)
		}
	}
	return scanner.Err()
}

func (u *UCI) println(a ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintln(u.out, a...)
}

func (u *UCI) printf(format string, a ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format, a...)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.println("id name ChessCore")
	u.println("id author ChessCore Team")
	u.println()
	u.printf("option name Hash type spin default %d min 1 max 1024\n", engine.DefaultHashMB)
	u.println("option name Difficulty type combo default medium var easy var medium var hard")
	u.println("option name Book type string default <empty>")
	u.println("uciok")
}

// handleNewGame resets the position for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.position = board.NewStandardBoard()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	// Find "moves" keyword
	moveStart := len(args)
	for i, arg := range args {
		if arg == "moves" {
			moveStart = i
			break
		}
	}

	var pos *board.Board
	switch args[0] {
	case "startpos":
		pos = board.NewStandardBoard()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(args[1:moveStart], " "))
		if err != nil {
			u.log.Error(err, "invalid FEN")
			return
		}
	default:
		return
	}

	if moveStart < len(args) {
		for _, moveStr := range args[moveStart+1:] {
			move, err := pos.ParseMove(moveStr)
			if err != nil {
				u.log.Error(err, "invalid move in position command", "move", moveStr)
				return
			}
			pos.Move(move)
		}
	}
	u.position = pos
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth    int
	MoveTime time.Duration
	Infinite bool
	Clock    engine.ClockLimits
}

// timed reports whether the search should be run by the clock rather than
// to a fixed depth.
func (o GoOptions) timed(us board.Color) bool {
	return o.Depth == 0 && !o.Infinite && (o.MoveTime > 0 || o.Clock.Time[us] > 0)
}

// handleGo starts a search with the given parameters. The best move is
// printed when the search finishes or is stopped.
func (u *UCI) handleGo(args []string) {
	u.handleStop()
	opts := parseGoOptions(args)
	pos := u.position.Copy()
	us := pos.SideToMove()

	depth := engine.DifficultySettings[u.engine.Difficulty()].Depth
	if opts.Depth > 0 {
		depth = opts.Depth
	}
	if opts.Infinite {
		depth = engine.MaxPly - 1
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if opts.MoveTime > 0 && !opts.timed(us) {
		ctx, cancel = context.WithTimeout(context.Background(), opts.MoveTime)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	u.cancel = cancel
	u.searchDone = make(chan struct{})

	var tm *engine.TimeManager
	if opts.timed(us) {
		ply := (pos.FullMoveNumber() - 1) * 2
		if us == board.Black {
			ply++
		}
		tm = engine.NewTimeManager(opts.Clock, us, ply)
		u.log.V(1).Info("time allocated", "optimum", tm.OptimumTime().String(), "maximum", tm.MaximumTime().String())
	}

	u.engine.OnInfo = u.sendInfo

	go func() {
		defer close(u.searchDone)

		var bestMove board.Move
		var err error
		if tm != nil {
			bestMove, err = u.engine.SelectMoveTimed(ctx, pos, us, tm)
		} else {
			bestMove, err = u.engine.SelectMove(ctx, pos, us, depth)
		}
		if err != nil {
			u.log.V(1).Info("search ended early", "reason", err.Error())
		}
		if bestMove == board.NoMove {
			// Nothing completed: fall back to the first legal move
			if moves := pos.MoveList(us); len(moves) > 0 {
				bestMove = moves[0]
			}
		}
		u.printf("bestmove %s\n", bestMove)
	}()
}

// parseGoOptions parses "go" command arguments. Unknown arguments are
// skipped.
func parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	duration := func(i int) time.Duration {
		ms, _ := strconv.Atoi(args[i])
		return time.Duration(ms) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		if args[i] == "infinite" {
			opts.Infinite = true
			continue
		}
		if i+1 >= len(args) {
			break
		}
		switch args[i] {
		case "depth":
			opts.Depth, _ = strconv.Atoi(args[i+1])
		case "movetime":
			opts.MoveTime = duration(i + 1)
			opts.Clock.MoveTime = opts.MoveTime
		case "wtime":
			opts.Clock.Time[board.White] = duration(i + 1)
		case "btime":
			opts.Clock.Time[board.Black] = duration(i + 1)
		case "winc":
			opts.Clock.Inc[board.White] = duration(i + 1)
		case "binc":
			opts.Clock.Inc[board.Black] = duration(i + 1)
		case "movestogo":
			opts.Clock.MovesToGo, _ = strconv.Atoi(args[i+1])
		default:
			continue
		}
		i++
	}

	return opts
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))

	// Score
	if info.Score > engine.MateScore-engine.MaxPly {
		mateIn := (engine.MateScore - info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	} else if info.Score < -engine.MateScore+engine.MaxPly {
		mateIn := -(engine.MateScore + info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	} else {
		parts = append(parts, fmt.Sprintf("score cp %d", info.Score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Time.Milliseconds()))

	// NPS
	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}

	// Hash fullness
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	if len(info.PV) > 0 {
		pv := make([]string, len(info.PV))
		for i, m := range info.PV {
			pv[i] = m.String()
		}
		parts = append(parts, "pv "+strings.Join(pv, " "))
	}

	u.printf("info %s\n", strings.Join(parts, " "))
}

// handleStop stops the current search and waits for its bestmove line.
func (u *UCI) handleStop() {
	if u.cancel == nil {
		return
	}
	u.cancel()
	<-u.searchDone
	u.cancel = nil
}

// handleSetOption processes "setoption" commands.
// Format: setoption name <name> value <value>
func (u *UCI) handleSetOption(args []string) {
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}

	switch strings.ToLower(strings.Join(name, " ")) {
	case "hash":
		mb, err := strconv.Atoi(strings.Join(value, ""))
		if err != nil {
			u.log.Error(err, "invalid Hash value")
			return
		}
		u.engine.SetHashSize(mb)
	case "difficulty":
		d, err := engine.ParseDifficulty(strings.ToLower(strings.Join(value, "")))
		if err != nil {
			u.log.Error(err, "invalid Difficulty value")
			return
		}
		u.engine.SetDifficulty(d)
	case "book":
		path := strings.Join(value, " ")
		if path == "" || path == "<empty>" {
			u.engine.SetBook(nil)
			return
		}
		bk, err := book.Load(path)
		if err != nil {
			u.log.Error(err, "invalid Book value")
			return
		}
		u.log.Info("book loaded", "path", path, "positions", bk.Size())
		u.engine.SetBook(bk)
	default:
		u.log.Info("unknown option", "name", strings.Join(name, " "))
	}
}

// handlePerft runs a perft test.
func (u *UCI) handlePerft(args []string) {
	depth := 3
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 0 {
			u.log.Info("invalid perft depth", "depth", args[0])
			return
		}
		depth = d
	}

	start := time.Now()
	nodes := board.Perft(u.position.Copy(), depth)
	elapsed := time.Since(start)

	u.printf("Nodes: %d\n", nodes)
	u.printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		nps := float64(nodes) / elapsed.Seconds()
		u.printf("NPS: %.0f\n", nps)
	}
}
