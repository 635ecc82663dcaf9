// Command chessplay-watch lets the computer play itself and serves the
// game live over HTTP and websocket.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/go-logr/stdr"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/game"
	"github.com/hailam/chesscore/internal/watch"
)

var (
	addr       = flag.String("addr", ":8080", "listen address")
	difficulty = flag.String("difficulty", "medium", "engine difficulty: easy, medium or hard")
	depth      = flag.Int("depth", 0, "search depth in plies, overrides difficulty")
	fen        = flag.String("fen", board.StartFEN, "starting position")
	bookPath   = flag.String("book", "", "Polyglot opening book")
	drawRules  = flag.Bool("draw-rules", true, "adjudicate fifty-move, repetition and insufficient material draws")
	verbosity  = flag.Int("v", 0, "log verbosity")
)

func main() {
	flag.Parse()

	stdr.SetVerbosity(*verbosity)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("chessplay-watch")

	diff, err := engine.ParseDifficulty(*difficulty)
	if err != nil {
		logger.Error(err, "bad flag")
		os.Exit(2)
	}
	b, err := board.ParseFEN(*fen)
	if err == nil {
		err = b.Validate()
	}
	if err != nil {
		logger.Error(err, "bad starting position")
		os.Exit(2)
	}

	var bk *book.Book
	if *bookPath != "" {
		if bk, err = book.Load(*bookPath); err != nil {
			logger.Error(err, "bad opening book")
			os.Exit(2)
		}
	}

	computer := func() game.Player {
		eng := engine.NewEngine(logger)
		eng.SetDifficulty(diff)
		eng.SetBook(bk)
		return game.NewComputerPlayer(eng, *depth)
	}
	g := game.New(b, computer(), computer(),
		game.WithDrawRules(*drawRules),
		game.WithLogger(logger))
	server := watch.New(g, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return server.Listen(*addr)
	})
	group.Go(func() error {
		g.Begin()
		if err := g.Wait(ctx); err != nil {
			return nil
		}
		logger.Info("game finished", "status", g.Status(), "moves", len(g.MovesSAN()))
		// Keep serving the final position until interrupted
		<-ctx.Done()
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		g.End()
		return server.Shutdown()
	})

	if err := group.Wait(); err != nil {
		logger.Error(err, "watch server failed")
		os.Exit(1)
	}
}
