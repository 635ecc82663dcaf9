// Command chessplay plays chess in the terminal against the computer,
// against another person at the same keyboard, or watches the computer
// play itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/pkg/errors"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/game"
	"github.com/hailam/chesscore/internal/storage"
)

var (
	modeFlag       = flag.String("mode", "", "game mode: hvh, hvc or cvc (default from preferences)")
	difficultyFlag = flag.String("difficulty", "", "engine difficulty: easy, medium or hard (default from preferences)")
	colorFlag      = flag.String("color", "", "color played by the human in hvc: white or black")
	drawRulesFlag  = flag.Bool("draw-rules", true, "adjudicate fifty-move, repetition and insufficient material draws")
	depthFlag      = flag.Int("depth", 0, "search depth in plies, overrides difficulty")
	fenFlag        = flag.String("fen", board.StartFEN, "starting position")
	dbFlag         = flag.String("db", "", "database directory (default: user data directory)")
	noSaveFlag     = flag.Bool("no-save", false, "keep preferences and stats in memory only")
	bookFlag       = flag.String("book", "", "Polyglot opening book for the computer")
	verbosity      = flag.Int("v", 0, "log verbosity (logs go to stderr)")
)

func main() {
	flag.Parse()

	stdr.SetVerbosity(*verbosity)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("chessplay")

	if err := run(logger); err != nil {
		logger.Error(err, "chessplay failed")
		os.Exit(1)
	}
}

func run(logger logr.Logger) error {
	store := openStorage(logger)
	defer store.Close()

	prefs := loadPreferences(store, logger)
	if err := applyFlags(prefs); err != nil {
		return err
	}
	if err := store.SavePreferences(prefs); err != nil {
		logger.Error(err, "failed to save preferences")
	}
	checkFirstLaunch(store, prefs, logger)

	b, err := board.ParseFEN(*fenFlag)
	if err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}

	var bk *book.Book
	if *bookFlag != "" {
		if bk, err = book.Load(*bookFlag); err != nil {
			return err
		}
		logger.V(1).Info("book loaded", "path", *bookFlag, "positions", bk.Size())
	}

	white, black := newPlayers(prefs, bk, logger)
	g := game.New(b, white, black,
		game.WithDrawRules(prefs.DrawRules),
		game.WithLogger(logger))
	defer g.End()

	g.AddListener(storage.NewRecorder(store, storage.GameResult{
		Mode:       prefs.GameMode,
		Difficulty: prefs.Difficulty,
		HumanColor: prefs.HumanColor,
	}))

	c := newConsole(g, prefs, store, os.Stdout)
	g.AddListener(c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g.Begin()

	if prefs.GameMode == storage.ModeComputerVsComputer {
		if err := g.Wait(ctx); err != nil {
			fmt.Fprintln(os.Stdout, "Interrupted.")
		}
		return nil
	}
	return c.run(ctx, os.Stdin)
}

// openStorage opens the database, falling back to memory if it cannot be
// opened so the game is still playable.
func openStorage(logger logr.Logger) *storage.Storage {
	var (
		store *storage.Storage
		err   error
	)
	switch {
	case *noSaveFlag:
		store, err = storage.Open("", logger)
	case *dbFlag != "":
		store, err = storage.Open(*dbFlag, logger)
	default:
		store, err = storage.NewStorage(logger)
	}
	if err == nil {
		return store
	}

	logger.Error(err, "failed to open storage, preferences and stats will not be saved")
	store, err = storage.Open("", logger)
	if err != nil {
		// An in-memory database only fails to open when badger itself is broken
		panic(err)
	}
	return store
}

// loadPreferences loads user preferences from storage.
func loadPreferences(store *storage.Storage, logger logr.Logger) *storage.Preferences {
	prefs, err := store.LoadPreferences()
	if err != nil {
		logger.Error(err, "failed to load preferences, using defaults")
		return storage.DefaultPreferences()
	}
	return prefs
}

// applyFlags overrides preferences with the flags given on the command line.
func applyFlags(prefs *storage.Preferences) error {
	var err error
	flag.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "mode":
			prefs.GameMode, err = storage.ParseGameMode(*modeFlag)
		case "difficulty":
			prefs.Difficulty, err = engine.ParseDifficulty(*difficultyFlag)
		case "color":
			switch *colorFlag {
			case "white":
				prefs.HumanColor = board.White
			case "black":
				prefs.HumanColor = board.Black
			default:
				err = errors.Errorf("unknown color %q", *colorFlag)
			}
		case "draw-rules":
			prefs.DrawRules = *drawRulesFlag
		}
	})
	return err
}

// checkFirstLaunch greets the player on first launch.
func checkFirstLaunch(store *storage.Storage, prefs *storage.Preferences, logger logr.Logger) {
	first, err := store.IsFirstLaunch()
	if err != nil {
		logger.Error(err, "failed to check first launch")
		return
	}
	if !first {
		return
	}

	fmt.Printf("Welcome to chessplay, %s! Enter moves like e2e4 or e7e8q; type help for commands.\n", prefs.Username)
	if err := store.MarkFirstLaunchComplete(); err != nil {
		logger.Error(err, "failed to mark first launch complete")
	}
}

func newPlayers(prefs *storage.Preferences, bk *book.Book, logger logr.Logger) (white, black game.Player) {
	computer := func() game.Player {
		eng := engine.NewEngine(logger)
		eng.SetDifficulty(prefs.Difficulty)
		eng.SetBook(bk)
		return game.NewComputerPlayer(eng, *depthFlag)
	}

	switch prefs.GameMode {
	case storage.ModeHumanVsHuman:
		return game.NewHumanPlayer(), game.NewHumanPlayer()
	case storage.ModeComputerVsComputer:
		return computer(), computer()
	default:
		if prefs.HumanColor == board.Black {
			return computer(), game.NewHumanPlayer()
		}
		return game.NewHumanPlayer(), computer()
	}
}
