package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/game"
)

func openMemory(t *testing.T) *Storage {
	t.Helper()
	s, err := Open("", logr.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorage(t *testing.T) {
	t.Run("DefaultPreferences", func(t *testing.T) {
		prefs := DefaultPreferences()
		if prefs.Username != "Player" {
			t.Errorf("Expected username 'Player', got '%s'", prefs.Username)
		}
		if prefs.Difficulty != engine.Medium {
			t.Errorf("Expected medium difficulty")
		}
		if prefs.HumanColor != board.White {
			t.Errorf("Expected the human to play white")
		}
		if !prefs.DrawRules {
			t.Errorf("Expected draw rules on by default")
		}
	})

	t.Run("NewStats", func(t *testing.T) {
		stats := NewStats()
		if stats.GamesPlayed != 0 {
			t.Errorf("Expected 0 games played")
		}
		if stats.WinRate() != 0 {
			t.Errorf("Expected 0 win rate")
		}
	})

	t.Run("WinRate", func(t *testing.T) {
		stats := &Stats{
			GamesPlayed: 10,
			Wins:        3,
			Losses:      3,
			Draws:       4,
		}
		rate := stats.WinRate()
		if rate != 50 {
			t.Errorf("Expected 50%% win rate, got %.2f%%", rate)
		}
	})
}

func TestGameModeNames(t *testing.T) {
	for m := ModeHumanVsHuman; m <= ModeComputerVsComputer; m++ {
		parsed, err := ParseGameMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseGameMode("bvb")
	assert.Error(t, err)
}

func TestPreferences(t *testing.T) {
	s := openMemory(t)

	prefs, err := s.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences().Difficulty, prefs.Difficulty)

	prefs.Username = "Magnus"
	prefs.Difficulty = engine.Hard
	prefs.GameMode = ModeComputerVsComputer
	prefs.HumanColor = board.Black
	prefs.DrawRules = false
	require.NoError(t, s.SavePreferences(prefs))

	loaded, err := s.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, "Magnus", loaded.Username)
	assert.Equal(t, engine.Hard, loaded.Difficulty)
	assert.Equal(t, ModeComputerVsComputer, loaded.GameMode)
	assert.Equal(t, board.Black, loaded.HumanColor)
	assert.False(t, loaded.DrawRules)
	assert.WithinDuration(t, time.Now(), loaded.LastPlayed, time.Minute)
}

func TestFirstLaunch(t *testing.T) {
	s := openMemory(t)

	first, err := s.IsFirstLaunch()
	require.NoError(t, err)
	assert.True(t, first)

	require.NoError(t, s.MarkFirstLaunchComplete())
	first, err = s.IsFirstLaunch()
	require.NoError(t, err)
	assert.False(t, first)
}

func TestRecordGameOverStatsWithoutMaps(t *testing.T) {
	s := openMemory(t)

	// Saved without maps, so they are stored as null
	require.NoError(t, s.SaveStats(&Stats{GamesPlayed: 3}))

	loaded, err := s.LoadStats()
	require.NoError(t, err)
	assert.NotNil(t, loaded.WinsByMode)
	assert.NotNil(t, loaded.WinsByDiff)

	require.NotPanics(t, func() {
		require.NoError(t, s.RecordGame(GameResult{
			Winner:     board.White,
			Mode:       ModeHumanVsComputer,
			Difficulty: engine.Easy,
			HumanColor: board.White,
		}))
	})

	stats, err := s.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.GamesPlayed)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.WinsByMode[ModeHumanVsComputer.String()])
	assert.Equal(t, 1, stats.WinsByDiff[engine.Easy.String()])
}

func TestRecordGame(t *testing.T) {
	s := openMemory(t)

	results := []GameResult{
		{Winner: board.White, Mode: ModeHumanVsComputer, Difficulty: engine.Hard, HumanColor: board.White, Duration: time.Minute},
		{Winner: board.White, Mode: ModeHumanVsComputer, Difficulty: engine.Easy, HumanColor: board.White, Duration: time.Minute},
		{Winner: board.White, Mode: ModeHumanVsComputer, Difficulty: engine.Easy, HumanColor: board.Black, Duration: time.Minute},
		{Winner: board.NoColor, Mode: ModeHumanVsComputer, Difficulty: engine.Easy, HumanColor: board.Black, Duration: time.Minute},
		{Winner: board.Black, Mode: ModeComputerVsComputer, Duration: time.Minute},
		{Winner: board.NoColor, Mode: ModeHumanVsHuman, Duration: time.Minute},
	}
	for _, r := range results {
		require.NoError(t, s.RecordGame(r))
	}

	stats, err := s.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, 6, stats.GamesPlayed)
	assert.Equal(t, 3, stats.WhiteWins)
	assert.Equal(t, 1, stats.BlackWins)
	assert.Equal(t, 2, stats.Draws)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.Equal(t, 2, stats.LongestWinStrk)
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, map[string]int{"hard": 1, "easy": 1}, stats.WinsByDiff)
	assert.Equal(t, map[string]int{"hvc": 2}, stats.WinsByMode)
	assert.Equal(t, 6*time.Minute, stats.TotalPlayTime)
	assert.InDelta(t, 66.67, stats.WinRate(), 0.01)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, logr.Discard())
	require.NoError(t, err)
	require.NoError(t, s.RecordGame(GameResult{Winner: board.Black, Mode: ModeHumanVsHuman}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "closing twice is harmless")

	s, err = Open(dir, logr.Discard())
	require.NoError(t, err)
	defer s.Close()

	stats, err := s.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, 1, stats.BlackWins)
}

func TestRecorder(t *testing.T) {
	s := openMemory(t)
	rec := NewRecorder(s, GameResult{Mode: ModeHumanVsHuman})
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	g := game.New(board.NewStandardBoard(), game.NewHumanPlayer(), game.NewHumanPlayer())
	defer g.End()
	g.AddListener(rec)
	g.Begin()

	play := func(moves ...string) {
		for _, mv := range moves {
			m, err := g.Board().ParseMove(mv)
			require.NoError(t, err)
			require.NoError(t, g.Move(m))
		}
	}

	play("f2f3", "e7e5", "g2g4", "d8h4")
	require.True(t, g.Done())

	// Further events and a replayed finish must not count twice
	g.SetStatus("Good game.")
	require.NoError(t, g.Undo())
	play("d8h4")
	require.True(t, g.Done())

	stats, err := s.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, 1, stats.BlackWins)
	assert.Equal(t, time.Second, stats.TotalPlayTime)
}

func TestDataPaths(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("data directory only follows XDG_DATA_HOME on unix")
	}
	base := t.TempDir()
	t.Setenv("XDG_DATA_HOME", base)

	dbDir, err := GetDatabaseDir()
	if err != nil {
		t.Fatalf("GetDatabaseDir failed: %v", err)
	}
	if want := filepath.Join(base, appName, "db"); dbDir != want {
		t.Errorf("GetDatabaseDir = %s, want %s", dbDir, want)
	}
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		t.Errorf("Database directory was not created: %s", dbDir)
	}
}
