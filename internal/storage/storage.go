package storage

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

// Storage keys
const (
	keyPreferences = "preferences"
	keyStats       = "stats"
	keyFirstLaunch = "first_launch"
)

// GameMode represents who plays whom.
type GameMode int

const (
	ModeHumanVsHuman GameMode = iota
	ModeHumanVsComputer
	ModeComputerVsComputer
)

// String returns the short mode key used in statistics.
func (m GameMode) String() string {
	switch m {
	case ModeHumanVsHuman:
		return "hvh"
	case ModeHumanVsComputer:
		return "hvc"
	case ModeComputerVsComputer:
		return "cvc"
	default:
		return "unknown"
	}
}

// ParseGameMode parses "hvh", "hvc" or "cvc".
func ParseGameMode(s string) (GameMode, error) {
	for m := ModeHumanVsHuman; m <= ModeComputerVsComputer; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return ModeHumanVsComputer, errors.Errorf("unknown game mode %q", s)
}

// Preferences stores user settings.
type Preferences struct {
	Username   string            `json:"username"`
	Difficulty engine.Difficulty `json:"difficulty"`
	GameMode   GameMode          `json:"game_mode"`
	HumanColor board.Color       `json:"human_color"`
	DrawRules  bool              `json:"draw_rules"`
	LastPlayed time.Time         `json:"last_played"`
}

// DefaultPreferences returns default user preferences.
func DefaultPreferences() *Preferences {
	return &Preferences{
		Username:   "Player",
		Difficulty: engine.Medium,
		GameMode:   ModeHumanVsComputer,
		HumanColor: board.White,
		DrawRules:  true,
		LastPlayed: time.Now(),
	}
}

// Stats stores game statistics. Wins, Losses and the streaks count games
// against the computer from the human's side.
type Stats struct {
	GamesPlayed    int            `json:"games_played"`
	WhiteWins      int            `json:"white_wins"`
	BlackWins      int            `json:"black_wins"`
	Draws          int            `json:"draws"`
	Wins           int            `json:"wins"`
	Losses         int            `json:"losses"`
	WinsByMode     map[string]int `json:"wins_by_mode"`
	WinsByDiff     map[string]int `json:"wins_by_difficulty"`
	TotalPlayTime  time.Duration  `json:"total_play_time"`
	LongestWinStrk int            `json:"longest_win_streak"`
	CurrentStreak  int            `json:"current_streak"`
}

// NewStats returns empty game statistics.
func NewStats() *Stats {
	return &Stats{
		WinsByMode: make(map[string]int),
		WinsByDiff: make(map[string]int),
	}
}

// WinRate returns the human's win rate against the computer as a
// percentage (0-100).
func (s *Stats) WinRate() float64 {
	played := s.Wins + s.Losses
	if played == 0 {
		return 0
	}
	return float64(s.Wins) / float64(played) * 100
}

// GameResult describes a completed game.
type GameResult struct {
	Winner     board.Color // NoColor for a draw
	Reason     string
	Mode       GameMode
	Difficulty engine.Difficulty
	HumanColor board.Color // Only meaningful in ModeHumanVsComputer
	Duration   time.Duration
}

// Storage wraps BadgerDB for persistent storage.
type Storage struct {
	db  *badger.DB
	log logr.Logger
}

// NewStorage opens the database in the user's data directory.
func NewStorage(log logr.Logger) (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dbDir, log)
}

// Open opens the database in dir. An empty dir keeps everything in memory.
func Open(dir string, log logr.Logger) (*Storage, error) {
	log = log.WithName("storage")

	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log: log.WithName("badger")})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening database %q", dir)
	}
	log.V(1).Info("database opened", "dir", dir)

	return &Storage{db: db, log: log}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return errors.Wrap(err, "closing database")
}

// IsFirstLaunch returns true if this is the first launch.
func (s *Storage) IsFirstLaunch() (bool, error) {
	firstLaunch := true

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyFirstLaunch))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		firstLaunch = false
		return nil
	})

	return firstLaunch, errors.Wrap(err, "reading first launch marker")
}

// MarkFirstLaunchComplete marks that first launch setup is complete.
func (s *Storage) MarkFirstLaunchComplete() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyFirstLaunch), []byte("done"))
	})
	return errors.Wrap(err, "writing first launch marker")
}

// SavePreferences saves user preferences.
func (s *Storage) SavePreferences(prefs *Preferences) error {
	prefs.LastPlayed = time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		return put(txn, keyPreferences, prefs)
	})
	return errors.Wrap(err, "saving preferences")
}

// LoadPreferences loads user preferences, returning defaults if none
// were saved.
func (s *Storage) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, keyPreferences, prefs)
	})
	return prefs, errors.Wrap(err, "loading preferences")
}

// SaveStats saves game statistics.
func (s *Storage) SaveStats(stats *Stats) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return put(txn, keyStats, stats)
	})
	return errors.Wrap(err, "saving stats")
}

// LoadStats loads game statistics, returning empty stats if none were saved.
func (s *Storage) LoadStats() (*Stats, error) {
	stats := NewStats()
	err := s.db.View(func(txn *badger.Txn) error {
		return get(txn, keyStats, stats)
	})
	stats.ensureMaps()
	return stats, errors.Wrap(err, "loading stats")
}

// RecordGame adds a completed game to the statistics. The read and the
// write happen in one transaction.
func (s *Storage) RecordGame(result GameResult) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		stats := NewStats()
		if err := get(txn, keyStats, stats); err != nil {
			return err
		}
		stats.add(result)
		return put(txn, keyStats, stats)
	})
	if err != nil {
		return errors.Wrap(err, "recording game")
	}

	s.log.V(1).Info("game recorded", "winner", result.Winner.String(), "reason", result.Reason, "mode", result.Mode.String())
	return nil
}

// ensureMaps replaces maps a stored null decoded to nil.
func (s *Stats) ensureMaps() {
	if s.WinsByMode == nil {
		s.WinsByMode = make(map[string]int)
	}
	if s.WinsByDiff == nil {
		s.WinsByDiff = make(map[string]int)
	}
}

func (s *Stats) add(result GameResult) {
	s.ensureMaps()
	s.GamesPlayed++
	s.TotalPlayTime += result.Duration

	switch result.Winner {
	case board.White:
		s.WhiteWins++
	case board.Black:
		s.BlackWins++
	default:
		s.Draws++
	}

	if result.Mode != ModeHumanVsComputer {
		return
	}
	switch result.Winner {
	case board.NoColor:
		s.CurrentStreak = 0
	case result.HumanColor:
		s.Wins++
		s.CurrentStreak++
		if s.CurrentStreak > s.LongestWinStrk {
			s.LongestWinStrk = s.CurrentStreak
		}
		s.WinsByMode[result.Mode.String()]++
		s.WinsByDiff[result.Difficulty.String()]++
	default:
		s.Losses++
		s.CurrentStreak = 0
	}
}

// get decodes the JSON value under key into v, leaving v untouched if the
// key is missing.
func get(txn *badger.Txn, key string, v interface{}) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func put(txn *badger.Txn, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}
