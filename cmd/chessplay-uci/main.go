package main

import (
	"flag"
	"log"
	"os"
	"runtime/pprof"

	"github.com/go-logr/stdr"

	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	hashMB     = flag.Int("hash", engine.DefaultHashMB, "per-search hash table size in MB")
	verbosity  = flag.Int("v", 0, "log verbosity (logs go to stderr)")
)

func main() {
	flag.Parse()

	stdr.SetVerbosity(*verbosity)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("chessplay-uci")

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			logger.Error(err, "could not create CPU profile")
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Error(err, "could not start CPU profile")
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
		logger.Info("CPU profiling enabled", "path", profilePath)
	}

	eng := engine.NewEngine(logger)
	eng.SetHashSize(*hashMB)

	protocol := uci.New(eng, os.Stdout, logger)
	if err := protocol.Run(os.Stdin); err != nil {
		logger.Error(err, "uci session failed")
	}
}
