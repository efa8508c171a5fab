// featurectl is an interactive operations console for a featurestore
// database. It opens the store directly, so it is meant for
// maintenance windows or read-mostly inspection, not for running
// alongside a live daemon writing the same file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/sportsedge/featurestore/internal/cache"
	"github.com/sportsedge/featurestore/internal/config"
	"github.com/sportsedge/featurestore/internal/coordinator"
	"github.com/sportsedge/featurestore/internal/logging"
	"github.com/sportsedge/featurestore/internal/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "", "config file path")
	dbPath := flag.String("db", "", "database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	// Keep the console quiet; only warnings and up reach the terminal.
	logging.Init(slog.LevelWarn, false)

	st, err := store.New(store.Config{
		Path:        cfg.Store.Path,
		MemoryLimit: cfg.Store.MemoryLimit,
		ArchiveDir:  cfg.Retention.ArchiveDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	// The console cache exists so refresh and features behave the
	// same as in the daemon; sweeping disabled to keep it passive.
	cacheCfg := cache.Config{
		HotCapacity:        cfg.Cache.HotCapacity,
		WarmCapacity:       cfg.Cache.WarmCapacity,
		PromotionThreshold: cfg.Cache.PromotionThreshold,
		PromotionWindow:    cfg.Cache.PromotionWindow,
		Shards:             cfg.Cache.Shards,
		DefaultTTL:         cfg.Cache.DefaultTTL,
	}
	ca := cache.New(cacheCfg)
	defer ca.Close()

	coord, err := coordinator.New(cfg, st, ca)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create coordinator: %v\n", err)
		os.Exit(1)
	}
	defer coord.Close()

	console := newConsole(coord, st)

	// Piped input gets a plain line loop; a real terminal gets the
	// interactive prompt with completion.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		runPiped(console)
		return
	}

	fmt.Printf("featurectl %s (db: %s)\n", Version, cfg.Store.Path)
	fmt.Println("Type 'help' for commands, 'exit' to quit.")

	p := prompt.New(
		console.execute,
		console.complete,
		prompt.OptionTitle("featurectl"),
		prompt.OptionPrefix("featurestore> "),
		prompt.OptionMaxSuggestion(12),
	)
	p.Run()
}

func runPiped(console *console) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		console.execute(line)
	}
}
