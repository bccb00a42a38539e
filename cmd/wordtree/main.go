/*
Package main runs the wordtree autocomplete backend.

wordtree serves ranked prefix completions from one of two interchangeable
engines, a rune trie or a ternary search tree, loaded from a word
frequency list and optionally from a Redis sorted set.

# Usage

Serve the HTTP endpoint used by the web frontend:

	wordtree -data data/words.csv

Load both engines and expose them side by side (/autocomplete/trie and
/autocomplete/tst):

	wordtree -data data/words.csv -compare

Serve msgpack requests over stdin/stdout:

	wordtree -ipc

Compare the engines interactively:

	wordtree -c -compare -limit 5

# Configuration

Runtime configuration lives in a TOML file, created with defaults when
missing:

	[server]
	addr = ":7000"
	max_limit = 64
	max_prefix = 60
	allow_origin = "*"

	[engine]
	strategy = "trie"
	limit = 10
	case_sensitive = false

	[dict]
	path = "data/"
	redis_addr = ""
	redis_key = "wordtree:terms"

Flags override file values.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bastiangx/wordtree/internal/cli"
	"github.com/bastiangx/wordtree/internal/logger"
	"github.com/bastiangx/wordtree/internal/utils"
	"github.com/bastiangx/wordtree/pkg/config"
	"github.com/bastiangx/wordtree/pkg/dictionary"
	"github.com/bastiangx/wordtree/pkg/server"
	"github.com/bastiangx/wordtree/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0"
	AppName = "wordtree"
)

func main() {
	defaults := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	configPath := flag.String("config", "", "Path to a config.toml")
	dataPath := flag.String("data", defaults.Dict.Path, "Dictionary file or directory (.csv, .txt, .bin)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	logFormat := flag.String("log-format", "text", "Log format: text, json or logfmt")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	ipcMode := flag.Bool("ipc", false, "Serve msgpack requests over stdin/stdout")
	strategy := flag.String("strategy", defaults.Engine.Strategy, "Engine strategy: trie or tst")
	compare := flag.Bool("compare", false, "Load both engines and serve them side by side")
	addr := flag.String("addr", defaults.Server.Addr, "HTTP listen address")
	limit := flag.Int("limit", defaults.Engine.Limit, "Default number of suggestions to return")
	caseSensitive := flag.Bool("case-sensitive", defaults.Engine.CaseSensitive, "Match case exactly instead of lowercasing")
	redisAddr := flag.String("redis", defaults.Dict.RedisAddr, "Redis address for term weights (empty disables)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	setupLogging(*debugMode, *logFormat)

	appConfig, activePath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activePath))

	// explicitly set flags win over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			appConfig.Dict.Path = *dataPath
		case "strategy":
			appConfig.Engine.Strategy = *strategy
		case "addr":
			appConfig.Server.Addr = *addr
		case "limit":
			appConfig.Engine.Limit = *limit
			appConfig.CLI.DefaultLimit = *limit
		case "case-sensitive":
			appConfig.Engine.CaseSensitive = *caseSensitive
		case "redis":
			appConfig.Dict.RedisAddr = *redisAddr
		}
	})
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := dictionary.NewStore()
	redisStore := loadTerms(ctx, appConfig, store)
	if redisStore != nil {
		defer redisStore.Close()
	}

	completers := buildCompleters(appConfig, store, *compare)
	opts := server.Options{
		DefaultLimit:  appConfig.Engine.Limit,
		MaxLimit:      appConfig.Server.MaxLimit,
		CaseSensitive: appConfig.Engine.CaseSensitive,
		AllowOrigin:   appConfig.Server.AllowOrigin,
	}

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		exitOnSignal(ctx)
		handler := cli.NewInputHandler(completers, appConfig.Server.MaxPrefix, appConfig.CLI.DefaultLimit,
			appConfig.Engine.CaseSensitive, os.Stdin, os.Stdout)
		if err := handler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	if *ipcMode {
		exitOnSignal(ctx)
		log.Debug("spawning IPC")
		srv := server.NewIPCServer(completers[0], opts, os.Stdin, os.Stdout)
		if redisStore != nil {
			srv.SetRecorder(redisStore)
		}
		if err := srv.Start(); err != nil {
			log.Fatalf("IPC server failed: %v", err)
		}
		return
	}

	srv := server.NewHTTPServer(completers[0], opts, completers[1:]...)
	if redisStore != nil {
		srv.SetRecorder(redisStore)
	}
	showStartupInfo(appConfig, completers)

	timeout := time.Duration(appConfig.Server.ShutdownTimeout) * time.Second
	if err := srv.ListenAndServe(ctx, appConfig.Server.Addr, timeout); err != nil {
		log.Fatalf("Failed to serve: %v", err)
	}
	log.Info("bye")
}

// setupLogging installs the default charm logger on stderr.
func setupLogging(debug bool, format string) {
	level := log.WarnLevel
	if debug {
		level = log.DebugLevel
	}

	formatter := log.TextFormatter
	switch strings.ToLower(format) {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	log.SetDefault(logger.NewWithConfig(AppName, level, false, debug, formatter))
	log.SetLevel(level)
}

// loadTerms fills store from the dictionary path and Redis. Redis weights
// win over file weights; an empty Redis set is seeded from the files.
func loadTerms(ctx context.Context, cfg *config.Config, store *dictionary.Store) *dictionary.RedisStore {
	normalize := utils.Normalizer(cfg.Engine.CaseSensitive)

	if cfg.Dict.Path != "" {
		path := cfg.Dict.Path
		if resolver, err := utils.NewPathResolver(); err == nil {
			if resolved, err := resolver.GetDataPath(path); err == nil {
				path = resolved
			}
		}

		entries, err := dictionary.LoadPath(path)
		if err != nil {
			log.Warnf("No dictionary loaded from %s: %v", path, err)
		} else if _, err := store.AddAll(entries, normalize); err != nil {
			log.Fatalf("Invalid dictionary %s: %v", path, err)
		}
	}

	if cfg.Dict.RedisAddr == "" {
		log.Debugf("Term store holds %d terms", store.Len())
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	redisStore, err := dictionary.DialRedis(dialCtx, cfg.Dict.RedisAddr, cfg.Dict.RedisKey)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	entries, err := redisStore.Load(dialCtx)
	if err != nil {
		log.Fatalf("Failed to load terms from redis: %v", err)
	}
	if len(entries) == 0 && store.Len() > 0 {
		log.Infof("Seeding redis key %s with %d terms", redisStore.Key(), store.Len())
		if err := redisStore.Seed(dialCtx, store.Snapshot()); err != nil {
			log.Fatalf("Failed to seed redis: %v", err)
		}
	} else if _, err := store.AddAll(entries, normalize); err != nil {
		log.Fatalf("Invalid terms in redis: %v", err)
	}

	log.Debugf("Term store holds %d terms", store.Len())
	return redisStore
}

// buildCompleters bulk loads the configured engine and, in compare mode,
// the other one. Only the first completer tracks learns into the store.
func buildCompleters(cfg *config.Config, store *dictionary.Store, compare bool) []*suggest.Completer {
	primary, err := suggest.ParseStrategy(cfg.Engine.Strategy)
	if err != nil {
		log.Fatalf("Invalid strategy: %v", err)
	}

	strategies := []suggest.Strategy{primary}
	if compare {
		for _, s := range suggest.Strategies() {
			if s != primary {
				strategies = append(strategies, s)
			}
		}
	}

	snapshot := store.Snapshot()
	completers := make([]*suggest.Completer, 0, len(strategies))
	for i, s := range strategies {
		var opts []suggest.Option
		if i == 0 {
			opts = append(opts, suggest.WithStore(store))
		}
		c, err := suggest.NewCompleter(string(s), opts...)
		if err != nil {
			log.Fatalf("Failed to create %s completer: %v", s, err)
		}
		if _, err := c.BulkLoad(snapshot); err != nil {
			log.Fatalf("Failed to load %s completer: %v", s, err)
		}
		if err := c.Check(); err != nil {
			log.Fatalf("%s engine failed its integrity check after loading: %v", s, err)
		}
		completers = append(completers, c)
	}
	return completers
}

// exitOnSignal exits normally once ctx is cancelled by a signal.
func exitOnSignal(ctx context.Context) {
	go func() {
		<-ctx.Done()
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["strategies"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ wordtree ] prefix autocomplete with tries and ternary search trees")
	l.Print("", "version", Version)
	l.Print("", "strategies", suggest.Strategies())
	l.Print("")
	l.Print("use -h or --help to see available options")
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(cfg *config.Config, completers []*suggest.Completer) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	log.Infof("%s %s, pid [ %d ]", AppName, Version, os.Getpid())
	for _, c := range completers {
		st := c.Stats()
		log.Info("engine ready",
			"strategy", st.Strategy,
			"terms", utils.FormatWithCommas(st.Terms),
			"nodes", utils.FormatWithCommas(st.Nodes),
			"memory", utils.FormatBytes(st.ApproxBytes),
			"load", st.LoadTime)
	}
	log.Infof("listening on ( %s )", cfg.Server.Addr)
}
