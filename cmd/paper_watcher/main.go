package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"paper_trading/internal/config"
	"paper_trading/internal/journal"
	"paper_trading/internal/logger"
	"paper_trading/internal/market"
	"paper_trading/internal/market/alpaca"
	"paper_trading/internal/market/binance"
	"paper_trading/internal/metrics"
	"paper_trading/internal/telegram"
	"paper_trading/internal/watcher"
)

const VersionFile = "version.latest"

func main() {
	// 1. Initialization
	// .env first so BOT_ID and CONFIG_FILE from it become flag defaults
	config.LoadEnv()
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	cfg, err := config.Load(opts.configFile, opts.botID)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	cfg.Version = readVersion()

	logger.Setup(cfg.LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Dependencies
	provider := newProvider(cfg)

	sinks := logger.Multi{logger.StdSink{}}
	if n := telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID); n != nil {
		sinks = append(sinks, n)
	}

	m := metrics.New(cfg.BotID)
	wopts := []watcher.Option{watcher.WithMetrics(m)}

	var j *journal.Journal
	if cfg.JournalPath != "" {
		j, err = journal.Open(cfg.JournalPath, cfg.BotID)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		defer j.Close()
		log.Printf("Journal: %s (run %s)", cfg.JournalPath, j.RunID())
		wopts = append(wopts, watcher.WithRecorder(j))
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, m)
		srv.Start()
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = srv.Stop(stopCtx)
		}()
	}

	w := watcher.New(cfg, provider, sinks, wopts...)

	// 3. Signal handling
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("⚠️ Watcher Shutting Down: System signal received.")
		cancel()
	}()

	log.Printf("Paper Watcher %s Initialized (bot %s, %s %s via %s)",
		cfg.Version, cfg.BotID, cfg.Bot.Symbol, cfg.TF, cfg.Bot.Provider)
	sinks.Emit("🚀 Paper watcher started: " + cfg.BotID + " " + cfg.Bot.Symbol)

	// 4. Main loop
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("ERROR: watcher exited: %v", err)
	}
	st := w.State()
	log.Printf("🛑 Final state: %s, balance $%.2f", st.Label(), st.Balance)
	if j != nil {
		pnl, err := j.RealizedPnL(context.Background())
		if err != nil {
			log.Printf("WARN: journal summary failed: %v", err)
		} else {
			log.Printf("Realized PnL this run: $%s", pnl.StringFixed(2))
		}
	}
}

type cliOptions struct {
	configFile string
	botID      string
}

// parseFlags reads -config and -bot, falling back to CONFIG_FILE and BOT_ID.
// Call it after the environment is loaded.
func parseFlags(fs *flag.FlagSet, args []string) (cliOptions, error) {
	var o cliOptions
	fs.StringVar(&o.configFile, "config", envOr("CONFIG_FILE", "bots.yaml"), "path to the bot profiles file")
	fs.StringVar(&o.botID, "bot", os.Getenv("BOT_ID"), "bot identity to run")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	return o, nil
}

func newProvider(cfg *config.Config) market.CloseFetcher {
	switch cfg.Bot.Provider {
	case config.ProviderBinance:
		return binance.NewProvider(cfg.BinanceAPIKey, cfg.BinanceSecretKey)
	default:
		return alpaca.NewProvider()
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func readVersion() string {
	version, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return strings.TrimSpace(string(version))
}
