// cmd/verilens-scan/main.go
//
// verilens-scan pulls news items from configured RSS feeds, extracts each
// article's text and lead image, and submits them to a running verilens
// service for assessment. Items judged fake can be reported to a Discord
// channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	var (
		sourcesPath = flag.String("sources", "config/sources.yml", "YAML file listing RSS feed sources")
		apiBase     = flag.String("api", "http://localhost:8000", "Base URL of the verilens service")
		once        = flag.Bool("once", false, "Run a single scan pass and exit")
		cronSpec    = flag.String("cron", "*/30 * * * *", "Cron schedule for periodic scans")
		maxItems    = flag.Int("max-items", 3, "Maximum items to assess per feed per pass")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	_ = godotenv.Load()

	sources, err := LoadSources(*sourcesPath)
	if err != nil {
		logger.Fatal("failed to load sources", zap.String("path", *sourcesPath), zap.Error(err))
	}
	if len(sources) == 0 {
		logger.Fatal("no sources configured", zap.String("path", *sourcesPath))
	}

	var notifier *DiscordNotifier
	token := os.Getenv("DISCORD_BOT_TOKEN")
	channel := os.Getenv("DISCORD_CHANNEL_ID")
	if token != "" && channel != "" {
		notifier, err = NewDiscordNotifier(token, channel, logger)
		if err != nil {
			logger.Fatal("failed to connect to Discord", zap.Error(err))
		}
		defer notifier.Close()
	}

	scanner := NewScanner(*apiBase, *maxItems, notifier, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		scanner.ScanAll(ctx, sources)
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*cronSpec, func() { scanner.ScanAll(ctx, sources) }); err != nil {
		logger.Fatal("invalid cron schedule", zap.String("spec", *cronSpec), zap.Error(err))
	}
	c.Start()
	logger.Info("scanner scheduled", zap.String("cron", *cronSpec), zap.Int("sources", len(sources)))

	// First pass immediately, then on schedule
	scanner.ScanAll(ctx, sources)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()
	<-c.Stop().Done()
}
