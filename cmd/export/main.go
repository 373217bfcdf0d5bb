// Command export dumps the entry records of one giveaway into an xlsx file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"giveaway-miniapp/internal/common/config"
	"giveaway-miniapp/internal/common/logger"
	"giveaway-miniapp/internal/features/export"
	ledgerRepo "giveaway-miniapp/internal/features/ledger/repository/redis"
	"giveaway-miniapp/internal/platform/redis"
)

func main() {
	giveawayID := flag.String("giveaway", "", "Giveaway ID to export")
	out := flag.String("out", "", "Output path (default: entries_<id>_<timestamp>.xlsx)")
	timeout := flag.Duration("timeout", 30*time.Second, "Redis timeout")
	flag.Parse()

	if *giveawayID == "" {
		fmt.Fprintln(os.Stderr, "-giveaway is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger.Init("giveaway-export", cfg.Debug)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rdb, err := redis.Open(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	entries, err := ledgerRepo.NewRedisLedger(rdb).ListEntries(ctx, *giveawayID)
	if err != nil {
		logger.Fatal().Err(err).Str("giveaway_id", *giveawayID).Msg("Failed to list entries")
	}

	path := *out
	if path == "" {
		path = export.FileName(*giveawayID, time.Now())
	}
	if err := export.SaveEntries(path, *giveawayID, entries); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write workbook")
	}

	logger.Info().
		Str("giveaway_id", *giveawayID).
		Int("entries", len(entries)).
		Str("path", path).
		Msg("Entries exported")
}
