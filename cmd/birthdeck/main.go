package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/conorfennell/birthdeck/internal/config"
	"github.com/conorfennell/birthdeck/internal/contacts"
	"github.com/conorfennell/birthdeck/internal/export"
)

func main() {
	// 1. Define and parse command-line flags
	fs := pflag.NewFlagSet("birthdeck", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	// 2. Load configuration
	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "birthdeck: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// 3. Extract contacts and write the deck
	extractor := contacts.NewExtractor(contacts.Config{
		Command:       cfg.Extractor.Command,
		Timeout:       cfg.Extractor.Timeout,
		SkipMalformed: cfg.Extractor.SkipMalformed,
	}, logger)

	res, err := export.Run(ctx, cfg, extractor, logger)
	if err != nil {
		logger.Error("Export failed", "error", err)
		stop()
		os.Exit(1)
	}

	fmt.Printf("Wrote %d cards to %s", res.Contacts, res.Output)
	if res.Skipped > 0 {
		fmt.Printf(" (%d malformed records skipped)", res.Skipped)
	}
	fmt.Println()
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
