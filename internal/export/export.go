// Package export runs the contacts-to-deck conversion once.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/conorfennell/birthdeck/internal/anki"
	"github.com/conorfennell/birthdeck/internal/builder"
	"github.com/conorfennell/birthdeck/internal/config"
	"github.com/conorfennell/birthdeck/internal/domain"
)

// Extractor yields the contacts to convert and how many records it skipped.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.Contact, int, error)
}

// Result summarizes a completed run.
type Result struct {
	Contacts int
	Skipped  int
	Output   string
}

// Run extracts contacts, builds the deck and writes the package to cfg.Output.
// Nothing is written if extraction or building fails.
func Run(ctx context.Context, cfg *config.Config, ex Extractor, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Extracting contacts with birthdays...")
	contacts, skipped, err := ex.Extract(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("extracting contacts: %w", err)
	}
	logger.Info("Contacts extracted", "contacts", len(contacts), "skipped", skipped)

	model := builder.NewModel(cfg.Model)
	deck, err := builder.Build(cfg.Deck, model, contacts)
	if err != nil {
		return Result{}, fmt.Errorf("building deck: %w", err)
	}

	if err := anki.NewPackage(deck).WriteToFile(cfg.Output); err != nil {
		return Result{}, fmt.Errorf("writing package: %w", err)
	}

	logger.Info("Deck written",
		"path", cfg.Output,
		"deck", cfg.Deck.Name,
		"deck_id", cfg.Deck.ID,
		"cards", len(deck.Notes()),
	)

	return Result{Contacts: len(contacts), Skipped: skipped, Output: cfg.Output}, nil
}
