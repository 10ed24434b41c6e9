// Package builder turns contacts into a birthday deck.
package builder

import (
	"fmt"
	"time"

	"github.com/conorfennell/birthdeck/internal/anki"
	"github.com/conorfennell/birthdeck/internal/config"
	"github.com/conorfennell/birthdeck/internal/domain"
)

// AnswerLayout renders a birthday as full month name and zero-padded day.
const AnswerLayout = "January 02"

const (
	fieldQuestion = "Question"
	fieldAnswer   = "Answer"
)

// NewModel returns the two-field birthday note type.
func NewModel(cfg config.ModelConfig) *anki.Model {
	return anki.NewModel(cfg.ID, cfg.Name,
		[]anki.Field{{Name: fieldQuestion}, {Name: fieldAnswer}},
		[]anki.Template{{
			Name: "Card 1",
			QFmt: "{{" + fieldQuestion + "}}",
			AFmt: "{{FrontSide}}<hr id=\"answer\">{{" + fieldAnswer + "}}",
		}},
	)
}

// Question returns the front text for a contact.
func Question(name string) string {
	return fmt.Sprintf("When is %s's birthday?", name)
}

// Answer returns the back text for a birthday, e.g. "March 04".
func Answer(birthday time.Time) string {
	return birthday.Format(AnswerLayout)
}

// CardFor renders the card for a single contact.
func CardFor(c domain.Contact) domain.Card {
	return domain.Card{
		Question: Question(c.Name),
		Answer:   Answer(c.Birthday),
	}
}

// Build returns a deck with one note per contact, in contact order.
func Build(deckCfg config.DeckConfig, model *anki.Model, contacts []domain.Contact) (*anki.Deck, error) {
	deck := anki.NewDeck(deckCfg.ID, deckCfg.Name)
	for i, c := range contacts {
		note, err := anki.NewNote(model, CardFor(c).Fields()...)
		if err != nil {
			return nil, fmt.Errorf("contact %d (%s): %w", i, c.Name, err)
		}
		if err := deck.AddNote(note); err != nil {
			return nil, fmt.Errorf("contact %d (%s): %w", i, c.Name, err)
		}
	}
	return deck, nil
}
