package anki

import (
	"errors"
	"fmt"
)

// ErrFieldCount is returned when a note's values don't match its model's fields.
var ErrFieldCount = errors.New("note field count does not match model")

// Note is one set of field values bound to a model.
type Note struct {
	Model  *Model
	Fields []string
}

// NewNote binds fields to model, checking the count against the declared fields.
func NewNote(model *Model, fields ...string) (Note, error) {
	n := Note{Model: model, Fields: fields}
	if err := n.validate(); err != nil {
		return Note{}, err
	}
	return n, nil
}

func (n Note) validate() error {
	if n.Model == nil {
		return errors.New("note has no model")
	}
	if len(n.Model.Fields) == 0 {
		return fmt.Errorf("model %q declares no fields", n.Model.Name)
	}
	if len(n.Fields) != len(n.Model.Fields) {
		return fmt.Errorf("%w: model %q declares %d, note has %d",
			ErrFieldCount, n.Model.Name, len(n.Model.Fields), len(n.Fields))
	}
	return nil
}

// Deck is a named collection of notes.
type Deck struct {
	ID    int64
	Name  string
	notes []Note
}

// NewDeck returns an empty deck.
func NewDeck(id int64, name string) *Deck {
	return &Deck{ID: id, Name: name}
}

// AddNote appends a note; cards are generated from it in insertion order.
func (d *Deck) AddNote(n Note) error {
	if err := n.validate(); err != nil {
		return err
	}
	d.notes = append(d.notes, n)
	return nil
}

// Notes returns the deck's notes in insertion order.
func (d *Deck) Notes() []Note {
	return d.notes
}

type deckJSON struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Desc      string  `json:"desc"`
	Mod       int64   `json:"mod"`
	USN       int     `json:"usn"`
	Collapsed bool    `json:"collapsed"`
	Conf      int64   `json:"conf"`
	Dyn       int     `json:"dyn"`
	ExtendNew int     `json:"extendNew"`
	ExtendRev int     `json:"extendRev"`
	LrnToday  []int64 `json:"lrnToday"`
	NewToday  []int64 `json:"newToday"`
	RevToday  []int64 `json:"revToday"`
	TimeToday []int64 `json:"timeToday"`
}

func newDeckJSON(id int64, name string, mod int64) deckJSON {
	return deckJSON{
		ID:        id,
		Name:      name,
		Mod:       mod,
		USN:       -1,
		Conf:      1,
		ExtendRev: 50,
		LrnToday:  []int64{0, 0},
		NewToday:  []int64{0, 0},
		RevToday:  []int64{0, 0},
		TimeToday: []int64{0, 0},
	}
}
