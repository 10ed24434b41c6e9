package anki

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zip"

	"github.com/conorfennell/birthdeck/internal/storage"
)

// DeckInfo is a deck as recorded in a collection.
type DeckInfo struct {
	ID   int64
	Name string
}

// StoredNote is a note read back from a collection.
type StoredNote struct {
	ID      int64
	GUID    string
	ModelID int64
	DeckID  int64
	Fields  []string
}

// Collection is the readable content of a package.
type Collection struct {
	Models []Model
	Decks  []DeckInfo
	Notes  []StoredNote
	Cards  int
}

// Model returns the model with the given id, or nil.
func (c *Collection) Model(id int64) *Model {
	for i := range c.Models {
		if c.Models[i].ID == id {
			return &c.Models[i]
		}
	}
	return nil
}

// ReadFile opens an .apkg package and returns its models, decks and notes.
// Notes come back in insertion order.
func ReadFile(path string) (*Collection, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open package %s: %w", path, err)
	}
	defer zr.Close()

	entry := findEntry(zr.File, collectionEntry21)
	if entry == nil {
		entry = findEntry(zr.File, collectionEntry)
	}
	if entry == nil {
		return nil, fmt.Errorf("%s: %w", path, errNoCollection)
	}

	workDir, err := os.MkdirTemp("", "birthdeck-read-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	colPath := filepath.Join(workDir, collectionEntry)
	if err := extract(entry, colPath); err != nil {
		return nil, fmt.Errorf("failed to extract collection from %s: %w", path, err)
	}

	db, err := storage.Open(colPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return readCollection(db)
}

func findEntry(files []*zip.File, name string) *zip.File {
	for _, f := range files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func extract(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func readCollection(db *storage.DB) (*Collection, error) {
	row, err := db.GetCollection()
	if err != nil {
		return nil, err
	}

	var models map[string]modelJSON
	if err := json.Unmarshal([]byte(row.Models), &models); err != nil {
		return nil, fmt.Errorf("failed to decode models: %w", err)
	}
	var decks map[string]deckJSON
	if err := json.Unmarshal([]byte(row.Decks), &decks); err != nil {
		return nil, fmt.Errorf("failed to decode decks: %w", err)
	}

	c := &Collection{}
	for _, mj := range models {
		c.Models = append(c.Models, mj.toModel())
	}
	sort.Slice(c.Models, func(i, j int) bool { return c.Models[i].ID < c.Models[j].ID })

	for _, dj := range decks {
		c.Decks = append(c.Decks, DeckInfo{ID: dj.ID, Name: dj.Name})
	}
	sort.Slice(c.Decks, func(i, j int) bool { return c.Decks[i].ID < c.Decks[j].ID })

	cards, err := db.GetCards()
	if err != nil {
		return nil, err
	}
	c.Cards = len(cards)
	deckOf := make(map[int64]int64, len(cards))
	for _, card := range cards {
		if _, seen := deckOf[card.NoteID]; !seen {
			deckOf[card.NoteID] = card.DeckID
		}
	}

	notes, err := db.GetNotes()
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		if _, ok := models[strconv.FormatInt(n.ModelID, 10)]; !ok {
			return nil, fmt.Errorf("note %d references unknown model %d", n.ID, n.ModelID)
		}
		c.Notes = append(c.Notes, StoredNote{
			ID:      n.ID,
			GUID:    n.GUID,
			ModelID: n.ModelID,
			DeckID:  deckOf[n.ID],
			Fields:  strings.Split(n.Fields, fieldSeparator),
		})
	}
	return c, nil
}
