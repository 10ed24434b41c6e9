package anki

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/zip"

	"github.com/conorfennell/birthdeck/internal/checksum"
	"github.com/conorfennell/birthdeck/internal/storage"
)

const (
	collectionEntry   = "collection.anki2"
	collectionEntry21 = "collection.anki21"
	mediaEntry        = "media"

	fieldSeparator = "\x1f"
	defaultDeckID  = 1
)

// Package is the set of decks written into one .apkg file.
type Package struct {
	Decks []*Deck

	// Now stamps the collection and seeds note and card ids. Defaults to time.Now.
	Now func() time.Time
}

// NewPackage returns a package holding decks.
func NewPackage(decks ...*Deck) *Package {
	return &Package{Decks: decks, Now: time.Now}
}

// WriteToFile serializes the package to path, replacing any existing file.
// The archive is assembled in a pending file next to path and renamed into
// place, so a failed write leaves no truncated package behind.
func (p *Package) WriteToFile(path string) error {
	workDir, err := os.MkdirTemp("", "birthdeck-")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	colPath := filepath.Join(workDir, collectionEntry)
	if err := p.writeCollection(colPath); err != nil {
		return err
	}

	pf, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(filepath.Dir(path)),
		renameio.WithPermissions(0o644),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer pf.Cleanup()

	if err := writeArchive(pf, colPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func writeArchive(w io.Writer, colPath string) error {
	zw := zip.NewWriter(w)

	col, err := os.Open(colPath)
	if err != nil {
		return err
	}
	defer col.Close()

	entry, err := zw.CreateHeader(&zip.FileHeader{Name: collectionEntry, Method: zip.Deflate})
	if err != nil {
		return err
	}
	if _, err := io.Copy(entry, col); err != nil {
		return fmt.Errorf("failed to archive collection: %w", err)
	}

	media, err := zw.CreateHeader(&zip.FileHeader{Name: mediaEntry, Method: zip.Deflate})
	if err != nil {
		return err
	}
	if _, err := io.WriteString(media, "{}"); err != nil {
		return fmt.Errorf("failed to archive media manifest: %w", err)
	}

	return zw.Close()
}

func (p *Package) writeCollection(path string) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	ts := now()

	db, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	models := map[string]modelJSON{}
	decks := map[string]deckJSON{
		strconv.Itoa(defaultDeckID): newDeckJSON(defaultDeckID, "Default", 0),
	}

	// Ids are millisecond timestamps and must be unique across notes and cards.
	nextID := ts.UnixMilli()
	newID := func() int64 {
		id := nextID
		nextID++
		return id
	}

	var due int64
	for _, deck := range p.Decks {
		decks[strconv.FormatInt(deck.ID, 10)] = newDeckJSON(deck.ID, deck.Name, ts.Unix())

		for _, note := range deck.notes {
			key := strconv.FormatInt(note.Model.ID, 10)
			if _, ok := models[key]; !ok {
				models[key] = note.Model.toJSON(deck.ID, ts.Unix())
			}

			noteID := newID()
			row := storage.Note{
				ID:        noteID,
				GUID:      checksum.GUID(note.Fields...),
				ModelID:   note.Model.ID,
				Modified:  ts.Unix(),
				Fields:    strings.Join(note.Fields, fieldSeparator),
				SortField: checksum.StripHTML(note.Fields[0]),
				Checksum:  checksum.FieldChecksum(note.Fields[0]),
			}
			if err := db.InsertNote(row); err != nil {
				return err
			}

			for ord := range note.Model.Templates {
				card := storage.Card{
					ID:       newID(),
					NoteID:   noteID,
					DeckID:   deck.ID,
					Ord:      ord,
					Modified: ts.Unix(),
					Due:      due,
				}
				if err := db.InsertCard(card); err != nil {
					return err
				}
			}
			due++
		}
	}

	col, err := collectionRow(ts, models, decks, due)
	if err != nil {
		return err
	}
	return db.SetCollection(col)
}

func collectionRow(ts time.Time, models map[string]modelJSON, decks map[string]deckJSON, nextPos int64) (storage.Collection, error) {
	conf := map[string]any{
		"activeDecks":   []int64{defaultDeckID},
		"curDeck":       defaultDeckID,
		"newSpread":     0,
		"collapseTime":  1200,
		"timeLim":       0,
		"estTimes":      true,
		"dueCounts":     true,
		"curModel":      nil,
		"nextPos":       nextPos + 1,
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
	}

	encoded := make([]string, 0, 4)
	for _, v := range []any{conf, models, decks, defaultDeckConf()} {
		b, err := json.Marshal(v)
		if err != nil {
			return storage.Collection{}, fmt.Errorf("failed to encode collection metadata: %w", err)
		}
		encoded = append(encoded, string(b))
	}

	return storage.Collection{
		Created:   ts.Unix(),
		Modified:  ts.UnixMilli(),
		SchemaMod: ts.UnixMilli(),
		Version:   storage.SchemaVersion,
		Conf:      encoded[0],
		Models:    encoded[1],
		Decks:     encoded[2],
		DConf:     encoded[3],
		Tags:      "{}",
	}, nil
}

func defaultDeckConf() map[string]any {
	return map[string]any{
		"1": map[string]any{
			"id":       1,
			"name":     "Default",
			"mod":      0,
			"usn":      0,
			"dyn":      false,
			"maxTaken": 60,
			"timer":    0,
			"autoplay": true,
			"replayq":  true,
			"new": map[string]any{
				"delays":        []float64{1, 10},
				"ints":          []int{1, 4, 7},
				"initialFactor": 2500,
				"order":         1,
				"perDay":        20,
				"bury":          true,
				"separate":      true,
			},
			"rev": map[string]any{
				"perDay":   200,
				"ease4":    1.3,
				"fuzz":     0.05,
				"ivlFct":   1,
				"maxIvl":   36500,
				"minSpace": 1,
				"bury":     true,
			},
			"lapse": map[string]any{
				"delays":      []float64{10},
				"mult":        0,
				"minInt":      1,
				"leechFails":  8,
				"leechAction": 0,
			},
		},
	}
}

var errNoCollection = errors.New("package contains no collection")
