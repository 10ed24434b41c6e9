package storage

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "collection.anki2"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.anki2")
	for i := 0; i < 2; i++ {
		db, err := Open(path)
		if err != nil {
			t.Fatalf("Open() #%d returned an unexpected error: %v", i+1, err)
		}
		db.Close()
	}
}

func TestCollection(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.GetCollection(); err == nil {
		t.Fatal("Expected an error for a missing collection row")
	}

	want := Collection{
		Created:   1700000000,
		Modified:  1700000000123,
		SchemaMod: 1700000000123,
		Version:   SchemaVersion,
		Conf:      "{}",
		Models:    `{"1":{}}`,
		Decks:     `{"1":{}}`,
		DConf:     "{}",
		Tags:      "{}",
	}
	if err := db.SetCollection(want); err != nil {
		t.Fatalf("SetCollection() returned an unexpected error: %v", err)
	}
	want.Models = `{"2":{}}`
	if err := db.SetCollection(want); err != nil {
		t.Fatalf("SetCollection() overwrite returned an unexpected error: %v", err)
	}

	got, err := db.GetCollection()
	if err != nil {
		t.Fatalf("GetCollection() returned an unexpected error: %v", err)
	}
	if *got != want {
		t.Errorf("Expected collection %+v, but got %+v", want, *got)
	}
}

func TestNotesAndCards(t *testing.T) {
	db := openTestDB(t)

	notes := []Note{
		{ID: 100, GUID: "a", ModelID: 7, Modified: 1, Fields: "Q1\x1fA1", SortField: "Q1", Checksum: 11},
		{ID: 101, GUID: "b", ModelID: 7, Modified: 1, Fields: "Q2\x1fA2", SortField: "Q2", Checksum: 22},
	}
	for i, n := range notes {
		if err := db.InsertNote(n); err != nil {
			t.Fatalf("InsertNote() returned an unexpected error: %v", err)
		}
		c := Card{ID: n.ID + 1000, NoteID: n.ID, DeckID: 9, Modified: 1, Due: int64(i)}
		if err := db.InsertCard(c); err != nil {
			t.Fatalf("InsertCard() returned an unexpected error: %v", err)
		}
	}

	if err := db.InsertNote(notes[0]); err == nil {
		t.Error("Expected an error inserting a duplicate note id")
	}

	gotNotes, err := db.GetNotes()
	if err != nil {
		t.Fatalf("GetNotes() returned an unexpected error: %v", err)
	}
	if len(gotNotes) != len(notes) {
		t.Fatalf("Expected %d notes, but got %d", len(notes), len(gotNotes))
	}
	for i := range notes {
		if gotNotes[i] != notes[i] {
			t.Errorf("Expected note %+v, but got %+v", notes[i], gotNotes[i])
		}
	}

	cards, err := db.GetCards()
	if err != nil {
		t.Fatalf("GetCards() returned an unexpected error: %v", err)
	}
	if len(cards) != 2 || cards[0].NoteID != 100 || cards[1].NoteID != 101 {
		t.Errorf("Unexpected cards: %+v", cards)
	}
}
