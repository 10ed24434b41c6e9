package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around an Anki collection database.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Collection is the single row of the col table.
type Collection struct {
	Created   int64 // seconds
	Modified  int64 // milliseconds
	SchemaMod int64 // milliseconds
	Version   int
	Conf      string
	Models    string
	Decks     string
	DConf     string
	Tags      string
}

// Note is a row of the notes table.
type Note struct {
	ID        int64
	GUID      string
	ModelID   int64
	Modified  int64 // seconds
	Tags      string
	Fields    string // values joined by 0x1f
	SortField string
	Checksum  int64
}

// Card is a row of the cards table. Only new, unscheduled cards are written.
type Card struct {
	ID       int64
	NoteID   int64
	DeckID   int64
	Ord      int
	Modified int64 // seconds
	Due      int64
}

// SetCollection writes the collection row, replacing any existing one.
func (db *DB) SetCollection(c Collection) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO col (id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		VALUES (1, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?, ?, ?)
	`,
		c.Created,
		c.Modified,
		c.SchemaMod,
		c.Version,
		c.Conf,
		c.Models,
		c.Decks,
		c.DConf,
		c.Tags,
	)
	if err != nil {
		return fmt.Errorf("failed to write collection: %w", err)
	}
	return nil
}

// GetCollection reads the collection row.
func (db *DB) GetCollection() (*Collection, error) {
	var c Collection
	row := db.conn.QueryRow(`
		SELECT crt, mod, scm, ver, conf, models, decks, dconf, tags
		FROM col WHERE id = 1
	`)
	err := row.Scan(&c.Created, &c.Modified, &c.SchemaMod, &c.Version, &c.Conf, &c.Models, &c.Decks, &c.DConf, &c.Tags)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("collection row missing: %w", err)
		}
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}
	return &c, nil
}

// InsertNote inserts a note. usn -1 marks it as not yet synced.
func (db *DB) InsertNote(n Note) error {
	_, err := db.conn.Exec(`
		INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		VALUES (?, ?, ?, ?, -1, ?, ?, ?, ?, 0, '')
	`,
		n.ID,
		n.GUID,
		n.ModelID,
		n.Modified,
		n.Tags,
		n.Fields,
		n.SortField,
		n.Checksum,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note %d: %w", n.ID, err)
	}
	return nil
}

// InsertCard inserts a new card: type 0 and queue 0 with no review history.
func (db *DB) InsertCard(c Card) error {
	_, err := db.conn.Exec(`
		INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data)
		VALUES (?, ?, ?, ?, ?, -1, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')
	`,
		c.ID,
		c.NoteID,
		c.DeckID,
		c.Ord,
		c.Modified,
		c.Due,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %d for note %d: %w", c.ID, c.NoteID, err)
	}
	return nil
}

// GetNotes retrieves all notes in insertion order.
func (db *DB) GetNotes() ([]Note, error) {
	rows, err := db.conn.Query(`
		SELECT id, guid, mid, mod, tags, flds, sfld, csum
		FROM notes ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.GUID, &n.ModelID, &n.Modified, &n.Tags, &n.Fields, &n.SortField, &n.Checksum); err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// GetCards retrieves all cards ordered by due position.
func (db *DB) GetCards() ([]Card, error) {
	rows, err := db.conn.Query(`
		SELECT id, nid, did, ord, mod, due
		FROM cards ORDER BY due, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.NoteID, &c.DeckID, &c.Ord, &c.Modified, &c.Due); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}
