package parser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/conorfennell/birthdeck/internal/domain"
)

// BirthdayLayout is the date layout the extractor script emits.
const BirthdayLayout = "2006-01-02"

// ErrNotList is returned when the extractor output is not a JSON array.
var ErrNotList = errors.New("extractor output is not a list of records")

// MalformedRecordError describes a record that could not be turned into a contact.
type MalformedRecordError struct {
	Index  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %d: %s", e.Index, e.Reason)
}

// Options controls how malformed records are handled.
type Options struct {
	// SkipMalformed drops malformed records instead of aborting on the first one.
	SkipMalformed bool
	Logger        *slog.Logger
}

// Result holds the parsed contacts and any records that were skipped.
type Result struct {
	Contacts []domain.Contact
	Skipped  []*MalformedRecordError
}

type record struct {
	Name     *string `json:"name"`
	Birthday *string `json:"birthday"`
}

// Parse reads the extractor's JSON output and returns the contacts in input order.
func Parse(r io.Reader, opts Options) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read extractor output: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return Result{}, fmt.Errorf("%w: empty output", ErrNotList)
	}
	if trimmed[0] != '[' {
		return Result{}, fmt.Errorf("%w: output starts with %q", ErrNotList, trimmed[0])
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNotList, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := Result{Contacts: make([]domain.Contact, 0, len(raw))}
	for i, msg := range raw {
		contact, recErr := parseRecord(i, msg)
		if recErr != nil {
			if !opts.SkipMalformed {
				return Result{}, recErr
			}
			logger.Warn("Skipping malformed contact record", "index", i, "reason", recErr.Reason)
			res.Skipped = append(res.Skipped, recErr)
			continue
		}
		res.Contacts = append(res.Contacts, contact)
	}

	return res, nil
}

func parseRecord(index int, msg json.RawMessage) (domain.Contact, *MalformedRecordError) {
	var rec record
	if err := json.Unmarshal(msg, &rec); err != nil {
		return domain.Contact{}, &MalformedRecordError{Index: index, Reason: "not an object"}
	}
	if rec.Name == nil || strings.TrimSpace(*rec.Name) == "" {
		return domain.Contact{}, &MalformedRecordError{Index: index, Reason: "missing name"}
	}
	if rec.Birthday == nil {
		return domain.Contact{}, &MalformedRecordError{Index: index, Reason: "missing birthday"}
	}

	birthday, err := time.Parse(BirthdayLayout, *rec.Birthday)
	if err != nil {
		return domain.Contact{}, &MalformedRecordError{
			Index:  index,
			Reason: fmt.Sprintf("birthday %q is not a date", *rec.Birthday),
		}
	}

	return domain.Contact{Name: *rec.Name, Birthday: birthday}, nil
}
