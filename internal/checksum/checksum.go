// Package checksum derives the identifiers Anki stores alongside each note.
package checksum

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"html"
	"regexp"
	"strconv"
	"strings"
)

const base91Table = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"!#$%&()*+,-./:;<=>?@[]^_`{|}~"

var (
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	styleRe   = regexp.MustCompile(`(?is)<(style|script).*?>.*?</(style|script)>`)
	tagRe     = regexp.MustCompile(`(?s)<.*?>`)
)

// GUID returns a stable note identifier for the given field values.
// Identical fields always yield the same GUID, so re-imported notes update
// rather than duplicate.
func GUID(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "__")))
	return base91(binary.BigEndian.Uint64(sum[:8]))
}

func base91(n uint64) string {
	if n == 0 {
		return base91Table[:1]
	}
	var buf []byte
	for n > 0 {
		buf = append(buf, base91Table[n%91])
		n /= 91
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// StripHTML removes markup and decodes entities, leaving the text Anki sorts on.
func StripHTML(s string) string {
	s = commentRe.ReplaceAllString(s, "")
	s = styleRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

// FieldChecksum returns the integer checksum Anki uses for duplicate lookups:
// the first 8 hex digits of the SHA-1 of the stripped field.
func FieldChecksum(field string) int64 {
	sum := sha1.Sum([]byte(StripHTML(field)))
	n, _ := strconv.ParseInt(hex.EncodeToString(sum[:4]), 16, 64)
	return n
}
