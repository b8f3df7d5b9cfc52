package store

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// maxIDBytes bounds the UTF-8 length of an id. File names are the id plus
// ".yml" and a temporary suffix, and must fit the 255-byte name limit of
// common filesystems.
const maxIDBytes = 200

// ParseID validates and normalises a participant id.
//
// UUIDs in any accepted form (hyphenated, braced, urn:uuid:) are rewritten to
// their canonical lowercase hyphenated form. Other ids are NFC-normalised and
// must consist of letters, digits, '-', '_' or '.', not starting with '.'.
// The result is safe to use as a file name.
func ParseID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &InvalidIDError{ID: raw, Reason: "empty"}
	}

	if u, err := uuid.Parse(s); err == nil {
		return u.String(), nil
	}

	s = norm.NFC.String(s)
	if len(s) > maxIDBytes {
		return "", &InvalidIDError{ID: raw, Reason: "too long"}
	}
	if s[0] == '.' {
		return "", &InvalidIDError{ID: raw, Reason: "leading dot"}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '-', '_', '.':
			continue
		}
		return "", &InvalidIDError{ID: raw, Reason: "unsupported character " + strconv.QuoteRune(r)}
	}
	return s, nil
}

// MustParseID is ParseID for ids known to be valid (tests, constants).
func MustParseID(raw string) string {
	id, err := ParseID(raw)
	if err != nil {
		panic(err)
	}
	return id
}
