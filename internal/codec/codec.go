// Package codec derives attendee identifiers and encodes the text carried by
// badge QR codes.
package codec

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Delimiter separates the identifier from the display name in a payload.
const Delimiter = "|"

// DerivedPrefix marks identifiers computed from a name.
const DerivedPrefix = "AT"

// ErrDelimiter is returned when a field to encode contains the delimiter.
var ErrDelimiter = errors.New("codec: field contains payload delimiter")

// Payload is the structured form of scanned badge text.
type Payload struct {
	ID      string
	Name    string
	HasName bool
}

// NormalizeName returns the canonical form hashed by DeriveIdentifier:
// NFC, trimmed, inner whitespace collapsed, upper case.
func NormalizeName(name string) string {
	name = norm.NFC.String(name)
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// DeriveIdentifier computes a short printable identifier from a name. The
// same name always yields the same identifier; two different names may
// collide in the 32-bit space.
func DeriveIdentifier(name string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(NormalizeName(name))) {
		h = h*31 + int32(unit)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return fmt.Sprintf("%s%08X", DerivedPrefix, abs)
}

// IsDerived reports whether id has the shape produced by DeriveIdentifier.
func IsDerived(id string) bool {
	if len(id) != len(DerivedPrefix)+8 || !strings.HasPrefix(id, DerivedPrefix) {
		return false
	}
	for _, r := range id[len(DerivedPrefix):] {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}

// EncodePayload joins id and name for embedding in a QR code. A blank name
// produces the bare identifier.
func EncodePayload(id, name string) (string, error) {
	if strings.Contains(id, Delimiter) || strings.Contains(name, Delimiter) {
		return "", ErrDelimiter
	}
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if name == "" {
		return id, nil
	}
	return id + Delimiter + name, nil
}

// DecodePayload splits scanned text on the first delimiter. Text without a
// delimiter is a bare identifier.
func DecodePayload(text string) Payload {
	id, name, found := strings.Cut(text, Delimiter)
	p := Payload{ID: strings.TrimSpace(id)}
	if found {
		p.Name = strings.TrimSpace(name)
		p.HasName = p.Name != ""
	}
	return p
}
