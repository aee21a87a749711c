package ast

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIdentifier is returned for names that are not valid symbol names.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Identifier is a validated symbol name. Local labels are written with a
// leading dot and belong to the nearest preceding global label; the qualified
// form is "global.local".
type Identifier struct {
	Global string
	Local  string
}

// ParseIdentifier validates s and splits it into its global and local parts.
func ParseIdentifier(s string) (Identifier, error) {
	global, local, dotted := strings.Cut(s, ".")
	switch {
	case !dotted && ValidName(s):
		return Identifier{Global: s}, nil
	case dotted && global == "" && ValidName(local):
		return Identifier{Local: local}, nil
	case dotted && ValidName(global) && ValidName(local):
		return Identifier{Global: global, Local: local}, nil
	}
	return Identifier{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
}

// MustIdentifier is ParseIdentifier for names known to be valid.
func MustIdentifier(s string) Identifier {
	id, err := ParseIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

// ValidName reports whether s is a plain name: a letter or underscore followed
// by letters, digits or underscores.
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// IsLocal reports whether the identifier still needs a global label to qualify it.
func (id Identifier) IsLocal() bool {
	return id.Global == "" && id.Local != ""
}

// Qualify attaches a local identifier to global. Other identifiers are returned unchanged.
func (id Identifier) Qualify(global string) Identifier {
	if !id.IsLocal() {
		return id
	}
	return Identifier{Global: global, Local: id.Local}
}

// Key is the case-folded form used for table lookups.
func (id Identifier) Key() string {
	return strings.ToLower(id.String())
}

func (id Identifier) String() string {
	switch {
	case id.Local == "":
		return id.Global
	case id.Global == "":
		return "." + id.Local
	}
	return id.Global + "." + id.Local
}
