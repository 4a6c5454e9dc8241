// Package id generates opaque tokens that callers can use to identify
// the routes they attach to a stage, using github.com/google/uuid.
package id

import "github.com/google/uuid"

// Token is an opaque route identifier. The zero Token is never issued by
// New and is reserved as a sentinel for "no route".
type Token string

// New mints a fresh, globally unique Token.
func New() Token {
	return Token(uuid.NewString())
}

// IsZero reports whether t is the unset sentinel value.
func (t Token) IsZero() bool {
	return t == ""
}
