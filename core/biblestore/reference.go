package biblestore

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Reference is a parsed free-text scripture locator like "John 3:16".
// Verse is nil for chapter-only references ("Genesis 1").
type Reference struct {
	Book    string
	Chapter int
	Verse   *int
}

// parsedReference is the participle grammar for the reference syntax:
// an optional single leading digit plus optional space, a book name of
// letters, a space, a chapter number, and an optional ":verse" suffix.
type parsedReference struct {
	Book    string `parser:"@Book"`
	Chapter int    `parser:"Whitespace @Number"`
	Verse   *int   `parser:"( \":\" @Number )?"`
}

var referenceLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Book names: optional single leading digit and space, then letters.
	// Examples: John, Genesis, 1John, "1 John".
	{Name: "Book", Pattern: `(?:\d ?)?[A-Za-z]+`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var referenceParser = participle.MustBuild[parsedReference](
	participle.Lexer(referenceLexer),
)

// ParseReference parses free text of the shape
// "[leading digit ]BookName Chapter[:Verse]" into its components.
// It is a pure lexical operation with no database access. Input that does
// not match the grammar yields ok = false, not an error.
func ParseReference(input string) (*Reference, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, false
	}

	parsed, err := referenceParser.ParseString("", trimmed)
	if err != nil {
		return nil, false
	}

	return &Reference{
		Book:    parsed.Book,
		Chapter: parsed.Chapter,
		Verse:   parsed.Verse,
	}, true
}

// String returns the canonical form of the reference.
func (r *Reference) String() string {
	if r.Verse != nil {
		return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, *r.Verse)
	}
	return fmt.Sprintf("%s %d", r.Book, r.Chapter)
}
