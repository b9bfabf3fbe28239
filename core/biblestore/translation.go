// Package biblestore provides translation-keyed read access to locally
// cached scripture databases, downloading translation files on demand.
//
// A Store owns at most one open database connection at a time, keyed by the
// active translation. All connection state is serialized internally, so a
// Store is safe for concurrent use.
package biblestore

import (
	"fmt"
	"strings"
)

// Translation identifies a supported scripture edition.
// The set of translations is closed and defined at compile time.
type Translation string

// Supported translations. All are public-domain editions.
const (
	KJV   Translation = "KJV"   // King James Version
	ASV   Translation = "ASV"   // American Standard Version
	WEB   Translation = "WEB"   // World English Bible
	YLT   Translation = "YLT"   // Young's Literal Translation
	BBE   Translation = "BBE"   // Bible in Basic English
	Darby Translation = "DARBY" // Darby Translation
)

// translationInfo holds the compile-time attributes of a translation.
type translationInfo struct {
	name string
	size int64 // estimated download size in bytes
}

var translations = map[Translation]translationInfo{
	KJV:   {name: "King James Version", size: 4_800_000},
	ASV:   {name: "American Standard Version", size: 4_700_000},
	WEB:   {name: "World English Bible", size: 4_600_000},
	YLT:   {name: "Young's Literal Translation", size: 4_700_000},
	BBE:   {name: "Bible in Basic English", size: 4_400_000},
	Darby: {name: "Darby Translation", size: 4_700_000},
}

// translationOrder fixes the catalog ordering for All.
var translationOrder = []Translation{KJV, ASV, WEB, YLT, BBE, Darby}

// All returns every supported translation in catalog order.
func All() []Translation {
	out := make([]Translation, len(translationOrder))
	copy(out, translationOrder)
	return out
}

// ParseTranslation resolves a translation code (case-insensitive).
func ParseTranslation(code string) (Translation, bool) {
	t := Translation(strings.ToUpper(strings.TrimSpace(code)))
	_, ok := translations[t]
	return t, ok
}

// Valid reports whether t is a known translation.
func (t Translation) Valid() bool {
	_, ok := translations[t]
	return ok
}

// Code returns the short translation code (e.g. "KJV").
func (t Translation) Code() string {
	return string(t)
}

// Name returns the human-readable translation name.
func (t Translation) Name() string {
	return translations[t].name
}

// EstimatedSize returns the approximate download size in bytes.
func (t Translation) EstimatedSize() int64 {
	return translations[t].size
}

// TablePrefix returns the per-translation table namespace prefix.
// Tables are named <prefix>_books and <prefix>_verses.
func (t Translation) TablePrefix() string {
	return string(t)
}

// FileName returns the local database file name for the translation.
func (t Translation) FileName() string {
	return string(t) + ".db"
}

// RemoteFile returns the file name published by the remote archive.
// Database files are distributed xz-compressed.
func (t Translation) RemoteFile() string {
	return t.FileName() + ".xz"
}

// BooksTable returns the books table name for the translation.
func (t Translation) BooksTable() string {
	return t.TablePrefix() + "_books"
}

// VersesTable returns the verses table name for the translation.
func (t Translation) VersesTable() string {
	return t.TablePrefix() + "_verses"
}

// Testament is a partition of the 66 canonical books.
type Testament string

const (
	OldTestament Testament = "old"
	NewTestament Testament = "new"
)

// lastOldTestamentBook is the id of Malachi, the final Old Testament book.
const lastOldTestamentBook = 39

// BookCount is the number of canonical books per translation.
const BookCount = 66

// Book is one of the 66 canonical books of a translation.
type Book struct {
	ID          int         `json:"id"` // 1-66, canonical order
	Name        string      `json:"name"`
	Translation Translation `json:"translation"`
}

// Testament returns the testament the book belongs to.
func (b Book) Testament() Testament {
	if b.ID <= lastOldTestamentBook {
		return OldTestament
	}
	return NewTestament
}

// Verse is a single verse of scripture. Text may be edited by callers for
// display purposes; verses are constructed fresh from each query and are
// never cached across calls.
type Verse struct {
	ID          int         `json:"id"`
	BookID      int         `json:"book_id"`
	BookName    string      `json:"book_name"`
	Chapter     int         `json:"chapter"`
	Verse       int         `json:"verse"`
	Text        string      `json:"text"`
	Translation Translation `json:"translation"`
}

// previewLimit bounds PreviewText to one lock-screen line.
const previewLimit = 80

// Reference returns the human-readable verse locator, e.g. "John 3:16".
func (v Verse) Reference() string {
	return fmt.Sprintf("%s %d:%d", v.BookName, v.Chapter, v.Verse)
}

// LockScreenText returns the two-line form used for wallpaper overlays:
// the reference on the first line, the verse text on the second.
func (v Verse) LockScreenText() string {
	return v.Reference() + "\n" + v.Text
}

// PreviewText returns the verse text truncated for list display.
func (v Verse) PreviewText() string {
	runes := []rune(v.Text)
	if len(runes) <= previewLimit {
		return v.Text
	}
	return strings.TrimRight(string(runes[:previewLimit]), " ") + "…"
}
