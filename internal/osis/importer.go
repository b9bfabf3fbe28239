// Package osis imports OSIS XML Bible documents into translation databases.
package osis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/VerseVault/core/biblestore"
	"github.com/FocuswithJustin/VerseVault/core/sqlite"
	"github.com/FocuswithJustin/VerseVault/internal/logging"
)

// Stats summarizes a completed import.
type Stats struct {
	Books  int
	Verses int
}

var verseExpr = xpath.MustCompile("//verse")

// verseRecord is one parsed verse ready for insertion.
type verseRecord struct {
	book    CanonBook
	chapter int
	verse   int
	text    string
}

// ImportFile parses the OSIS document at srcPath and writes a translation
// database to destPath. The database is built in a temporary file and
// renamed into place, so a failed import never leaves a partial database.
func ImportFile(ctx context.Context, srcPath, destPath string, t biblestore.Translation) (*Stats, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("opening OSIS file: %w", err)
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing OSIS XML: %w", err)
	}

	records, err := collectVerses(ctx, doc)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no verses found in %s", filepath.Base(srcPath))
	}

	stats, err := writeDatabase(ctx, destPath, t, records)
	if err != nil {
		return nil, err
	}

	logging.Info("import complete",
		"translation", t.Code(), "books", stats.Books, "verses", stats.Verses)
	return stats, nil
}

// collectVerses walks every verse element in document order. Both OSIS
// encodings are handled: container verses carry their text as children,
// milestone pairs (sID/eID) bracket text held by the surrounding nodes.
func collectVerses(ctx context.Context, doc *xmlquery.Node) ([]verseRecord, error) {
	var records []verseRecord
	for i, n := range xmlquery.QuerySelectorAll(doc, verseExpr) {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if eid := n.SelectAttr("eID"); eid != "" {
			continue
		}

		osisID := n.SelectAttr("osisID")
		sid := n.SelectAttr("sID")

		var text string
		switch {
		case osisID != "" && strings.TrimSpace(n.InnerText()) != "":
			text = n.InnerText()
		case sid != "":
			if osisID == "" {
				osisID = sid
			}
			text = milestoneText(n)
		default:
			continue
		}

		rec, ok := parseVerseID(osisID)
		if !ok {
			continue
		}
		rec.text = normalizeText(text)
		if rec.text == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// milestoneText gathers the text following a verse sID milestone up to
// the next verse marker, skipping notes and headings along the way.
func milestoneText(start *xmlquery.Node) string {
	var b strings.Builder
	for n := start.NextSibling; n != nil; n = n.NextSibling {
		switch n.Type {
		case xmlquery.TextNode:
			b.WriteString(n.Data)
		case xmlquery.ElementNode:
			if n.Data == "verse" {
				return b.String()
			}
			if n.Data == "note" || n.Data == "title" {
				continue
			}
			b.WriteString(n.InnerText())
		}
	}
	return b.String()
}

// parseVerseID splits an OSIS verse identifier like "John.3.16" into its
// book, chapter, and verse parts. Ranges and non-canonical books are
// rejected.
func parseVerseID(osisID string) (verseRecord, bool) {
	parts := strings.Split(osisID, ".")
	if len(parts) != 3 {
		return verseRecord{}, false
	}
	book, ok := LookupBook(parts[0])
	if !ok {
		return verseRecord{}, false
	}
	chapter, err := strconv.Atoi(parts[1])
	if err != nil || chapter < 1 {
		return verseRecord{}, false
	}
	verse, err := strconv.Atoi(parts[2])
	if err != nil || verse < 1 {
		return verseRecord{}, false
	}
	return verseRecord{book: book, chapter: chapter, verse: verse}, true
}

// normalizeText collapses runs of whitespace left behind by XML layout.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// writeDatabase builds the translation database atomically.
func writeDatabase(ctx context.Context, destPath string, t biblestore.Translation, records []verseRecord) (*Stats, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".import-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp database: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	stats, err := fillDatabase(ctx, tmpPath, t, records)
	if err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("moving database into place: %w", err)
	}
	return stats, nil
}

func fillDatabase(ctx context.Context, path string, t biblestore.Translation, records []verseRecord) (*Stats, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	schema := []string{
		fmt.Sprintf("CREATE TABLE %s (id INTEGER PRIMARY KEY, name TEXT NOT NULL)", t.BooksTable()),
		fmt.Sprintf(`CREATE TABLE %s (
			id INTEGER PRIMARY KEY,
			book_id INTEGER NOT NULL,
			chapter INTEGER NOT NULL,
			verse INTEGER NOT NULL,
			text TEXT NOT NULL)`, t.VersesTable()),
		fmt.Sprintf("CREATE INDEX %s_ref_idx ON %s (book_id, chapter, verse)",
			t.TablePrefix(), t.VersesTable()),
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	seen := make(map[int]CanonBook)
	for _, rec := range records {
		seen[rec.book.ID] = rec.book
	}
	bookIDs := make([]int, 0, len(seen))
	for id := range seen {
		bookIDs = append(bookIDs, id)
	}
	sort.Ints(bookIDs)

	insertBook, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, name) VALUES (?, ?)", t.BooksTable()))
	if err != nil {
		return nil, fmt.Errorf("preparing book insert: %w", err)
	}
	defer insertBook.Close()
	for _, id := range bookIDs {
		b := seen[id]
		if _, err := insertBook.ExecContext(ctx, b.ID, b.Name); err != nil {
			return nil, fmt.Errorf("inserting book %s: %w", b.Name, err)
		}
	}

	insertVerse, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (id, book_id, chapter, verse, text) VALUES (?, ?, ?, ?, ?)",
		t.VersesTable()))
	if err != nil {
		return nil, fmt.Errorf("preparing verse insert: %w", err)
	}
	defer insertVerse.Close()
	for i, rec := range records {
		if _, err := insertVerse.ExecContext(ctx, i+1, rec.book.ID, rec.chapter, rec.verse, rec.text); err != nil {
			return nil, fmt.Errorf("inserting %s %d:%d: %w", rec.book.Name, rec.chapter, rec.verse, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	return &Stats{Books: len(bookIDs), Verses: len(records)}, nil
}
