package biblestore

import (
	"database/sql"
	"fmt"
	"strings"
)

// DefaultSearchLimit bounds SearchVerses when the caller passes limit <= 0.
const DefaultSearchLimit = 50

// Books returns all books of the translation ordered by ascending id,
// opening the translation's database if needed.
func (s *Store) Books(t Translation) ([]Book, error) {
	var books []Book
	err := s.withDB(t, func(db *sql.DB) error {
		query := fmt.Sprintf("SELECT id, name FROM %s ORDER BY id", t.BooksTable())
		rows, err := db.Query(query)
		if err != nil {
			return &QueryError{Op: "books", Err: err}
		}
		defer rows.Close()

		for rows.Next() {
			b := Book{Translation: t}
			if err := rows.Scan(&b.ID, &b.Name); err != nil {
				return &QueryError{Op: "books", Err: err}
			}
			books = append(books, b)
		}
		if err := rows.Err(); err != nil {
			return &QueryError{Op: "books", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// FindBook resolves a book by display name, matching case-insensitively
// on the full name or a unique prefix ("gen" resolves Genesis). Returns
// nil when nothing matches or the prefix is ambiguous.
func (s *Store) FindBook(t Translation, name string) (*Book, error) {
	books, err := s.Books(t)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return nil, nil
	}

	var prefixMatch *Book
	prefixCount := 0
	for i := range books {
		bn := strings.ToLower(books[i].Name)
		if bn == lower {
			return &books[i], nil
		}
		if strings.HasPrefix(bn, lower) {
			prefixMatch = &books[i]
			prefixCount++
		}
	}
	if prefixCount == 1 {
		return prefixMatch, nil
	}
	return nil, nil
}

// ChapterCount returns the highest chapter number of the given book.
// A book id matching no verses fails with *BookNotFoundError; the store
// does not distinguish an absent book from a book with zero verses.
func (s *Store) ChapterCount(t Translation, bookID int) (int, error) {
	var count int
	err := s.withDB(t, func(db *sql.DB) error {
		query := fmt.Sprintf("SELECT MAX(chapter) FROM %s WHERE book_id = ?", t.VersesTable())
		var max sql.NullInt64
		if err := db.QueryRow(query, bookID).Scan(&max); err != nil {
			return &QueryError{Op: "chapter count", Err: err}
		}
		if !max.Valid {
			return &BookNotFoundError{ID: bookID}
		}
		count = int(max.Int64)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Verses returns all verses of a chapter ordered by ascending verse number,
// each carrying its resolved book name.
func (s *Store) Verses(t Translation, bookID, chapter int) ([]Verse, error) {
	var verses []Verse
	err := s.withDB(t, func(db *sql.DB) error {
		query := fmt.Sprintf(
			`SELECT v.id, v.book_id, b.name, v.chapter, v.verse, v.text
			 FROM %s v JOIN %s b ON b.id = v.book_id
			 WHERE v.book_id = ? AND v.chapter = ?
			 ORDER BY v.verse`,
			t.VersesTable(), t.BooksTable())
		rows, err := db.Query(query, bookID, chapter)
		if err != nil {
			return &QueryError{Op: "verses", Err: err}
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scanVerse(rows, t)
			if err != nil {
				return &QueryError{Op: "verses", Err: err}
			}
			verses = append(verses, v)
		}
		if err := rows.Err(); err != nil {
			return &QueryError{Op: "verses", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verses, nil
}

// Verse returns a single verse, or nil when the book/chapter/verse
// combination does not exist. Logical absence is not an error.
func (s *Store) Verse(t Translation, bookID, chapter, verse int) (*Verse, error) {
	var found *Verse
	err := s.withDB(t, func(db *sql.DB) error {
		query := fmt.Sprintf(
			`SELECT v.id, v.book_id, b.name, v.chapter, v.verse, v.text
			 FROM %s v JOIN %s b ON b.id = v.book_id
			 WHERE v.book_id = ? AND v.chapter = ? AND v.verse = ?
			 LIMIT 1`,
			t.VersesTable(), t.BooksTable())
		v := Verse{Translation: t}
		var text sql.NullString
		err := db.QueryRow(query, bookID, chapter, verse).
			Scan(&v.ID, &v.BookID, &v.BookName, &v.Chapter, &v.Verse, &text)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return &QueryError{Op: "verse", Err: err}
		}
		v.Text = text.String
		found = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// SearchVerses returns verses whose text contains query as a substring,
// joined with book names, in canonical scripture order (book, chapter,
// verse), bounded by limit. There is no relevance ranking.
func (s *Store) SearchVerses(t Translation, query string, limit int) ([]Verse, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var verses []Verse
	err := s.withDB(t, func(db *sql.DB) error {
		stmt := fmt.Sprintf(
			`SELECT v.id, v.book_id, b.name, v.chapter, v.verse, v.text
			 FROM %s v JOIN %s b ON b.id = v.book_id
			 WHERE v.text LIKE '%%' || ? || '%%'
			 ORDER BY v.book_id, v.chapter, v.verse
			 LIMIT ?`,
			t.VersesTable(), t.BooksTable())
		rows, err := db.Query(stmt, query, limit)
		if err != nil {
			return &QueryError{Op: "search", Err: err}
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scanVerse(rows, t)
			if err != nil {
				return &QueryError{Op: "search", Err: err}
			}
			verses = append(verses, v)
		}
		if err := rows.Err(); err != nil {
			return &QueryError{Op: "search", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verses, nil
}

// scanVerse reads one joined verse row.
func scanVerse(rows *sql.Rows, t Translation) (Verse, error) {
	v := Verse{Translation: t}
	var text sql.NullString
	if err := rows.Scan(&v.ID, &v.BookID, &v.BookName, &v.Chapter, &v.Verse, &text); err != nil {
		return Verse{}, err
	}
	v.Text = text.String
	return v, nil
}
