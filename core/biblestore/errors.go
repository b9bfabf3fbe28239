package biblestore

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases.
var (
	// ErrNotDownloaded indicates the requested translation has no local
	// database file. Callers must download the translation first.
	ErrNotDownloaded = errors.New("translation database not downloaded")

	// ErrInvalidData indicates malformed row data. Reserved: no current
	// query path raises it, but it is part of the stable taxonomy.
	ErrInvalidData = errors.New("invalid database row data")
)

// OpenError indicates the database file exists but the driver failed to
// open it (corrupt file, permission error, etc.).
type OpenError struct {
	Translation Translation
	Err         error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open %s database: %v", e.Translation, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// QueryError indicates a query could not be prepared or executed.
// It is distinct from a legitimately empty result.
type QueryError struct {
	Op  string // operation that failed, e.g. "books", "search"
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// DownloadError indicates a transport-level failure while fetching a
// translation database from the remote archive.
type DownloadError struct {
	Translation Translation
	Err         error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %s failed: %v", e.Translation, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// BookNotFoundError indicates a book-scoped query matched no rows for the
// given book id.
type BookNotFoundError struct {
	ID int
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book not found: %d", e.ID)
}
