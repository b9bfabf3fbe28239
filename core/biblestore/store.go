package biblestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/FocuswithJustin/VerseVault/core/sqlite"
	"github.com/FocuswithJustin/VerseVault/internal/fileutil"
	"github.com/FocuswithJustin/VerseVault/internal/logging"
	"github.com/FocuswithJustin/VerseVault/internal/remote"
)

// DefaultBaseURL is the public archive of pre-built translation databases.
const DefaultBaseURL = "https://files.versevault.app/bibles"

const dirPerm = 0o755

// Fetcher retrieves a remote file to a local destination, reporting byte
// progress as data arrives. remote.Downloader is the production
// implementation.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string, onProgress func(received, total int64)) error
}

// Store provides translation-scoped read access to locally cached scripture
// databases and fetches missing databases from a remote archive.
//
// A Store holds at most one open connection at a time. Opening a different
// translation closes the prior connection first; all connection state is
// guarded by an internal mutex so queries never observe a connection for a
// translation other than the one requested.
type Store struct {
	dir     string
	baseURL string
	fetcher Fetcher

	mu      sync.Mutex // guards db and current
	db      *sql.DB
	current Translation

	flightMu sync.Mutex
	flights  map[Translation]*flight

	subMu sync.Mutex
	subs  map[chan Event]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithBaseURL overrides the remote archive base URL.
func WithBaseURL(url string) Option {
	return func(s *Store) { s.baseURL = url }
}

// WithFetcher overrides the remote transfer implementation.
func WithFetcher(f Fetcher) Option {
	return func(s *Store) { s.fetcher = f }
}

// New creates a Store rooted at dir. The directory is created lazily on
// first download or reset, not by New.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:     dir,
		baseURL: DefaultBaseURL,
		flights: make(map[Translation]*flight),
		subs:    make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = remote.NewDownloader(remote.NewClient())
	}
	return s
}

// Dir returns the cache directory root.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the deterministic on-disk path for a translation's database
// file. It never touches the filesystem.
func (s *Store) Path(t Translation) string {
	return filepath.Join(s.dir, t.FileName())
}

// IsDownloaded reports whether the translation's database file exists
// locally. Existence of the file is the only persisted state; there is no
// manifest.
func (s *Store) IsDownloaded(t Translation) bool {
	return fileutil.Exists(s.Path(t))
}

// Open ensures a connection to the translation's database, replacing any
// connection for a different translation. It is a no-op when already open
// for t. Fails with ErrNotDownloaded when the file is absent and with
// *OpenError when the driver cannot open it.
func (s *Store) Open(t Translation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(t)
}

// openLocked implements Open. Callers must hold s.mu.
func (s *Store) openLocked(t Translation) error {
	if s.db != nil && s.current == t {
		return nil
	}
	if !t.Valid() {
		return fmt.Errorf("unknown translation %q: %w", string(t), ErrNotDownloaded)
	}

	path := s.Path(t)
	if !fileutil.Exists(path) {
		return fmt.Errorf("%s: %w", t, ErrNotDownloaded)
	}

	if err := s.closeLocked(); err != nil {
		logging.Warn("closing previous connection", "translation", s.current.Code(), "error", err)
	}

	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return &OpenError{Translation: t, Err: err}
	}
	// sql.Open defers real work, and SQLite reads the file header lazily.
	// PRAGMA schema_version forces a header read so a corrupt or
	// unreadable file fails here rather than on the first query.
	var schemaVersion int
	if err := db.QueryRow("PRAGMA schema_version").Scan(&schemaVersion); err != nil {
		db.Close()
		return &OpenError{Translation: t, Err: err}
	}

	s.db = db
	s.current = t
	logging.Debug("opened translation database", "translation", t.Code(), "path", path)
	return nil
}

// Close releases the active connection, if any. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

// closeLocked implements Close. Callers must hold s.mu.
func (s *Store) closeLocked() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.current = ""
	return err
}

// Current returns the translation of the open connection, or "" when no
// connection is open.
func (s *Store) Current() Translation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ""
	}
	return s.current
}

// withDB runs fn against an open connection for t. This is the single
// guarded access path for all queries: the store mutex is held across the
// open check and the query itself, so concurrent opens for other
// translations cannot swap the connection mid-query.
func (s *Store) withDB(t Translation, fn func(db *sql.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(t); err != nil {
		return err
	}
	return fn(s.db)
}

// Delete removes the local database file for a translation, closing the
// connection first when t is currently open. A no-op when the file does not
// exist. If a download of t is in flight, Delete waits for it to finish so
// file operations on a translation stay serialized.
func (s *Store) Delete(t Translation) error {
	s.flightMu.Lock()
	f := s.flights[t]
	s.flightMu.Unlock()
	if f != nil {
		<-f.done
	}

	s.mu.Lock()
	if s.db != nil && s.current == t {
		if err := s.closeLocked(); err != nil {
			logging.Warn("closing connection before delete", "translation", t.Code(), "error", err)
		}
	}
	s.mu.Unlock()

	path := s.Path(t)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("delete %s: %w", t, err)
	}
	s.publish(Event{Type: EventDeleted, Translation: t, Path: path})
	return nil
}

// ClearAll closes the active connection and deletes the entire cache
// directory, recreating it empty. Used for a full reset.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	if err := s.closeLocked(); err != nil {
		logging.Warn("closing connection before reset", "error", err)
	}
	s.mu.Unlock()

	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clear cache directory: %w", err)
	}
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("recreate cache directory: %w", err)
	}
	s.publish(Event{Type: EventCleared})
	return nil
}

// TotalDownloadedSize sums the sizes of all downloaded translation files.
// Missing files contribute zero.
func (s *Store) TotalDownloadedSize() int64 {
	var total int64
	for _, t := range All() {
		info, err := os.Stat(s.Path(t))
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total
}
