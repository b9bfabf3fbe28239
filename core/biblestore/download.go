package biblestore

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/FocuswithJustin/VerseVault/internal/logging"
)

// Progress describes the state of an in-flight download.
type Progress struct {
	Fraction float64 // 0.0-1.0
	Received int64
	Total    int64 // -1 when the remote did not report a length
}

// flight is one in-flight download shared by all concurrent callers for a
// translation. Late joiners attach their progress callbacks and wait on
// done for the shared result.
type flight struct {
	done chan struct{}
	path string
	err  error

	mu   sync.Mutex
	subs []func(Progress)
}

func (f *flight) subscribe(onProgress func(Progress)) {
	if onProgress == nil {
		return
	}
	f.mu.Lock()
	f.subs = append(f.subs, onProgress)
	f.mu.Unlock()
}

func (f *flight) report(p Progress) {
	f.mu.Lock()
	subs := make([]func(Progress), len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(p)
	}
}

// Download retrieves the translation's database file from the remote
// archive, reporting fractional progress as data arrives, and returns the
// final file location. The file is written to a temporary location and
// renamed into place, so a partially transferred database is never visible
// at Path(t).
//
// Concurrent downloads of the same translation are deduplicated: later
// callers join the in-flight transfer, receive its progress, and share its
// result. Cancelling a joiner's context detaches that caller only; the
// transfer itself is bound to the first caller's context.
func (s *Store) Download(ctx context.Context, t Translation, onProgress func(Progress)) (string, error) {
	if !t.Valid() {
		return "", &DownloadError{Translation: t, Err: fmt.Errorf("unknown translation %q", string(t))}
	}

	s.flightMu.Lock()
	if f, ok := s.flights[t]; ok {
		s.flightMu.Unlock()
		f.subscribe(onProgress)
		select {
		case <-f.done:
			return f.path, f.err
		case <-ctx.Done():
			return "", &DownloadError{Translation: t, Err: ctx.Err()}
		}
	}
	f := &flight{done: make(chan struct{})}
	f.subscribe(onProgress)
	s.flights[t] = f
	s.flightMu.Unlock()

	f.path, f.err = s.download(ctx, t, f)

	s.flightMu.Lock()
	delete(s.flights, t)
	s.flightMu.Unlock()
	close(f.done)

	return f.path, f.err
}

// download performs the actual transfer for a flight.
func (s *Store) download(ctx context.Context, t Translation, f *flight) (string, error) {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return "", &DownloadError{Translation: t, Err: err}
	}

	url := s.baseURL + "/" + t.RemoteFile()
	dest := s.Path(t)

	logging.Info("downloading translation", "translation", t.Code(), "url", url)

	err := s.fetcher.Fetch(ctx, url, dest, func(received, total int64) {
		f.report(progressFor(t, received, total))
	})
	if err != nil {
		return "", &DownloadError{Translation: t, Err: err}
	}

	f.report(Progress{Fraction: 1.0, Received: fileSize(dest), Total: fileSize(dest)})
	logging.Info("download complete", "translation", t.Code(), "path", dest)
	s.publish(Event{Type: EventDownloaded, Translation: t, Path: dest})
	return dest, nil
}

// progressFor converts byte counts to a bounded fraction. When the remote
// reports no length, the translation's estimated size stands in and the
// fraction is capped below 1.0 until completion.
func progressFor(t Translation, received, total int64) Progress {
	p := Progress{Received: received, Total: total}
	switch {
	case total > 0:
		p.Fraction = float64(received) / float64(total)
		if p.Fraction > 1.0 {
			p.Fraction = 1.0
		}
	case t.EstimatedSize() > 0:
		p.Total = -1
		p.Fraction = float64(received) / float64(t.EstimatedSize())
		if p.Fraction > 0.99 {
			p.Fraction = 0.99
		}
	default:
		p.Total = -1
	}
	return p
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
