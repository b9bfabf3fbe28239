package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/VerseVault/core/biblestore"
	"github.com/FocuswithJustin/VerseVault/core/sqlite"
	"github.com/FocuswithJustin/VerseVault/internal/fileutil"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// TranslationInfo describes one translation's catalog entry and local state.
type TranslationInfo struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Downloaded    bool   `json:"downloaded"`
	SizeBytes     int64  `json:"size_bytes,omitempty"`
	EstimatedSize int64  `json:"estimated_size"`
}

// BookInfo describes one book of a downloaded translation.
type BookInfo struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Testament string `json:"testament"`
}

// VerseInfo is the wire form of a verse.
type VerseInfo struct {
	BookID    int    `json:"book_id"`
	Book      string `json:"book"`
	Chapter   int    `json:"chapter"`
	Verse     int    `json:"verse"`
	Text      string `json:"text"`
	Reference string `json:"reference"`
}

// PassageResult is the response for a free-text reference lookup.
type PassageResult struct {
	Reference string      `json:"reference"`
	Verses    []VerseInfo `json:"verses"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	Downloaded int    `json:"downloaded"`
	TotalSize  int64  `json:"total_size"`
	Driver     string `json:"driver"`
}

var startTime = time.Now()

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "VerseVault API",
		"version": "1.0.0",
		"endpoints": []string{
			"GET /api/v1/health",
			"GET /api/v1/translations",
			"GET /api/v1/translations/:code",
			"POST /api/v1/translations/:code/download",
			"DELETE /api/v1/translations/:code",
			"POST /api/v1/reset",
			"GET /api/v1/translations/:code/books",
			"GET /api/v1/translations/:code/books/:id/chapters",
			"GET /api/v1/translations/:code/books/:id/chapters/:n",
			"GET /api/v1/translations/:code/passage?ref=",
			"GET /api/v1/translations/:code/search?q=&limit=",
			"GET /api/v1/jobs/:id",
			"DELETE /api/v1/jobs/:id",
			"WS /api/v1/ws",
		},
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	downloaded := 0
	for _, t := range biblestore.All() {
		if appStore.IsDownloaded(t) {
			downloaded++
		}
	}

	respond(w, http.StatusOK, HealthInfo{
		Status:     "healthy",
		Version:    "1.0.0",
		Uptime:     time.Since(startTime).String(),
		Downloaded: downloaded,
		TotalSize:  appStore.TotalDownloadedSize(),
		Driver:     sqlite.DriverType(),
	})
}

func handleTranslations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	var infos []TranslationInfo
	for _, t := range biblestore.All() {
		infos = append(infos, translationInfo(t))
	}

	response := APIResponse{
		Success: true,
		Data:    infos,
		Meta: &APIMeta{
			Total:     len(infos),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleTranslationSubtree dispatches /api/v1/translations/{code}[/...].
func handleTranslationSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/translations/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		respondError(w, http.StatusBadRequest, "MISSING_CODE", "Translation code is required")
		return
	}

	t, ok := biblestore.ParseTranslation(segments[0])
	if !ok {
		respondError(w, http.StatusNotFound, "UNKNOWN_TRANSLATION",
			fmt.Sprintf("Unknown translation %q", segments[0]))
		return
	}

	switch {
	case len(segments) == 1:
		handleTranslationByCode(w, r, t)
	case len(segments) == 2 && segments[1] == "download":
		handleDownload(w, r, t)
	case len(segments) == 2 && segments[1] == "books":
		handleBooks(w, r, t)
	case len(segments) == 2 && segments[1] == "passage":
		handlePassage(w, r, t)
	case len(segments) == 2 && segments[1] == "search":
		handleSearch(w, r, t)
	case len(segments) == 4 && segments[1] == "books" && segments[3] == "chapters":
		handleChapterCount(w, r, t, segments[2])
	case len(segments) == 5 && segments[1] == "books" && segments[3] == "chapters":
		handleChapterVerses(w, r, t, segments[2], segments[4])
	default:
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
	}
}

func handleTranslationByCode(w http.ResponseWriter, r *http.Request, t biblestore.Translation) {
	switch r.Method {
	case http.MethodGet:
		respond(w, http.StatusOK, translationInfo(t))
	case http.MethodDelete:
		if err := appStore.Delete(t); err != nil {
			respondStoreError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"message": "Translation deleted"})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and DELETE are allowed")
	}
}

func handleDownload(w http.ResponseWriter, r *http.Request, t biblestore.Translation) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	job := globalJobStore.Create(t)
	runDownloadJob(job)
	respond(w, http.StatusAccepted, job)
}

func handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	if err := appStore.ClearAll(); err != nil {
		respondStoreError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "All translations removed"})
}

func handleBooks(w http.ResponseWriter, r *http.Request, t biblestore.Translation) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	books, err := appStore.Books(t)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	infos := make([]BookInfo, len(books))
	for i, b := range books {
		infos[i] = BookInfo{ID: b.ID, Name: b.Name, Testament: string(b.Testament())}
	}

	response := APIResponse{
		Success: true,
		Data:    infos,
		Meta: &APIMeta{
			Total:     len(infos),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func handleChapterCount(w http.ResponseWriter, r *http.Request, t biblestore.Translation, bookSeg string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	bookID, err := strconv.Atoi(bookSeg)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BOOK_ID", "Book ID must be an integer")
		return
	}

	count, err := appStore.ChapterCount(t, bookID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]int{"book_id": bookID, "chapters": count})
}

func handleChapterVerses(w http.ResponseWriter, r *http.Request, t biblestore.Translation, bookSeg, chapterSeg string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	bookID, err := strconv.Atoi(bookSeg)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BOOK_ID", "Book ID must be an integer")
		return
	}
	chapter, err := strconv.Atoi(chapterSeg)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_CHAPTER", "Chapter must be an integer")
		return
	}

	verses, err := appStore.Verses(t, bookID, chapter)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	infos := make([]VerseInfo, len(verses))
	for i, v := range verses {
		infos[i] = verseInfo(v)
	}

	response := APIResponse{
		Success: true,
		Data:    infos,
		Meta: &APIMeta{
			Total:     len(infos),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func handlePassage(w http.ResponseWriter, r *http.Request, t biblestore.Translation) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	raw := r.URL.Query().Get("ref")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "MISSING_REF", "Query parameter 'ref' is required")
		return
	}

	ref, ok := biblestore.ParseReference(raw)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_REF",
			fmt.Sprintf("Cannot parse reference %q", raw))
		return
	}

	book, err := appStore.FindBook(t, ref.Book)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if book == nil {
		respondError(w, http.StatusNotFound, "BOOK_NOT_FOUND",
			fmt.Sprintf("No book matching %q", ref.Book))
		return
	}

	var verses []biblestore.Verse
	if ref.Verse != nil {
		v, err := appStore.Verse(t, book.ID, ref.Chapter, *ref.Verse)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		if v == nil {
			respondError(w, http.StatusNotFound, "VERSE_NOT_FOUND",
				fmt.Sprintf("%s %d:%d not found", book.Name, ref.Chapter, *ref.Verse))
			return
		}
		verses = []biblestore.Verse{*v}
	} else {
		verses, err = appStore.Verses(t, book.ID, ref.Chapter)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		if len(verses) == 0 {
			respondError(w, http.StatusNotFound, "CHAPTER_NOT_FOUND",
				fmt.Sprintf("%s %d not found", book.Name, ref.Chapter))
			return
		}
	}

	infos := make([]VerseInfo, len(verses))
	for i, v := range verses {
		infos[i] = verseInfo(v)
	}
	respond(w, http.StatusOK, PassageResult{Reference: ref.String(), Verses: infos})
}

func handleSearch(w http.ResponseWriter, r *http.Request, t biblestore.Translation) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		respondError(w, http.StatusBadRequest, "MISSING_QUERY", "Query parameter 'q' is required")
		return
	}

	limit := biblestore.DefaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "Limit must be a positive integer")
			return
		}
		limit = n
	}

	verses, err := appStore.SearchVerses(t, q, limit)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	infos := make([]VerseInfo, len(verses))
	for i, v := range verses {
		infos[i] = verseInfo(v)
	}

	response := APIResponse{
		Success: true,
		Data:    infos,
		Meta: &APIMeta{
			Total:     len(infos),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Helper functions

func translationInfo(t biblestore.Translation) TranslationInfo {
	info := TranslationInfo{
		Code:          t.Code(),
		Name:          t.Name(),
		Downloaded:    appStore.IsDownloaded(t),
		EstimatedSize: t.EstimatedSize(),
	}
	if info.Downloaded {
		info.SizeBytes = fileutil.FileSize(appStore.Path(t))
	}
	return info
}

func verseInfo(v biblestore.Verse) VerseInfo {
	return VerseInfo{
		BookID:    v.BookID,
		Book:      v.BookName,
		Chapter:   v.Chapter,
		Verse:     v.Verse,
		Text:      v.Text,
		Reference: v.Reference(),
	}
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// respondStoreError maps store errors onto API status codes.
func respondStoreError(w http.ResponseWriter, err error) {
	var bookErr *biblestore.BookNotFoundError
	switch {
	case errors.Is(err, biblestore.ErrNotDownloaded):
		respondError(w, http.StatusConflict, "NOT_DOWNLOADED", "Translation is not downloaded")
	case errors.As(err, &bookErr):
		respondError(w, http.StatusNotFound, "BOOK_NOT_FOUND", bookErr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
