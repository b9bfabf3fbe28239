package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/VerseVault/core/biblestore"
	"github.com/FocuswithJustin/VerseVault/core/sqlite"
)

// envelope mirrors APIResponse with raw data for per-test decoding.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

// stubFetcher writes fixture database bytes as the "downloaded" file.
type stubFetcher struct {
	build func(dest string) error
}

func (f *stubFetcher) Fetch(ctx context.Context, url, dest string, onProgress func(received, total int64)) error {
	if onProgress != nil {
		onProgress(50, 100)
	}
	if err := f.build(dest); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(100, 100)
	}
	return nil
}

// writeFixtureDB creates a minimal translation database at path.
func writeFixtureDB(t *testing.T, path string, tr biblestore.Translation) {
	t.Helper()
	if err := buildFixtureDB(path, tr); err != nil {
		t.Fatal(err)
	}
}

func buildFixtureDB(path string, tr biblestore.Translation) error {
	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	stmts := []string{
		fmt.Sprintf("CREATE TABLE %s (id INTEGER PRIMARY KEY, name TEXT NOT NULL)", tr.BooksTable()),
		fmt.Sprintf(`CREATE TABLE %s (
			id INTEGER PRIMARY KEY,
			book_id INTEGER NOT NULL,
			chapter INTEGER NOT NULL,
			verse INTEGER NOT NULL,
			text TEXT NOT NULL)`, tr.VersesTable()),
		fmt.Sprintf("INSERT INTO %s (id, name) VALUES (1, 'Genesis'), (43, 'John')", tr.BooksTable()),
		fmt.Sprintf(`INSERT INTO %s (id, book_id, chapter, verse, text) VALUES
			(1, 1, 1, 1, 'In the beginning God created the heaven and the earth.'),
			(2, 43, 3, 16, 'For God so loved the world, that he gave his only begotten Son.'),
			(3, 43, 3, 17, 'For God sent not his Son into the world to condemn the world.')`,
			tr.VersesTable()),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// newTestServer wires a store rooted in a temp dir behind the API routes.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	ServerConfig = Config{Port: 0, DataDir: dir}
	appStore = biblestore.New(dir, biblestore.WithFetcher(&stubFetcher{
		build: func(dest string) error { return buildFixtureDB(dest, biblestore.KJV) },
	}))
	GlobalHub = NewHub()
	go GlobalHub.Run()

	srv := httptest.NewServer(setupRoutes())
	t.Cleanup(func() {
		srv.Close()
		appStore.Close()
	})
	return srv
}

func getEnvelope(t *testing.T, url string) (int, envelope) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.StatusCode, env
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	status, env := getEnvelope(t, srv.URL+"/api/v1/health")
	if status != http.StatusOK || !env.Success {
		t.Fatalf("health status = %d, success = %v", status, env.Success)
	}

	var health HealthInfo
	if err := json.Unmarshal(env.Data, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q", health.Status)
	}
	if health.Driver == "" {
		t.Error("driver is empty")
	}
}

func TestListTranslations(t *testing.T) {
	srv := newTestServer(t)
	writeFixtureDB(t, appStore.Path(biblestore.KJV), biblestore.KJV)

	status, env := getEnvelope(t, srv.URL+"/api/v1/translations")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	var infos []TranslationInfo
	if err := json.Unmarshal(env.Data, &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != len(biblestore.All()) {
		t.Fatalf("got %d translations, want %d", len(infos), len(biblestore.All()))
	}
	if env.Meta == nil || env.Meta.Total != len(infos) {
		t.Error("meta total missing or wrong")
	}

	byCode := make(map[string]TranslationInfo)
	for _, info := range infos {
		byCode[info.Code] = info
	}
	if !byCode["KJV"].Downloaded {
		t.Error("KJV not reported as downloaded")
	}
	if byCode["KJV"].SizeBytes <= 0 {
		t.Error("KJV size not reported")
	}
	if byCode["ASV"].Downloaded {
		t.Error("ASV reported as downloaded")
	}
}

func TestTranslationUnknownCode(t *testing.T) {
	srv := newTestServer(t)

	status, env := getEnvelope(t, srv.URL+"/api/v1/translations/NIV")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if env.Error == nil || env.Error.Code != "UNKNOWN_TRANSLATION" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestBooksNotDownloaded(t *testing.T) {
	srv := newTestServer(t)

	status, env := getEnvelope(t, srv.URL+"/api/v1/translations/KJV/books")
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want 409", status)
	}
	if env.Error == nil || env.Error.Code != "NOT_DOWNLOADED" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestBooksChaptersVerses(t *testing.T) {
	srv := newTestServer(t)
	writeFixtureDB(t, appStore.Path(biblestore.KJV), biblestore.KJV)

	status, env := getEnvelope(t, srv.URL+"/api/v1/translations/KJV/books")
	if status != http.StatusOK {
		t.Fatalf("books status = %d", status)
	}
	var books []BookInfo
	if err := json.Unmarshal(env.Data, &books); err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 || books[0].Name != "Genesis" || books[1].Name != "John" {
		t.Fatalf("books = %+v", books)
	}
	if books[0].Testament != "old" || books[1].Testament != "new" {
		t.Errorf("testaments = %q, %q", books[0].Testament, books[1].Testament)
	}

	status, env = getEnvelope(t, srv.URL+"/api/v1/translations/KJV/books/43/chapters")
	if status != http.StatusOK {
		t.Fatalf("chapters status = %d", status)
	}
	var count map[string]int
	if err := json.Unmarshal(env.Data, &count); err != nil {
		t.Fatal(err)
	}
	if count["chapters"] != 3 {
		t.Errorf("chapters = %d, want 3", count["chapters"])
	}

	status, env = getEnvelope(t, srv.URL+"/api/v1/translations/KJV/books/43/chapters/3")
	if status != http.StatusOK {
		t.Fatalf("verses status = %d", status)
	}
	var verses []VerseInfo
	if err := json.Unmarshal(env.Data, &verses); err != nil {
		t.Fatal(err)
	}
	if len(verses) != 2 {
		t.Fatalf("got %d verses, want 2", len(verses))
	}
	if verses[0].Reference != "John 3:16" {
		t.Errorf("first reference = %q", verses[0].Reference)
	}
}

func TestChapterCountUnknownBook(t *testing.T) {
	srv := newTestServer(t)
	writeFixtureDB(t, appStore.Path(biblestore.KJV), biblestore.KJV)

	status, env := getEnvelope(t, srv.URL+"/api/v1/translations/KJV/books/99/chapters")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if env.Error == nil || env.Error.Code != "BOOK_NOT_FOUND" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestChapterCountBadBookID(t *testing.T) {
	srv := newTestServer(t)
	writeFixtureDB(t, appStore.Path(biblestore.KJV), biblestore.KJV)

	status, env := getEnvelope(t, srv.URL+"/api/v1/translations/KJV/books/xyz/chapters")
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if env.Error == nil || env.Error.Code != "INVALID_BOOK_ID" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestPassage(t *testing.T) {
	srv := newTestServer(t)
	writeFixtureDB(t, appStore.Path(biblestore.KJV), biblestore.KJV)

	status, env := getEnvelope(t,
		srv.URL+"/api/v1/translations/KJV/passage?ref="+url.QueryEscape("John 3:16"))
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var passage PassageResult
	if err := json.Unmarshal(env.Data, &passage); err != nil {
		t.Fatal(err)
	}
	if len(passage.Verses) != 1 || passage.Verses[0].Reference != "John 3:16" {
		t.Fatalf("passage = %+v", passage)
	}

	// Chapter-only reference returns the whole chapter.
	status, env = getEnvelope(t,
		srv.URL+"/api/v1/translations/KJV/passage?ref="+url.QueryEscape("John 3"))
	if status != http.StatusOK {
		t.Fatalf("chapter passage status = %d", status)
	}
	if err := json.Unmarshal(env.Data, &passage); err != nil {
		t.Fatal(err)
	}
	if len(passage.Verses) != 2 {
		t.Errorf("chapter passage has %d verses, want 2", len(passage.Verses))
	}
}

func TestPassageErrors(t *testing.T) {
	srv := newTestServer(t)
	writeFixtureDB(t, appStore.Path(biblestore.KJV), biblestore.KJV)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
	}{
		{"missing ref", "", http.StatusBadRequest, "MISSING_REF"},
		{"unparseable", "?ref=" + url.QueryEscape("not a ref!!"), http.StatusBadRequest, "INVALID_REF"},
		{"unknown book", "?ref=" + url.QueryEscape("Tobit 1:1"), http.StatusNotFound, "BOOK_NOT_FOUND"},
		{"absent verse", "?ref=" + url.QueryEscape("John 3:99"), http.StatusNotFound, "VERSE_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := getEnvelope(t, srv.URL+"/api/v1/translations/KJV/passage"+tt.query)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	writeFixtureDB(t, appStore.Path(biblestore.KJV), biblestore.KJV)

	status, env := getEnvelope(t, srv.URL+"/api/v1/translations/KJV/search?q=world")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var verses []VerseInfo
	if err := json.Unmarshal(env.Data, &verses); err != nil {
		t.Fatal(err)
	}
	if len(verses) != 2 {
		t.Fatalf("got %d results, want 2", len(verses))
	}

	status, env = getEnvelope(t, srv.URL+"/api/v1/translations/KJV/search?q=world&limit=1")
	if status != http.StatusOK {
		t.Fatalf("limited status = %d", status)
	}
	if err := json.Unmarshal(env.Data, &verses); err != nil {
		t.Fatal(err)
	}
	if len(verses) != 1 {
		t.Errorf("limited results = %d, want 1", len(verses))
	}

	status, env = getEnvelope(t, srv.URL+"/api/v1/translations/KJV/search")
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "MISSING_QUERY" {
		t.Errorf("missing q: status = %d, error = %+v", status, env.Error)
	}

	status, env = getEnvelope(t, srv.URL+"/api/v1/translations/KJV/search?q=x&limit=0")
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "INVALID_LIMIT" {
		t.Errorf("bad limit: status = %d, error = %+v", status, env.Error)
	}
}

func TestDeleteTranslation(t *testing.T) {
	srv := newTestServer(t)
	writeFixtureDB(t, appStore.Path(biblestore.KJV), biblestore.KJV)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/translations/KJV", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if appStore.IsDownloaded(biblestore.KJV) {
		t.Error("file still present after delete")
	}
}

func TestReset(t *testing.T) {
	srv := newTestServer(t)
	writeFixtureDB(t, appStore.Path(biblestore.KJV), biblestore.KJV)
	writeFixtureDB(t, appStore.Path(biblestore.ASV), biblestore.ASV)

	resp, err := http.Post(srv.URL+"/api/v1/reset", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	entries, err := os.ReadDir(filepath.Dir(appStore.Path(biblestore.KJV)))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("data dir not empty after reset: %d entries", len(entries))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/translations", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestSecurityHeaders(t *testing.T) {
	dir := t.TempDir()
	handler, err := initServer(Config{Port: 0, DataDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := resp.Header.Get("X-Request-ID"); got == "" {
		t.Error("X-Request-ID missing")
	}
}
