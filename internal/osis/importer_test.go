package osis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/VerseVault/core/biblestore"
	"github.com/FocuswithJustin/VerseVault/core/sqlite"
)

const containerOSIS = `<?xml version="1.0" encoding="UTF-8"?>
<osis xmlns="http://www.bibletechnologies.net/2003/OSIS/namespace">
  <osisText osisIDWork="KJV">
    <div type="book" osisID="John">
      <chapter osisID="John.3">
        <verse osisID="John.3.16">For God so loved the world, that he gave
          his only begotten Son.</verse>
        <verse osisID="John.3.17">For God sent not his Son into the world
          to condemn the world.</verse>
      </chapter>
    </div>
    <div type="book" osisID="Gen">
      <chapter osisID="Gen.1">
        <verse osisID="Gen.1.1">In the beginning God created the heaven and the earth.</verse>
      </chapter>
    </div>
  </osisText>
</osis>`

const milestoneOSIS = `<?xml version="1.0" encoding="UTF-8"?>
<osis xmlns="http://www.bibletechnologies.net/2003/OSIS/namespace">
  <osisText osisIDWork="WEB">
    <div type="book" osisID="Ps">
      <chapter osisID="Ps.23"/>
      <p>
        <verse sID="Ps.23.1" osisID="Ps.23.1"/>The LORD is my shepherd;
        I shall not want.<note>A psalm of David.</note><verse eID="Ps.23.1"/>
        <verse sID="Ps.23.2" osisID="Ps.23.2"/>He maketh me to lie down
        in green pastures.<verse eID="Ps.23.2"/>
      </p>
    </div>
  </osisText>
</osis>`

func writeOSIS(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportContainerVerses(t *testing.T) {
	src := writeOSIS(t, containerOSIS)
	dest := filepath.Join(t.TempDir(), "KJV.db")

	stats, err := ImportFile(context.Background(), src, dest, biblestore.KJV)
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if stats.Books != 2 || stats.Verses != 3 {
		t.Errorf("stats = %+v, want 2 books, 3 verses", stats)
	}

	db, err := sqlite.OpenReadOnly(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var name string
	err = db.QueryRow(fmt.Sprintf(
		"SELECT name FROM %s WHERE id = 43", biblestore.KJV.BooksTable())).Scan(&name)
	if err != nil {
		t.Fatal(err)
	}
	if name != "John" {
		t.Errorf("book 43 name = %q, want John", name)
	}

	var text string
	err = db.QueryRow(fmt.Sprintf(
		"SELECT text FROM %s WHERE book_id = 43 AND chapter = 3 AND verse = 16",
		biblestore.KJV.VersesTable())).Scan(&text)
	if err != nil {
		t.Fatal(err)
	}
	want := "For God so loved the world, that he gave his only begotten Son."
	if text != want {
		t.Errorf("John 3:16 text = %q, want %q", text, want)
	}
}

func TestImportMilestoneVerses(t *testing.T) {
	src := writeOSIS(t, milestoneOSIS)
	dest := filepath.Join(t.TempDir(), "WEB.db")

	stats, err := ImportFile(context.Background(), src, dest, biblestore.WEB)
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if stats.Books != 1 || stats.Verses != 2 {
		t.Errorf("stats = %+v, want 1 book, 2 verses", stats)
	}

	db, err := sqlite.OpenReadOnly(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var text string
	err = db.QueryRow(fmt.Sprintf(
		"SELECT text FROM %s WHERE book_id = 19 AND chapter = 23 AND verse = 1",
		biblestore.WEB.VersesTable())).Scan(&text)
	if err != nil {
		t.Fatal(err)
	}
	want := "The LORD is my shepherd; I shall not want."
	if text != want {
		t.Errorf("Psalm 23:1 text = %q, want %q", text, want)
	}
}

func TestImportFeedsStoreQueries(t *testing.T) {
	src := writeOSIS(t, containerOSIS)
	s := biblestore.New(t.TempDir())

	if _, err := ImportFile(context.Background(), src, s.Path(biblestore.KJV), biblestore.KJV); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	v, err := s.Verse(biblestore.KJV, 43, 3, 16)
	if err != nil {
		t.Fatalf("Verse() error = %v", err)
	}
	if v == nil {
		t.Fatal("imported verse not found through store")
	}
	if v.Reference() != "John 3:16" {
		t.Errorf("Reference() = %q", v.Reference())
	}
}

func TestImportRejectsEmptyDocument(t *testing.T) {
	src := writeOSIS(t, `<?xml version="1.0"?><osis><osisText/></osis>`)
	dest := filepath.Join(t.TempDir(), "KJV.db")

	if _, err := ImportFile(context.Background(), src, dest, biblestore.KJV); err == nil {
		t.Fatal("ImportFile() of empty document succeeded")
	}
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Error("empty import left a database behind")
	}
}

func TestImportCancelled(t *testing.T) {
	src := writeOSIS(t, containerOSIS)
	dest := filepath.Join(t.TempDir(), "KJV.db")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ImportFile(ctx, src, dest, biblestore.KJV); !errors.Is(err, context.Canceled) {
		t.Errorf("ImportFile() error = %v, want context.Canceled", err)
	}
}

func TestParseVerseID(t *testing.T) {
	tests := []struct {
		id     string
		wantOK bool
		book   int
	}{
		{"John.3.16", true, 43},
		{"1John.2.3", true, 62},
		{"Gen.1.1", true, 1},
		{"Tob.1.1", false, 0},  // outside the canon
		{"John.3", false, 0},   // missing verse part
		{"John.3.x", false, 0}, // non-numeric
		{"", false, 0},
	}
	for _, tt := range tests {
		rec, ok := parseVerseID(tt.id)
		if ok != tt.wantOK {
			t.Errorf("parseVerseID(%q) ok = %v, want %v", tt.id, ok, tt.wantOK)
			continue
		}
		if ok && rec.book.ID != tt.book {
			t.Errorf("parseVerseID(%q) book = %d, want %d", tt.id, rec.book.ID, tt.book)
		}
	}
}
