// Command versevault manages a local library of Bible translation
// databases: downloading them from the remote archive, importing OSIS
// sources, reading passages, searching, and serving the REST API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/VerseVault/core/biblestore"
	"github.com/FocuswithJustin/VerseVault/core/sqlite"
	"github.com/FocuswithJustin/VerseVault/internal/api"
	"github.com/FocuswithJustin/VerseVault/internal/logging"
	"github.com/FocuswithJustin/VerseVault/internal/osis"
)

const version = "1.0.0"

// CLI defines the command-line interface for versevault.
var CLI struct {
	// Global flags
	DataDir   string `name:"data-dir" help:"Directory holding translation databases (default: user cache dir)" type:"path"`
	BaseURL   string `name:"base-url" help:"Remote archive base URL"`
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log output format"`

	// Command groups (noun-first organization)
	Translations TranslationsGroup `cmd:"" help:"Translation catalog and download management"`
	Read         ReadCmd           `cmd:"" help:"Read a passage by free-text reference"`
	Search       SearchCmd         `cmd:"" help:"Search verse text in a translation"`
	Import       ImportCmd         `cmd:"" help:"Import an OSIS XML file into a translation database"`
	Serve        ServeCmd          `cmd:"" help:"Start the REST API server"`
	Version      VersionCmd        `cmd:"" help:"Print version information"`
}

// TranslationsGroup contains translation lifecycle operations.
type TranslationsGroup struct {
	List     ListCmd     `cmd:"" help:"List translations and their download state"`
	Info     InfoCmd     `cmd:"" help:"Show details for one translation"`
	Download DownloadCmd `cmd:"" help:"Download a translation database"`
	Delete   DeleteCmd   `cmd:"" help:"Delete a downloaded translation"`
	Clear    ClearCmd    `cmd:"" help:"Delete all downloaded translations"`
}

// ListCmd lists translations and their download state.
type ListCmd struct{}

// InfoCmd shows details for one translation.
type InfoCmd struct {
	Code string `arg:"" help:"Translation code (KJV, ASV, WEB, YLT, BBE, DARBY)"`
}

// DownloadCmd downloads a translation database.
type DownloadCmd struct {
	Code string `arg:"" help:"Translation code to download"`
}

// DeleteCmd deletes a downloaded translation.
type DeleteCmd struct {
	Code string `arg:"" help:"Translation code to delete"`
}

// ClearCmd deletes all downloaded translations.
type ClearCmd struct{}

// ReadCmd reads a passage by free-text reference.
type ReadCmd struct {
	Translation string   `name:"translation" short:"t" default:"KJV" help:"Translation code"`
	Ref         []string `arg:"" help:"Reference, e.g. 'John 3:16' or 'Genesis 1'"`
}

// SearchCmd searches verse text within a translation.
type SearchCmd struct {
	Translation string `name:"translation" short:"t" default:"KJV" help:"Translation code"`
	Limit       int    `help:"Maximum number of results" default:"50"`
	Query       string `arg:"" help:"Substring to search for"`
}

// ImportCmd imports an OSIS XML file into a translation database.
type ImportCmd struct {
	Translation string `name:"translation" short:"t" required:"" help:"Translation code for the imported database"`
	Output      string `help:"Output database path (default: the translation's store path)" type:"path"`
	Source      string `arg:"" help:"Path to OSIS XML file" type:"existingfile"`
}

// ServeCmd starts the REST API server.
type ServeCmd struct {
	Port           int      `help:"HTTP server port" default:"8081"`
	AllowedOrigins []string `name:"allowed-origins" help:"CORS allowed origins (empty = allow all)"`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func dataDir() string {
	if CLI.DataDir != "" {
		return CLI.DataDir
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return "bibles"
	}
	return filepath.Join(cache, "versevault")
}

func openStore() *biblestore.Store {
	var opts []biblestore.Option
	if CLI.BaseURL != "" {
		opts = append(opts, biblestore.WithBaseURL(CLI.BaseURL))
	}
	return biblestore.New(dataDir(), opts...)
}

func parseCode(code string) (biblestore.Translation, error) {
	t, ok := biblestore.ParseTranslation(code)
	if !ok {
		return "", fmt.Errorf("unknown translation %q (known: %s)", code, knownCodes())
	}
	return t, nil
}

func knownCodes() string {
	codes := make([]string, 0, len(biblestore.All()))
	for _, t := range biblestore.All() {
		codes = append(codes, t.Code())
	}
	return strings.Join(codes, ", ")
}

// Run lists translations and their download state.
func (c *ListCmd) Run() error {
	s := openStore()
	defer s.Close()

	fmt.Printf("%-6s %-28s %-12s %s\n", "CODE", "NAME", "SIZE", "DOWNLOADED")
	for _, t := range biblestore.All() {
		size := fmt.Sprintf("~%.1f MB", float64(t.EstimatedSize())/(1024*1024))
		downloaded := "no"
		if s.IsDownloaded(t) {
			downloaded = "yes"
		}
		fmt.Printf("%-6s %-28s %-12s %s\n", t.Code(), t.Name(), size, downloaded)
	}
	return nil
}

// Run shows details for one translation.
func (c *InfoCmd) Run() error {
	t, err := parseCode(c.Code)
	if err != nil {
		return err
	}
	s := openStore()
	defer s.Close()

	fmt.Printf("Code:            %s\n", t.Code())
	fmt.Printf("Name:            %s\n", t.Name())
	fmt.Printf("Estimated size:  %d bytes\n", t.EstimatedSize())
	fmt.Printf("Path:            %s\n", s.Path(t))
	fmt.Printf("Downloaded:      %v\n", s.IsDownloaded(t))
	return nil
}

// Run downloads a translation database, rendering progress to stderr.
func (c *DownloadCmd) Run() error {
	t, err := parseCode(c.Code)
	if err != nil {
		return err
	}
	s := openStore()
	defer s.Close()

	if s.IsDownloaded(t) {
		fmt.Printf("%s is already downloaded at %s\n", t.Code(), s.Path(t))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lastPct := -1
	path, err := s.Download(ctx, t, func(p biblestore.Progress) {
		pct := int(p.Fraction * 100)
		if pct != lastPct {
			lastPct = pct
			fmt.Fprintf(os.Stderr, "\rDownloading %s... %3d%%", t.Code(), pct)
		}
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("Downloaded %s to %s\n", t.Code(), path)
	return nil
}

// Run deletes a downloaded translation.
func (c *DeleteCmd) Run() error {
	t, err := parseCode(c.Code)
	if err != nil {
		return err
	}
	s := openStore()
	defer s.Close()

	if !s.IsDownloaded(t) {
		fmt.Printf("%s is not downloaded\n", t.Code())
		return nil
	}
	if err := s.Delete(t); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", t.Code())
	return nil
}

// Run deletes all downloaded translations.
func (c *ClearCmd) Run() error {
	s := openStore()
	defer s.Close()

	if err := s.ClearAll(); err != nil {
		return err
	}
	fmt.Printf("Removed all translations from %s\n", s.Dir())
	return nil
}

// Run reads a passage by free-text reference.
func (c *ReadCmd) Run() error {
	t, err := parseCode(c.Translation)
	if err != nil {
		return err
	}

	raw := strings.Join(c.Ref, " ")
	ref, ok := biblestore.ParseReference(raw)
	if !ok {
		return fmt.Errorf("cannot parse reference %q (try 'John 3:16' or 'Genesis 1')", raw)
	}

	s := openStore()
	defer s.Close()

	book, err := s.FindBook(t, ref.Book)
	if err != nil {
		return err
	}
	if book == nil {
		return fmt.Errorf("no book matching %q in %s", ref.Book, t.Code())
	}

	if ref.Verse != nil {
		v, err := s.Verse(t, book.ID, ref.Chapter, *ref.Verse)
		if err != nil {
			return err
		}
		if v == nil {
			return fmt.Errorf("%s %d:%d not found", book.Name, ref.Chapter, *ref.Verse)
		}
		fmt.Println(v.LockScreenText())
		return nil
	}

	verses, err := s.Verses(t, book.ID, ref.Chapter)
	if err != nil {
		return err
	}
	if len(verses) == 0 {
		return fmt.Errorf("%s %d not found", book.Name, ref.Chapter)
	}
	fmt.Printf("%s %d (%s)\n\n", book.Name, ref.Chapter, t.Code())
	for _, v := range verses {
		fmt.Printf("%d  %s\n", v.Verse, v.Text)
	}
	return nil
}

// Run searches verse text within a translation.
func (c *SearchCmd) Run() error {
	t, err := parseCode(c.Translation)
	if err != nil {
		return err
	}
	s := openStore()
	defer s.Close()

	verses, err := s.SearchVerses(t, c.Query, c.Limit)
	if err != nil {
		return err
	}
	if len(verses) == 0 {
		fmt.Printf("No verses matching %q in %s\n", c.Query, t.Code())
		return nil
	}
	for _, v := range verses {
		fmt.Printf("%-16s %s\n", v.Reference(), v.PreviewText())
	}
	fmt.Printf("\n%d result(s)\n", len(verses))
	return nil
}

// Run imports an OSIS XML file into a translation database.
func (c *ImportCmd) Run() error {
	t, err := parseCode(c.Translation)
	if err != nil {
		return err
	}

	dest := c.Output
	if dest == "" {
		s := openStore()
		dest = s.Path(t)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := osis.ImportFile(ctx, c.Source, dest, t)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d verses in %d books to %s\n", stats.Verses, stats.Books, dest)
	return nil
}

// Run starts the REST API server.
func (c *ServeCmd) Run() error {
	return api.Start(api.Config{
		Port:           c.Port,
		DataDir:        dataDir(),
		BaseURL:        CLI.BaseURL,
		AllowedOrigins: c.AllowedOrigins,
	})
}

// Run prints version information.
func (c *VersionCmd) Run() error {
	fmt.Printf("versevault version %s (%s sqlite driver)\n", version, sqlite.DriverType())
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("versevault"),
		kong.Description("VerseVault - local Bible translation library"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), logging.ParseFormat(CLI.LogFormat))

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
