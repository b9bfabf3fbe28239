package osis

// CanonBook is one of the 66 books of the Protestant canon as it appears
// in a translation database.
type CanonBook struct {
	ID     int    // 1-based canonical book number
	OsisID string // OSIS identifier, e.g. "Gen", "1John"
	Name   string // display name written to the books table
}

// canon lists the 66 canonical books in order. Book numbers follow the
// usual Genesis=1 .. Revelation=66 numbering shared with the query layer.
var canon = []CanonBook{
	{1, "Gen", "Genesis"}, {2, "Exod", "Exodus"}, {3, "Lev", "Leviticus"},
	{4, "Num", "Numbers"}, {5, "Deut", "Deuteronomy"}, {6, "Josh", "Joshua"},
	{7, "Judg", "Judges"}, {8, "Ruth", "Ruth"}, {9, "1Sam", "1 Samuel"},
	{10, "2Sam", "2 Samuel"}, {11, "1Kgs", "1 Kings"}, {12, "2Kgs", "2 Kings"},
	{13, "1Chr", "1 Chronicles"}, {14, "2Chr", "2 Chronicles"}, {15, "Ezra", "Ezra"},
	{16, "Neh", "Nehemiah"}, {17, "Esth", "Esther"}, {18, "Job", "Job"},
	{19, "Ps", "Psalms"}, {20, "Prov", "Proverbs"}, {21, "Eccl", "Ecclesiastes"},
	{22, "Song", "Song of Solomon"}, {23, "Isa", "Isaiah"}, {24, "Jer", "Jeremiah"},
	{25, "Lam", "Lamentations"}, {26, "Ezek", "Ezekiel"}, {27, "Dan", "Daniel"},
	{28, "Hos", "Hosea"}, {29, "Joel", "Joel"}, {30, "Amos", "Amos"},
	{31, "Obad", "Obadiah"}, {32, "Jonah", "Jonah"}, {33, "Mic", "Micah"},
	{34, "Nah", "Nahum"}, {35, "Hab", "Habakkuk"}, {36, "Zeph", "Zephaniah"},
	{37, "Hag", "Haggai"}, {38, "Zech", "Zechariah"}, {39, "Mal", "Malachi"},
	{40, "Matt", "Matthew"}, {41, "Mark", "Mark"}, {42, "Luke", "Luke"},
	{43, "John", "John"}, {44, "Acts", "Acts"}, {45, "Rom", "Romans"},
	{46, "1Cor", "1 Corinthians"}, {47, "2Cor", "2 Corinthians"}, {48, "Gal", "Galatians"},
	{49, "Eph", "Ephesians"}, {50, "Phil", "Philippians"}, {51, "Col", "Colossians"},
	{52, "1Thess", "1 Thessalonians"}, {53, "2Thess", "2 Thessalonians"},
	{54, "1Tim", "1 Timothy"}, {55, "2Tim", "2 Timothy"}, {56, "Titus", "Titus"},
	{57, "Phlm", "Philemon"}, {58, "Heb", "Hebrews"}, {59, "Jas", "James"},
	{60, "1Pet", "1 Peter"}, {61, "2Pet", "2 Peter"}, {62, "1John", "1 John"},
	{63, "2John", "2 John"}, {64, "3John", "3 John"}, {65, "Jude", "Jude"},
	{66, "Rev", "Revelation"},
}

var osisToBook = func() map[string]CanonBook {
	m := make(map[string]CanonBook, len(canon))
	for _, b := range canon {
		m[b.OsisID] = b
	}
	return m
}()

// LookupBook resolves an OSIS book identifier to its canonical entry.
func LookupBook(osisID string) (CanonBook, bool) {
	b, ok := osisToBook[osisID]
	return b, ok
}

// Canon returns the 66 canonical books in order.
func Canon() []CanonBook {
	out := make([]CanonBook, len(canon))
	copy(out, canon)
	return out
}
