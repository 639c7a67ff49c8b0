package ngram

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fixture describes the store contents for one test. N-gram rows reference
// tokens by value; the helper resolves them to ids when inserting.
type fixture struct {
	tokens   map[string]int64
	unigrams map[string]int
	bigrams  map[[2]string]int
	trigrams map[[3]string]int

	// tables to leave out entirely
	skipTables map[string]bool
}

func buildStore(t *testing.T, fx fixture) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ngrams.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	defer db.Close()

	ddl := map[string]string{
		"tokens":  `CREATE TABLE tokens (id INTEGER PRIMARY KEY, value TEXT NOT NULL UNIQUE)`,
		"unigram": `CREATE TABLE unigram (token INTEGER PRIMARY KEY, freq INTEGER NOT NULL)`,
		"bigram":  `CREATE TABLE bigram (w1 INTEGER NOT NULL, w2 INTEGER NOT NULL, freq INTEGER NOT NULL, PRIMARY KEY (w1, w2))`,
		"trigram": `CREATE TABLE trigram (w1 INTEGER NOT NULL, w2 INTEGER NOT NULL, w3 INTEGER NOT NULL, freq INTEGER NOT NULL, PRIMARY KEY (w1, w2, w3))`,
	}
	for _, name := range []string{"tokens", "unigram", "bigram", "trigram"} {
		if fx.skipTables[name] {
			continue
		}
		if _, err := db.Exec(ddl[name]); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	if !fx.skipTables["tokens"] {
		if _, err := db.Exec(`CREATE INDEX idx_tokens_value ON tokens (value)`); err != nil {
			t.Fatalf("create token index: %v", err)
		}
	}

	for value, id := range fx.tokens {
		if _, err := db.Exec(`INSERT INTO tokens (id, value) VALUES (?, ?)`, id, value); err != nil {
			t.Fatalf("insert token %q: %v", value, err)
		}
	}
	for value, freq := range fx.unigrams {
		if _, err := db.Exec(`INSERT INTO unigram (token, freq) VALUES (?, ?)`, fx.tokens[value], freq); err != nil {
			t.Fatalf("insert unigram %q: %v", value, err)
		}
	}
	for pair, freq := range fx.bigrams {
		if _, err := db.Exec(`INSERT INTO bigram (w1, w2, freq) VALUES (?, ?, ?)`,
			fx.tokens[pair[0]], fx.tokens[pair[1]], freq); err != nil {
			t.Fatalf("insert bigram %v: %v", pair, err)
		}
	}
	for triple, freq := range fx.trigrams {
		if _, err := db.Exec(`INSERT INTO trigram (w1, w2, w3, freq) VALUES (?, ?, ?, ?)`,
			fx.tokens[triple[0]], fx.tokens[triple[1]], fx.tokens[triple[2]], freq); err != nil {
			t.Fatalf("insert trigram %v: %v", triple, err)
		}
	}
	return path
}

func openStore(t *testing.T, fx fixture) *Store {
	t.Helper()
	store, err := Open(buildStore(t, fx))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func words(suggestions []Suggestion) []string {
	out := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, s.Word)
	}
	return out
}

func equalWords(got []Suggestion, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, s := range got {
		if s.Word != want[i] {
			return false
		}
	}
	return true
}

// standard fixture: a tiny corpus around "the cat sat on the mat"
func catFixture() fixture {
	return fixture{
		tokens:   map[string]int64{"the": 1, "cat": 2, "sat": 3, "on": 4, "mat": 5, "dog": 6},
		unigrams: map[string]int{"the": 50, "cat": 10, "sat": 8, "on": 12, "mat": 3, "dog": 5},
		bigrams: map[[2]string]int{
			{"the", "cat"}: 8,
			{"the", "mat"}: 2,
			{"the", "dog"}: 2,
			{"cat", "sat"}: 4,
			{"sat", "on"}:  4,
			{"on", "the"}:  5,
		},
		trigrams: map[[3]string]int{
			{"cat", "sat", "on"}: 3,
			{"sat", "on", "the"}: 6,
			{"on", "the", "mat"}: 2,
		},
	}
}

func TestNextWordsBackoff(t *testing.T) {
	store := openStore(t, catFixture())

	testCases := []struct {
		prev2       string
		prev1       string
		prefix      string
		limit       int
		want        []string
		description string
	}{
		// trigram step wins when both context words resolve and rows exist
		{"sat", "on", "", 5, []string{"the"}, "Trigram context serves first"},
		{"cat", "sat", "", 5, []string{"on"}, "Trigram with different context"},

		// no trigram rows for the pair: falls to bigram
		{"on", "the", "", 5, []string{"mat"}, "Trigram row wins over bigram spread"},
		{"dog", "the", "", 5, []string{"cat", "dog", "mat"}, "Empty trigram step falls to bigram"},

		// prev2 unknown: bigram keyed on prev1
		{"zzz", "the", "", 5, []string{"cat", "dog", "mat"}, "Unresolvable prev2 skips trigram"},
		{"", "the", "", 5, []string{"cat", "dog", "mat"}, "Absent prev2 skips trigram"},

		// prev1 unknown: straight to unigram ranking
		{"", "zzz", "", 3, []string{"the", "on", "cat"}, "Unresolvable prev1 skips to unigram"},
		{"the", "zzz", "", 3, []string{"the", "on", "cat"}, "Bigram needs prev1, not prev2"},

		// no context at all
		{"", "", "", 3, []string{"the", "on", "cat"}, "No context gives unigram ranking"},
		{"", "", "", 2, []string{"the", "on"}, "Limit caps unigram results"},

		// bigram candidates with equal freq order by unigram freq then value
		{"", "dog", "", 5, nil, "No bigram rows and no trigram falls to unigram"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := store.NextWords(tc.prev2, tc.prev1, tc.prefix, tc.limit)
			if tc.want == nil {
				// backoff must end at the unigram ranking
				if len(got) == 0 {
					t.Fatalf("NextWords(%q, %q) returned nothing, want unigram fallback", tc.prev2, tc.prev1)
				}
				if got[0].Word != "the" {
					t.Errorf("unigram fallback starts with %q, want %q", got[0].Word, "the")
				}
				return
			}
			if !equalWords(got, tc.want) {
				t.Errorf("NextWords(%q, %q, %q, %d) = %v, want %v",
					tc.prev2, tc.prev1, tc.prefix, tc.limit, words(got), tc.want)
			}
		})
	}
}

func TestNextWordsBigramStepWinsOverUnigram(t *testing.T) {
	// a non-empty bigram step must not fall through to unigram:
	// "sat" is only reachable via the unigram ranking, so it must not appear
	store := openStore(t, fixture{
		tokens:   map[string]int64{"the": 1, "cat": 2, "sat": 3},
		unigrams: map[string]int{"cat": 10, "sat": 5},
		bigrams:  map[[2]string]int{{"the", "cat"}: 8},
		trigrams: map[[3]string]int{},
	})

	got := store.NextWords("", "the", "", 5)
	if !equalWords(got, []string{"cat"}) {
		t.Fatalf("NextWords(prev1=the) = %v, want exactly [cat]", words(got))
	}
	if got[0].Score != 8 {
		t.Errorf("bigram score = %d, want 8", got[0].Score)
	}
}

func TestNextWordsPrefixFilter(t *testing.T) {
	store := openStore(t, catFixture())

	testCases := []struct {
		prev2       string
		prev1       string
		prefix      string
		limit       int
		want        []string
		description string
	}{
		{"sat", "on", "th", 5, []string{"the"}, "Prefix match at trigram level"},
		{"sat", "on", "ma", 5, []string{"mat"}, "Trigram and bigram miss prefix, unigram serves"},
		{"", "the", "c", 5, []string{"cat"}, "Prefix filter at bigram level"},
		{"", "the", "s", 5, []string{"sat"}, "Bigram empty under prefix falls to unigram"},
		{"", "", "ca", 5, []string{"cat"}, "Prefix filter at unigram level"},
		{"", "", "xq", 5, []string{}, "No vocabulary match gives empty result"},
		{"", "zzz", "d", 5, []string{"dog"}, "Unigram prefix after resolution miss"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := store.NextWords(tc.prev2, tc.prev1, tc.prefix, tc.limit)
			if !equalWords(got, tc.want) {
				t.Errorf("NextWords(%q, %q, %q, %d) = %v, want %v",
					tc.prev2, tc.prev1, tc.prefix, tc.limit, words(got), tc.want)
			}
			for _, s := range got {
				if tc.prefix != "" && !strings.HasPrefix(s.Word, tc.prefix) {
					t.Errorf("candidate %q does not start with prefix %q", s.Word, tc.prefix)
				}
			}
		})
	}
}

func TestNextWordsOrdering(t *testing.T) {
	// all bigram rows tie on freq: candidate unigram frequency breaks the
	// tie, token value breaks the remaining tie deterministically
	store := openStore(t, fixture{
		tokens:   map[string]int64{"x": 1, "alpha": 2, "beta": 3, "gamma": 4},
		unigrams: map[string]int{"x": 1, "alpha": 3, "beta": 9, "gamma": 9},
		bigrams: map[[2]string]int{
			{"x", "alpha"}: 5,
			{"x", "beta"}:  5,
			{"x", "gamma"}: 5,
		},
	})

	got := store.NextWords("", "x", "", 5)
	want := []string{"beta", "gamma", "alpha"}
	if !equalWords(got, want) {
		t.Fatalf("tied bigrams ordered %v, want %v", words(got), want)
	}

	// repeated queries stay deterministic
	for i := 0; i < 5; i++ {
		again := store.NextWords("", "x", "", 5)
		if !equalWords(again, want) {
			t.Fatalf("query %d ordered %v, want %v", i, words(again), want)
		}
	}
}

func TestResolveToken(t *testing.T) {
	store := openStore(t, catFixture())

	testCases := []struct {
		word        string
		wantID      int64
		wantOK      bool
		description string
	}{
		{"cat", 2, true, "Known word resolves"},
		{"the", 1, true, "Known word resolves to its id"},
		{"Cat", 0, false, "Exact match, no case folding"},
		{"ca", 0, false, "Prefix of a word does not resolve"},
		{"cats", 0, false, "Extension of a word does not resolve"},
		{"", 0, false, "Empty string never resolves"},
		{"zzz", 0, false, "Unknown word misses"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			id, ok := store.ResolveToken(tc.word)
			if ok != tc.wantOK {
				t.Fatalf("ResolveToken(%q) ok = %v, want %v", tc.word, ok, tc.wantOK)
			}
			if ok && id != tc.wantID {
				t.Errorf("ResolveToken(%q) = %d, want %d", tc.word, id, tc.wantID)
			}
			if got := store.ContainsWord(tc.word); got != tc.wantOK {
				t.Errorf("ContainsWord(%q) = %v, want %v", tc.word, got, tc.wantOK)
			}
		})
	}
}

func TestWordCountAndMostFrequent(t *testing.T) {
	store := openStore(t, catFixture())

	if got := store.WordCount(); got != 6 {
		t.Errorf("WordCount = %d, want 6", got)
	}

	top := store.MostFrequent(3)
	want := []string{"the", "on", "cat"}
	if len(top) != len(want) {
		t.Fatalf("MostFrequent(3) = %v, want %v", top, want)
	}
	for i := range want {
		if top[i] != want[i] {
			t.Fatalf("MostFrequent(3) = %v, want %v", top, want)
		}
	}

	if got := store.MostFrequent(0); len(got) != 0 {
		t.Errorf("MostFrequent(0) = %v, want empty", got)
	}
}

func TestMissingTables(t *testing.T) {
	testCases := []struct {
		skip        []string
		prev2       string
		prev1       string
		want        []string
		description string
	}{
		{[]string{"trigram"}, "sat", "on", []string{"the"}, "Missing trigram table serves from bigram"},
		{[]string{"trigram", "bigram"}, "sat", "on", []string{"the", "on", "cat"}, "Only unigram left serves ranking"},
		{[]string{"unigram"}, "", "the", []string{"cat", "dog", "mat"}, "Missing unigram keeps bigram step alive"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			fx := catFixture()
			fx.skipTables = map[string]bool{}
			for _, name := range tc.skip {
				fx.skipTables[name] = true
			}
			// drop dependent rows for skipped tables
			if fx.skipTables["unigram"] {
				fx.unigrams = nil
			}
			if fx.skipTables["bigram"] {
				fx.bigrams = nil
			}
			if fx.skipTables["trigram"] {
				fx.trigrams = nil
			}

			store := openStore(t, fx)
			got := store.NextWords(tc.prev2, tc.prev1, "", 3)
			if !equalWords(got, tc.want) {
				t.Errorf("NextWords = %v, want %v", words(got), tc.want)
			}
		})
	}
}

func TestMissingUnigramDisablesUnigramStep(t *testing.T) {
	fx := catFixture()
	fx.skipTables = map[string]bool{"unigram": true, "bigram": true, "trigram": true}
	fx.unigrams, fx.bigrams, fx.trigrams = nil, nil, nil

	store := openStore(t, fx)

	// vocabulary still resolves, every backoff step is dark
	if !store.ContainsWord("cat") {
		t.Error("ContainsWord(cat) = false, want true with tokens table present")
	}
	if got := store.NextWords("", "the", "", 5); len(got) != 0 {
		t.Errorf("NextWords = %v, want empty with no n-gram tables", words(got))
	}
	if got := store.NextWords("", "", "c", 5); len(got) != 0 {
		t.Errorf("prefix query = %v, want empty with no unigram table", words(got))
	}
}

func TestConstructionFault(t *testing.T) {
	t.Run("No tokens table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.db")
		db, err := sql.Open("sqlite", path)
		if err != nil {
			t.Fatalf("create empty db: %v", err)
		}
		if _, err := db.Exec(`CREATE TABLE other (x INTEGER)`); err != nil {
			t.Fatalf("seed table: %v", err)
		}
		db.Close()

		store, err := Open(path)
		if err == nil {
			t.Fatal("Open succeeded on store without tokens table, want error")
		}
		assertPermanentlyEmpty(t, store)
	})

	t.Run("Corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.db")
		if err := os.WriteFile(path, []byte("this is not a database"), 0644); err != nil {
			t.Fatalf("write garbage: %v", err)
		}

		store, err := Open(path)
		if err == nil {
			t.Fatal("Open succeeded on corrupt file, want error")
		}
		assertPermanentlyEmpty(t, store)
	})
}

// assertPermanentlyEmpty checks the degraded-adapter contract: the store is
// usable, never panics, and every query answers empty.
func assertPermanentlyEmpty(t *testing.T, store *Store) {
	t.Helper()
	if store == nil {
		t.Fatal("degraded store is nil, want usable empty store")
	}
	if got := store.NextWords("the", "cat", "", 5); len(got) != 0 {
		t.Errorf("NextWords on degraded store = %v, want empty", words(got))
	}
	if got := store.NextWords("", "", "a", 5); len(got) != 0 {
		t.Errorf("prefix query on degraded store = %v, want empty", words(got))
	}
	if store.ContainsWord("the") {
		t.Error("ContainsWord on degraded store = true, want false")
	}
	if got := store.WordCount(); got != 0 {
		t.Errorf("WordCount on degraded store = %d, want 0", got)
	}
	if got := store.MostFrequent(3); len(got) != 0 {
		t.Errorf("MostFrequent on degraded store = %v, want empty", got)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close on degraded store: %v", err)
	}
}

func TestCloseMakesStoreEmpty(t *testing.T) {
	store := openStore(t, catFixture())

	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := store.NextWords("", "the", "", 5); len(got) != 0 {
		t.Errorf("NextWords after Close = %v, want empty", words(got))
	}
	if store.ContainsWord("cat") {
		t.Error("ContainsWord after Close = true, want false")
	}
	// double close is a no-op
	if err := store.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestNextWordsLimitZero(t *testing.T) {
	store := openStore(t, catFixture())
	if got := store.NextWords("", "the", "", 0); got != nil {
		t.Errorf("NextWords with limit 0 = %v, want nil", words(got))
	}
}
