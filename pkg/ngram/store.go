package ngram

import (
	"database/sql"
	"fmt"

	"github.com/bastiangx/nextserve/internal/logger"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	_ "modernc.org/sqlite"
)

// openDB is swappable so tests can inject a broken opener.
var openDB = sql.Open

// queryCacheSize bounds the per-store result cache. Keystroke traffic
// revisits a handful of contexts, so a few hundred entries is plenty.
const queryCacheSize = 512

// tokenEntry is the trie payload. The id is the same integer as tokens.id —
// one trie entry per tokens row, loaded from the same snapshot — so prefix
// hits can join back into the n-gram tables without a second resolution.
type tokenEntry struct {
	id   int64
	freq int
}

// Store wraps the read-only n-gram tables plus the vocabulary trie.
// Read-only after Open; safe to share across concurrent readers.
type Store struct {
	db         *sql.DB
	trie       *patricia.Trie
	cache      *queryCache
	totalWords int

	hasUnigram bool
	hasBigram  bool
	hasTrigram bool

	log *log.Logger
}

// Open opens the store at path and loads the vocabulary index.
// A construction fault (missing file, missing tokens table, corrupt DB) is
// reported once through the returned error; the Store itself stays usable
// and answers every query with empty results instead of failing per call.
// A missing n-gram table only disables its own backoff step.
func Open(path string) (*Store, error) {
	s := &Store{
		trie:  patricia.NewTrie(),
		cache: newQueryCache(queryCacheSize),
		log:   logger.New("ngram"),
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		s.log.Errorf("open %s: %v", path, err)
		return s, fmt.Errorf("ngram: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		s.log.Errorf("ping %s: %v", path, err)
		return s, fmt.Errorf("ngram: ping %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		s.log.Warnf("busy_timeout pragma: %v", err)
	}

	tables, err := listTables(db)
	if err != nil {
		db.Close()
		s.log.Errorf("inspect %s: %v", path, err)
		return s, fmt.Errorf("ngram: inspect %s: %w", path, err)
	}
	if !tables["tokens"] {
		db.Close()
		s.log.Errorf("store %s has no tokens table", path)
		return s, fmt.Errorf("ngram: store %s has no tokens table", path)
	}
	s.hasUnigram = tables["unigram"]
	s.hasBigram = tables["bigram"]
	s.hasTrigram = tables["trigram"]
	for _, t := range []string{"unigram", "bigram", "trigram"} {
		if !tables[t] {
			s.log.Warnf("store %s has no %s table, that backoff step is disabled", path, t)
		}
	}

	s.db = db
	if err := s.loadVocabulary(); err != nil {
		db.Close()
		s.db = nil
		s.trie = patricia.NewTrie()
		s.totalWords = 0
		s.log.Errorf("load vocabulary from %s: %v", path, err)
		return s, fmt.Errorf("ngram: load vocabulary from %s: %w", path, err)
	}

	s.log.Debugf("opened %s: %d tokens, unigram=%v bigram=%v trigram=%v",
		path, s.totalWords, s.hasUnigram, s.hasBigram, s.hasTrigram)
	return s, nil
}

func listTables(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables[name] = true
	}
	return tables, rows.Err()
}

// loadVocabulary fills the trie from the tokens table, carrying each token's
// unigram frequency so prefix queries rank without touching the database.
func (s *Store) loadVocabulary() error {
	query := `SELECT t.id, t.value, COALESCE(u.freq, 0)
		FROM tokens t LEFT JOIN unigram u ON u.token = t.id`
	if !s.hasUnigram {
		query = `SELECT id, value, 0 FROM tokens`
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var id int64
		var value string
		var freq int
		if err := rows.Scan(&id, &value, &freq); err != nil {
			return err
		}
		if value == "" {
			continue
		}
		s.trie.Insert(patricia.Prefix(value), tokenEntry{id: id, freq: freq})
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	s.totalWords = count
	return nil
}

// ResolveToken maps a word to its token id. Exact match, no normalization:
// case folding, if any, is the caller's business.
func (s *Store) ResolveToken(word string) (int64, bool) {
	if word == "" {
		return 0, false
	}
	item := s.trie.Get(patricia.Prefix(word))
	if item == nil {
		return 0, false
	}
	return item.(tokenEntry).id, true
}

// ContainsWord reports whether word resolves to a known token
func (s *Store) ContainsWord(word string) bool {
	_, ok := s.ResolveToken(word)
	return ok
}

// WordCount returns the distinct vocabulary size
func (s *Store) WordCount() int {
	return s.totalWords
}

// Stats returns counters the REPL and server expose for debugging
func (s *Store) Stats() map[string]int {
	stats := map[string]int{
		"totalWords": s.totalWords,
	}
	for name, ok := range map[string]bool{
		"unigram": s.hasUnigram,
		"bigram":  s.hasBigram,
		"trigram": s.hasTrigram,
	} {
		if ok {
			stats[name] = 1
		} else {
			stats[name] = 0
		}
	}
	hits, misses, size := s.cache.stats()
	stats["cacheHits"] = hits
	stats["cacheMisses"] = misses
	stats["cacheEntries"] = size
	return stats
}

// Close releases the database handle. Queries after Close answer empty.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	s.trie = patricia.NewTrie()
	s.cache = newQueryCache(queryCacheSize)
	s.totalWords = 0
	s.hasUnigram, s.hasBigram, s.hasTrigram = false, false, false
	return db.Close()
}
