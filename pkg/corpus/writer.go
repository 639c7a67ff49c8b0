package corpus

import (
	"database/sql"
	"fmt"
	"os"
	"sort"

	_ "modernc.org/sqlite"
)

// BuildStats summarizes a written store.
type BuildStats struct {
	Words    int
	Bigrams  int
	Trigrams int
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS tokens (
	id INTEGER PRIMARY KEY,
	value TEXT NOT NULL UNIQUE
);
CREATE INDEX IF NOT EXISTS idx_tokens_value ON tokens (value);
CREATE TABLE IF NOT EXISTS unigram (
	token INTEGER PRIMARY KEY,
	freq INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS bigram (
	w1 INTEGER NOT NULL,
	w2 INTEGER NOT NULL,
	freq INTEGER NOT NULL,
	PRIMARY KEY (w1, w2)
);
CREATE TABLE IF NOT EXISTS trigram (
	w1 INTEGER NOT NULL,
	w2 INTEGER NOT NULL,
	w3 INTEGER NOT NULL,
	freq INTEGER NOT NULL,
	PRIMARY KEY (w1, w2, w3)
);`

type rankedWord struct {
	word string
	freq int
}

// rankVocabulary applies the frequency floor and vocabulary cap, then orders
// words by frequency descending, ties by value. Token ids follow this order,
// so id 1 is always the most frequent word.
func (b *Builder) rankVocabulary(c *Counter) []rankedWord {
	ranked := make([]rankedWord, 0, len(c.Unigrams))
	for w, freq := range c.Unigrams {
		if freq < b.opts.MinFreq {
			continue
		}
		ranked = append(ranked, rankedWord{w, freq})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].freq != ranked[j].freq {
			return ranked[i].freq > ranked[j].freq
		}
		return ranked[i].word < ranked[j].word
	})
	if b.opts.MaxWords > 0 && len(ranked) > b.opts.MaxWords {
		ranked = ranked[:b.opts.MaxWords]
	}
	return ranked
}

// WriteStore replaces the file at path with a store holding the counted
// n-grams. N-gram rows referencing a word pruned from the vocabulary are
// dropped with it.
func (b *Builder) WriteStore(path string, c *Counter) (BuildStats, error) {
	var stats BuildStats

	ranked := b.rankVocabulary(c)
	if len(ranked) == 0 {
		return stats, fmt.Errorf("corpus: nothing to write after pruning")
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return stats, fmt.Errorf("corpus: replace %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return stats, fmt.Errorf("corpus: create %s: %w", path, err)
	}
	defer db.Close()

	// One-shot bulk write into a file nobody reads yet; journaling and
	// durability can wait until the data is in. journal_mode answers with
	// the mode it settled on.
	var journalMode string
	if err := db.QueryRow(`PRAGMA journal_mode = OFF`).Scan(&journalMode); err != nil {
		return stats, fmt.Errorf("corpus: set pragma: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = OFF`); err != nil {
		return stats, fmt.Errorf("corpus: set pragma: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		return stats, fmt.Errorf("corpus: create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return stats, fmt.Errorf("corpus: begin: %w", err)
	}
	defer tx.Rollback()

	ids, err := writeVocabulary(tx, ranked)
	if err != nil {
		return stats, err
	}
	stats.Words = len(ranked)

	stats.Bigrams, err = writeBigrams(tx, c, ids, b.opts.MinFreq)
	if err != nil {
		return stats, err
	}
	stats.Trigrams, err = writeTrigrams(tx, c, ids, b.opts.MinFreq)
	if err != nil {
		return stats, err
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("corpus: commit: %w", err)
	}
	// The shipped file journals normally again for whoever opens it next.
	if err := db.QueryRow(`PRAGMA journal_mode = WAL`).Scan(&journalMode); err != nil {
		return stats, fmt.Errorf("corpus: restore journal mode: %w", err)
	}
	b.log.Info("store written", "path", path,
		"words", stats.Words, "bigrams", stats.Bigrams, "trigrams", stats.Trigrams)
	return stats, nil
}

func writeVocabulary(tx *sql.Tx, ranked []rankedWord) (map[string]int64, error) {
	insToken, err := tx.Prepare(`INSERT INTO tokens (id, value) VALUES (?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("corpus: prepare tokens: %w", err)
	}
	defer insToken.Close()
	insUnigram, err := tx.Prepare(`INSERT INTO unigram (token, freq) VALUES (?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("corpus: prepare unigram: %w", err)
	}
	defer insUnigram.Close()

	ids := make(map[string]int64, len(ranked))
	for i, w := range ranked {
		id := int64(i + 1)
		ids[w.word] = id
		if _, err := insToken.Exec(id, w.word); err != nil {
			return nil, fmt.Errorf("corpus: insert token %q: %w", w.word, err)
		}
		if _, err := insUnigram.Exec(id, w.freq); err != nil {
			return nil, fmt.Errorf("corpus: insert unigram %q: %w", w.word, err)
		}
	}
	return ids, nil
}

func writeBigrams(tx *sql.Tx, c *Counter, ids map[string]int64, minFreq int) (int, error) {
	ins, err := tx.Prepare(`INSERT INTO bigram (w1, w2, freq) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("corpus: prepare bigram: %w", err)
	}
	defer ins.Close()

	rows := 0
	for pair, freq := range c.Bigrams {
		if freq < minFreq {
			continue
		}
		w1, ok1 := ids[pair[0]]
		w2, ok2 := ids[pair[1]]
		if !ok1 || !ok2 {
			continue
		}
		if _, err := ins.Exec(w1, w2, freq); err != nil {
			return rows, fmt.Errorf("corpus: insert bigram %v: %w", pair, err)
		}
		rows++
	}
	return rows, nil
}

func writeTrigrams(tx *sql.Tx, c *Counter, ids map[string]int64, minFreq int) (int, error) {
	ins, err := tx.Prepare(`INSERT INTO trigram (w1, w2, w3, freq) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("corpus: prepare trigram: %w", err)
	}
	defer ins.Close()

	rows := 0
	for triple, freq := range c.Trigrams {
		if freq < minFreq {
			continue
		}
		w1, ok1 := ids[triple[0]]
		w2, ok2 := ids[triple[1]]
		w3, ok3 := ids[triple[2]]
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		if _, err := ins.Exec(w1, w2, w3, freq); err != nil {
			return rows, fmt.Errorf("corpus: insert trigram %v: %w", triple, err)
		}
		rows++
	}
	return rows, nil
}
