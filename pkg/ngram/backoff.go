package ngram

import (
	"database/sql"
	"sort"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
)

// NextWords answers a prediction query. Each backoff step runs only when its
// context words resolve to tokens — a miss skips the step, it is not an
// error — and the first step to yield any candidates wins. A storage fault
// inside a step is logged and degrades that step to empty so the chain keeps
// going; callers never see a failed query, worst case an empty result.
// Answers are cached per full query tuple, empty ones included.
func (s *Store) NextWords(prev2, prev1, prefix string, limit int) []Suggestion {
	if limit <= 0 {
		return nil
	}
	key := cacheKey{prev2: prev2, prev1: prev1, prefix: prefix, limit: limit}
	if cached, ok := s.cache.get(key); ok {
		return cached
	}
	faulted := false
	for _, step := range s.backoffSteps(prev2, prev1, prefix, limit) {
		results, err := step.run()
		if err != nil {
			s.log.Errorf("%s step: %v", step.name, err)
			faulted = true
			continue
		}
		if len(results) > 0 {
			s.cache.put(key, results)
			return results
		}
	}
	// A fault may be transient, so only a cleanly empty answer is cached.
	if !faulted {
		s.cache.put(key, nil)
	}
	return nil
}

// MostFrequent is NextWords with no context and no prefix, words only.
func (s *Store) MostFrequent(limit int) []string {
	suggestions := s.NextWords("", "", "", limit)
	words := make([]string, 0, len(suggestions))
	for _, sg := range suggestions {
		words = append(words, sg.Word)
	}
	return words
}

type queryStep struct {
	name string
	run  func() ([]Suggestion, error)
}

// backoffSteps builds the lazy chain for one query, most specific first.
// The trigram step needs both context words, the bigram step the nearest
// one; the unigram step always closes the chain.
func (s *Store) backoffSteps(prev2, prev1, prefix string, limit int) []queryStep {
	var steps []queryStep
	if id1, ok := s.ResolveToken(prev1); ok {
		if id2, ok := s.ResolveToken(prev2); ok {
			steps = append(steps, queryStep{name: "trigram", run: func() ([]Suggestion, error) {
				return s.trigramCandidates(id2, id1, prefix, limit)
			}})
		}
		steps = append(steps, queryStep{name: "bigram", run: func() ([]Suggestion, error) {
			return s.bigramCandidates(id1, prefix, limit)
		}})
	}
	steps = append(steps, queryStep{name: "unigram", run: func() ([]Suggestion, error) {
		return s.unigramCandidates(prefix, limit)
	}})
	return steps
}

func (s *Store) trigramCandidates(w1, w2 int64, prefix string, limit int) ([]Suggestion, error) {
	if s.db == nil || !s.hasTrigram {
		return nil, nil
	}
	query := `SELECT t.value, g.freq
		FROM trigram g
		JOIN tokens t ON t.id = g.w3
		LEFT JOIN unigram u ON u.token = g.w3
		WHERE g.w1 = ? AND g.w2 = ?
		ORDER BY g.freq DESC, u.freq DESC, t.value ASC`
	if !s.hasUnigram {
		query = `SELECT t.value, g.freq
		FROM trigram g
		JOIN tokens t ON t.id = g.w3
		WHERE g.w1 = ? AND g.w2 = ?
		ORDER BY g.freq DESC, t.value ASC`
	}
	args := []any{w1, w2}
	if prefix == "" {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRanked(rows, prefix, limit)
}

func (s *Store) bigramCandidates(w1 int64, prefix string, limit int) ([]Suggestion, error) {
	if s.db == nil || !s.hasBigram {
		return nil, nil
	}
	query := `SELECT t.value, b.freq
		FROM bigram b
		JOIN tokens t ON t.id = b.w2
		LEFT JOIN unigram u ON u.token = b.w2
		WHERE b.w1 = ?
		ORDER BY b.freq DESC, u.freq DESC, t.value ASC`
	if !s.hasUnigram {
		query = `SELECT t.value, b.freq
		FROM bigram b
		JOIN tokens t ON t.id = b.w2
		WHERE b.w1 = ?
		ORDER BY b.freq DESC, t.value ASC`
	}
	args := []any{w1}
	if prefix == "" {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRanked(rows, prefix, limit)
}

// unigramCandidates serves prefix queries from the trie, which already
// carries every token's unigram frequency, and plain top-N from SQL.
func (s *Store) unigramCandidates(prefix string, limit int) ([]Suggestion, error) {
	if !s.hasUnigram {
		return nil, nil
	}
	if prefix != "" {
		return s.prefixCandidates(prefix, limit), nil
	}
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query(`SELECT t.value, u.freq
		FROM unigram u
		JOIN tokens t ON t.id = u.token
		ORDER BY u.freq DESC, t.value ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRanked(rows, "", limit)
}

func (s *Store) prefixCandidates(prefix string, limit int) []Suggestion {
	var out []Suggestion
	err := s.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		entry := item.(tokenEntry)
		out = append(out, Suggestion{Word: string(p), Score: entry.freq})
		return nil
	})
	if err != nil {
		s.log.Errorf("trie visit %q: %v", prefix, err)
		return nil
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// scanRanked walks already-ordered rows, applying the starts-with filter on
// the Go side so matching stays case-exact, and stops at limit.
func scanRanked(rows *sql.Rows, prefix string, limit int) ([]Suggestion, error) {
	var out []Suggestion
	for rows.Next() {
		var value string
		var freq int
		if err := rows.Scan(&value, &freq); err != nil {
			return nil, err
		}
		if prefix != "" && !strings.HasPrefix(value, prefix) {
			continue
		}
		out = append(out, Suggestion{Word: value, Score: freq})
		if len(out) == limit {
			break
		}
	}
	return out, rows.Err()
}
