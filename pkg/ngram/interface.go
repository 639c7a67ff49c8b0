// Package ngram is the core read path: it resolves words against the interned
// vocabulary and answers next-word queries from the unigram/bigram/trigram
// frequency tables with a trigram→bigram→unigram backoff chain, serving
// prefix lookups from an in-memory radix trie over token values.
package ngram

// Suggestion represents a ranked next-word candidate with its n-gram score
type Suggestion struct {
	Word  string
	Score int
}

// IStore defines the read-only frequency store surface predictors query.
type IStore interface {
	// ResolveToken maps a word to its interned token id, exact match only
	ResolveToken(word string) (int64, bool)

	// ContainsWord reports whether the word is in the known vocabulary
	ContainsWord(word string) bool

	// NextWords returns ranked candidates for the given context, restricted
	// to prefix when non-empty, capped at limit
	NextWords(prev2, prev1, prefix string, limit int) []Suggestion

	// WordCount returns the distinct vocabulary size
	WordCount() int

	// MostFrequent returns the top words with no context and no prefix
	MostFrequent(limit int) []string

	// Close releases the underlying store handle
	Close() error
}
