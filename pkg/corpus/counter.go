package corpus

import (
	"bufio"
	"io"
)

// Counter accumulates n-gram frequencies. Not safe for concurrent use; give
// each ingestion worker its own counter and merge.
type Counter struct {
	Unigrams map[string]int
	Bigrams  map[[2]string]int
	Trigrams map[[3]string]int
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{
		Unigrams: make(map[string]int),
		Bigrams:  make(map[[2]string]int),
		Trigrams: make(map[[3]string]int),
	}
}

// AddSentence counts one sentence worth of words with a sliding window.
func (c *Counter) AddSentence(words []string) {
	for i, w := range words {
		c.Unigrams[w]++
		if i >= 1 {
			c.Bigrams[[2]string{words[i-1], w}]++
		}
		if i >= 2 {
			c.Trigrams[[3]string{words[i-2], words[i-1], w}]++
		}
	}
}

// AddText tokenizes and counts an entire text stream line by line.
func (c *Counter) AddText(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, sentence := range splitSentences(scanner.Text()) {
			c.AddSentence(sentence)
		}
	}
	return scanner.Err()
}

// Merge folds other into c additively.
func (c *Counter) Merge(other *Counter) {
	for w, n := range other.Unigrams {
		c.Unigrams[w] += n
	}
	for pair, n := range other.Bigrams {
		c.Bigrams[pair] += n
	}
	for triple, n := range other.Trigrams {
		c.Trigrams[triple] += n
	}
}

// Words returns the number of distinct words seen.
func (c *Counter) Words() int { return len(c.Unigrams) }

// Tokens returns the total number of word occurrences seen.
func (c *Counter) Tokens() int {
	total := 0
	for _, n := range c.Unigrams {
		total += n
	}
	return total
}
