package corpus

import (
	"strings"
	"unicode"

	"github.com/bastiangx/nextserve/internal/utils"
)

// sentenceBreak reports runes that end a sentence. N-gram windows never span
// a sentence break.
func sentenceBreak(r rune) bool {
	switch r {
	case '.', '!', '?', ';':
		return true
	}
	return false
}

// trimWordEdges strips quoting apostrophes and stray hyphens from the edges
// of a token while keeping intra-word ones ("don't", "well-known").
func trimWordEdges(word string) string {
	return strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// splitSentences tokenizes one line into sentences of normalized words.
// Words are folded to lower case. A token that fails validation (digit runs,
// alphanumeric mixes, repeated-character noise) still occupies its position,
// so it ends the current sentence rather than letting its neighbors count as
// adjacent.
func splitSentences(line string) [][]string {
	var (
		sentences [][]string
		current   []string
		word      []rune
	)

	flushSentence := func() {
		if len(current) > 0 {
			sentences = append(sentences, current)
			current = nil
		}
	}
	flushWord := func() {
		if len(word) == 0 {
			return
		}
		w := strings.ToLower(string(word))
		word = word[:0]
		if utils.ContainsNumbers(w) {
			flushSentence()
			return
		}
		w = trimWordEdges(w)
		if w == "" || !utils.IsValidWord(w) {
			flushSentence()
			return
		}
		current = append(current, w)
	}

	for _, r := range line {
		switch {
		case utils.IsWordRune(r) || unicode.IsDigit(r):
			word = append(word, r)
		case sentenceBreak(r):
			flushWord()
			flushSentence()
		default:
			flushWord()
		}
	}
	flushWord()
	flushSentence()
	return sentences
}
