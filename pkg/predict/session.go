package predict

import (
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/bastiangx/nextserve/internal/logger"
	"github.com/bastiangx/nextserve/pkg/ngram"
)

// Session tracks one editing stream: the context being refined, the last one
// committed to the recorder, and the store queries for suggestions. Not safe
// for concurrent use; give each client its own session.
type Session struct {
	id    string
	store ngram.IStore
	rec   Recorder
	log   *log.Logger

	previous    *WordContext
	current     *WordContext
	lastSaved   *WordContext
	lastSavedID string
}

// NewSession wires a session to a store and an optional recorder. A nil
// recorder disables unknown-word recording and context upgrades entirely.
func NewSession(store ngram.IStore, rec Recorder) *Session {
	return &Session{
		id:    uuid.NewString(),
		store: store,
		rec:   rec,
		log:   logger.New("predict"),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UpdateContext feeds the next observation into the session. Re-observing
// the identical context is a no-op; otherwise the previous observation is
// either kept pending (still being refined) or committed.
func (s *Session) UpdateContext(next WordContext) {
	if s.current != nil && *s.current == next {
		return
	}
	s.previous = s.current
	s.current = &next
	s.commit()
}

// commit decides what to do with the observation that just stopped being
// current. A continuation means the same word is still being refined, so
// nothing commits yet. Anything else makes the previous context final:
// it either upgrades the recorder's last saved entry (same word, strictly
// better context) or, for a word the store does not know, becomes a fresh
// record under a new handle. Known words commit silently and leave the
// saved entry alone.
func (s *Session) commit() {
	if s.previous == nil || s.rec == nil {
		return
	}
	if s.current.IsContinuationOf(*s.previous) {
		return
	}
	final := *s.previous
	if s.lastSaved != nil && s.lastSaved.Word == final.Word {
		if merged, ok := s.lastSaved.Merge(final); ok && merged.BetterThan(*s.lastSaved) {
			s.lastSaved = &merged
			s.rec.UpgradeSavedContext(s.lastSavedID, merged)
			s.log.Debug("upgraded saved context", "word", merged.Word, "score", merged.Score())
		}
		return
	}
	if s.store.ContainsWord(final.Word) {
		return
	}
	s.lastSaved = &final
	s.lastSavedID = uuid.NewString()
	s.rec.RecordUnknownWord(final.Word)
	s.log.Debug("recorded unknown word", "word", final.Word, "handle", s.lastSavedID)
}

// Suggest returns ranked candidates for the word being typed. word is the
// partial word so far (empty asks for pure next-word prediction), prev1 and
// prev2 are the one and two words back.
func (s *Session) Suggest(word, prev2, prev1 string, limit int) []ngram.Suggestion {
	return s.store.NextWords(prev2, prev1, word, limit)
}

// GetSuggestions is Suggest without the scores, for hosts that only want the
// ordered word list.
func (s *Session) GetSuggestions(word, prev2, prev1 string, limit int) []string {
	ranked := s.Suggest(word, prev2, prev1, limit)
	words := make([]string, 0, len(ranked))
	for _, sg := range ranked {
		words = append(words, sg.Word)
	}
	return words
}

// IsCorrect reports whether the word is in the known vocabulary.
func (s *Session) IsCorrect(word string) bool {
	return s.store.ContainsWord(word)
}

// WordCount returns the size of the known vocabulary.
func (s *Session) WordCount() int {
	return s.store.WordCount()
}

// MostFrequent returns the top vocabulary words by frequency.
func (s *Session) MostFrequent(limit int) []string {
	return s.store.MostFrequent(limit)
}

// Close releases the underlying store. Only the session owner should call
// this; hosts sharing one store across sessions close the store themselves.
func (s *Session) Close() error {
	return s.store.Close()
}
