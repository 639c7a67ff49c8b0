package predict

import (
	"testing"

	"github.com/bastiangx/nextserve/pkg/ngram"
)

type fakeStore struct {
	vocab map[string]int64
	next  []ngram.Suggestion

	lastPrev2  string
	lastPrev1  string
	lastPrefix string
	lastLimit  int
	closed     bool
}

func (f *fakeStore) ResolveToken(word string) (int64, bool) {
	id, ok := f.vocab[word]
	return id, ok
}

func (f *fakeStore) ContainsWord(word string) bool {
	_, ok := f.vocab[word]
	return ok
}

func (f *fakeStore) NextWords(prev2, prev1, prefix string, limit int) []ngram.Suggestion {
	f.lastPrev2, f.lastPrev1, f.lastPrefix, f.lastLimit = prev2, prev1, prefix, limit
	if limit > len(f.next) {
		limit = len(f.next)
	}
	return f.next[:limit]
}

func (f *fakeStore) WordCount() int { return len(f.vocab) }

func (f *fakeStore) MostFrequent(limit int) []string {
	words := []string{"the", "will", "fast"}
	if limit < len(words) {
		words = words[:limit]
	}
	return words
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func knownVocab() *fakeStore {
	return &fakeStore{vocab: map[string]int64{
		"the": 1, "will": 2, "fast": 3, "stop": 4, "cat": 5,
	}}
}

type upgradeCall struct {
	handle string
	ctx    WordContext
}

type recorderSpy struct {
	recorded []string
	upgrades []upgradeCall
}

func (r *recorderSpy) RecordUnknownWord(word string) {
	r.recorded = append(r.recorded, word)
}

func (r *recorderSpy) UpgradeSavedContext(handle string, ctx WordContext) {
	r.upgrades = append(r.upgrades, upgradeCall{handle, ctx})
}

func (r *recorderSpy) quiet() bool {
	return len(r.recorded) == 0 && len(r.upgrades) == 0
}

func TestUpdateContextIdenticalIsNoOp(t *testing.T) {
	spy := &recorderSpy{}
	s := NewSession(knownVocab(), spy)

	obs := WordContext{FirstBefore: "will", Word: "parkour"}
	s.UpdateContext(obs)
	s.UpdateContext(obs)

	if s.previous != nil {
		t.Error("re-observing the identical context must not shift")
	}
	if s.current == nil || *s.current != obs {
		t.Errorf("current context lost: %+v", s.current)
	}
	if !spy.quiet() {
		t.Errorf("no signals expected, got recorded=%v upgrades=%v", spy.recorded, spy.upgrades)
	}
}

func TestFirstObservationNeverCommits(t *testing.T) {
	spy := &recorderSpy{}
	s := NewSession(knownVocab(), spy)

	s.UpdateContext(WordContext{Word: "parkour"})

	if !spy.quiet() {
		t.Error("nothing can commit before a second observation arrives")
	}
	if s.lastSaved != nil {
		t.Error("lastSaved must stay empty until a commit happens")
	}
}

func TestContinuationDefersCommit(t *testing.T) {
	spy := &recorderSpy{}
	s := NewSession(knownVocab(), spy)

	s.UpdateContext(WordContext{FirstBefore: "will", Word: "parkour"})
	s.UpdateContext(WordContext{FirstBefore: "will", Word: "parkour", FirstAfter: "fast"})
	if !spy.quiet() {
		t.Fatal("a continuation must not commit the word yet")
	}

	// Moving on to the next word finalizes the refined context, not the
	// partial one it grew from.
	s.UpdateContext(WordContext{SecondBefore: "will", FirstBefore: "parkour", Word: "fast"})
	if len(spy.recorded) != 1 || spy.recorded[0] != "parkour" {
		t.Fatalf("expected one unknown-word record for parkour, got %v", spy.recorded)
	}
	want := WordContext{FirstBefore: "will", Word: "parkour", FirstAfter: "fast"}
	if s.lastSaved == nil || *s.lastSaved != want {
		t.Errorf("expected refined context saved, got %+v", s.lastSaved)
	}
}

func TestKnownWordsCommitSilently(t *testing.T) {
	spy := &recorderSpy{}
	s := NewSession(knownVocab(), spy)

	s.UpdateContext(WordContext{Word: "the"})
	s.UpdateContext(WordContext{FirstBefore: "the", Word: "cat"})
	s.UpdateContext(WordContext{SecondBefore: "the", FirstBefore: "cat", Word: "will"})

	if !spy.quiet() {
		t.Errorf("known-vocabulary words must never signal, got recorded=%v upgrades=%v",
			spy.recorded, spy.upgrades)
	}
	if s.lastSaved != nil {
		t.Error("known-word commits must not touch lastSaved")
	}
}

func TestUnknownWordRecordedOncePerCommit(t *testing.T) {
	spy := &recorderSpy{}
	s := NewSession(knownVocab(), spy)

	s.UpdateContext(WordContext{FirstBefore: "the", Word: "parkour"})
	s.UpdateContext(WordContext{FirstBefore: "parkour", Word: "stop"})

	if len(spy.recorded) != 1 || spy.recorded[0] != "parkour" {
		t.Fatalf("expected exactly one record of parkour, got %v", spy.recorded)
	}
	if len(spy.upgrades) != 0 {
		t.Errorf("no upgrade expected, got %v", spy.upgrades)
	}
	if s.lastSaved == nil || s.lastSaved.Word != "parkour" {
		t.Errorf("lastSaved should hold the recorded word, got %+v", s.lastSaved)
	}
	if s.lastSavedID == "" {
		t.Error("a recorded context needs a handle")
	}
}

func TestRicherContextUpgradesSavedRecord(t *testing.T) {
	spy := &recorderSpy{}
	s := NewSession(knownVocab(), spy)

	// The word is observed and committed with one neighbor first. Later the
	// host re-observes it with the word after it filled in; committing that
	// richer view upgrades the saved record instead of re-recording.
	s.UpdateContext(WordContext{FirstBefore: "will", Word: "parkour"})
	s.UpdateContext(WordContext{SecondBefore: "will", FirstBefore: "parkour", Word: "fast"})

	if len(spy.recorded) != 1 {
		t.Fatalf("expected parkour recorded at first commit, got %v", spy.recorded)
	}
	handle := s.lastSavedID
	if handle == "" {
		t.Fatal("recorded context needs a handle")
	}

	s.UpdateContext(WordContext{FirstBefore: "will", Word: "parkour", FirstAfter: "fast"})
	s.UpdateContext(WordContext{FirstBefore: "fast", Word: "stop"})

	if len(spy.recorded) != 1 {
		t.Errorf("a same-word upgrade must not re-record, got %v", spy.recorded)
	}
	if len(spy.upgrades) != 1 {
		t.Fatalf("expected exactly one upgrade, got %v", spy.upgrades)
	}
	up := spy.upgrades[0]
	if up.handle != handle {
		t.Errorf("upgrade must reuse the original handle %q, got %q", handle, up.handle)
	}
	want := WordContext{FirstBefore: "will", Word: "parkour", FirstAfter: "fast"}
	if up.ctx != want {
		t.Errorf("expected merged context %+v, got %+v", want, up.ctx)
	}
	if got, wantScore := up.ctx.Score(), 3; got != wantScore {
		t.Errorf("merged context should score %d, got %d", wantScore, got)
	}
	if s.lastSaved == nil || *s.lastSaved != want {
		t.Errorf("lastSaved must hold the merged context, got %+v", s.lastSaved)
	}
}

func TestUpgradeChainKeepsHandle(t *testing.T) {
	spy := &recorderSpy{}
	s := NewSession(knownVocab(), spy)

	// Score 1 record, then score 2 and score 3 observations of the same
	// word, each separated by a known-word commit that must not disturb
	// the saved record.
	s.UpdateContext(WordContext{FirstBefore: "will", Word: "parkour"})
	s.UpdateContext(WordContext{FirstBefore: "parkour", Word: "stop"})
	handle := s.lastSavedID

	s.UpdateContext(WordContext{SecondBefore: "we", FirstBefore: "will", Word: "parkour"})
	s.UpdateContext(WordContext{FirstBefore: "parkour", Word: "cat"})

	s.UpdateContext(WordContext{Word: "parkour", FirstAfter: "fast"})
	s.UpdateContext(WordContext{FirstBefore: "parkour", Word: "the"})

	if len(spy.recorded) != 1 {
		t.Fatalf("expected a single record, got %v", spy.recorded)
	}
	if len(spy.upgrades) != 2 {
		t.Fatalf("expected two upgrades, got %d: %v", len(spy.upgrades), spy.upgrades)
	}
	for i, up := range spy.upgrades {
		if up.handle != handle {
			t.Errorf("upgrade %d switched handles: %q != %q", i, up.handle, handle)
		}
	}
	first := WordContext{SecondBefore: "we", FirstBefore: "will", Word: "parkour"}
	if spy.upgrades[0].ctx != first {
		t.Errorf("first upgrade: expected %+v, got %+v", first, spy.upgrades[0].ctx)
	}
	second := WordContext{SecondBefore: "we", FirstBefore: "will", Word: "parkour", FirstAfter: "fast"}
	if spy.upgrades[1].ctx != second {
		t.Errorf("second upgrade: expected %+v, got %+v", second, spy.upgrades[1].ctx)
	}
}

func TestNonImprovingCommitLeavesRecordAlone(t *testing.T) {
	spy := &recorderSpy{}
	s := NewSession(knownVocab(), spy)

	s.UpdateContext(WordContext{FirstBefore: "will", Word: "parkour", FirstAfter: "fast"})
	s.UpdateContext(WordContext{FirstBefore: "parkour", Word: "stop"})
	if len(spy.recorded) != 1 {
		t.Fatalf("setup: expected one record, got %v", spy.recorded)
	}

	// A later, poorer observation of the same word merges to the same score
	// and must neither upgrade nor re-record.
	s.UpdateContext(WordContext{FirstBefore: "cat", Word: "parkour"})
	s.UpdateContext(WordContext{FirstBefore: "parkour", Word: "the"})

	if len(spy.upgrades) != 0 {
		t.Errorf("equal-score merge must not upgrade, got %v", spy.upgrades)
	}
	if len(spy.recorded) != 1 {
		t.Errorf("same word must not re-record, got %v", spy.recorded)
	}
	want := WordContext{FirstBefore: "will", Word: "parkour", FirstAfter: "fast"}
	if s.lastSaved == nil || *s.lastSaved != want {
		t.Errorf("lastSaved must be untouched, got %+v", s.lastSaved)
	}
}

func TestDifferentUnknownWordStartsNewRecord(t *testing.T) {
	spy := &recorderSpy{}
	s := NewSession(knownVocab(), spy)

	s.UpdateContext(WordContext{FirstBefore: "the", Word: "parkour"})
	s.UpdateContext(WordContext{FirstBefore: "parkour", Word: "zine"})
	firstHandle := s.lastSavedID

	s.UpdateContext(WordContext{FirstBefore: "zine", Word: "stop"})
	secondHandle := s.lastSavedID

	if len(spy.recorded) != 2 {
		t.Fatalf("expected both unknown words recorded, got %v", spy.recorded)
	}
	if spy.recorded[0] != "parkour" || spy.recorded[1] != "zine" {
		t.Errorf("unexpected record order: %v", spy.recorded)
	}
	if firstHandle == secondHandle {
		t.Error("each new record needs its own handle")
	}
	if s.lastSaved == nil || s.lastSaved.Word != "zine" {
		t.Errorf("lastSaved should follow the most recent record, got %+v", s.lastSaved)
	}
}

func TestNilRecorderDisablesRecording(t *testing.T) {
	store := knownVocab()
	store.next = []ngram.Suggestion{{Word: "fast", Score: 9}}
	s := NewSession(store, nil)

	s.UpdateContext(WordContext{FirstBefore: "the", Word: "parkour"})
	s.UpdateContext(WordContext{FirstBefore: "parkour", Word: "stop"})
	s.UpdateContext(WordContext{FirstBefore: "stop", Word: "zine"})

	if s.lastSaved != nil || s.lastSavedID != "" {
		t.Error("without a recorder nothing may be saved")
	}
	if got := s.GetSuggestions("", "", "parkour", 5); len(got) != 1 || got[0] != "fast" {
		t.Errorf("suggestions must still work without a recorder, got %v", got)
	}
}

func TestSuggestDelegatesToStore(t *testing.T) {
	store := knownVocab()
	store.next = []ngram.Suggestion{
		{Word: "cat", Score: 8},
		{Word: "fast", Score: 3},
	}
	s := NewSession(store, nil)

	got := s.Suggest("ca", "the", "will", 2)
	if len(got) != 2 || got[0].Word != "cat" || got[0].Score != 8 {
		t.Errorf("unexpected suggestions: %v", got)
	}
	if store.lastPrev2 != "the" || store.lastPrev1 != "will" || store.lastPrefix != "ca" || store.lastLimit != 2 {
		t.Errorf("arguments not passed through: prev2=%q prev1=%q prefix=%q limit=%d",
			store.lastPrev2, store.lastPrev1, store.lastPrefix, store.lastLimit)
	}

	words := s.GetSuggestions("ca", "the", "will", 2)
	if len(words) != 2 || words[0] != "cat" || words[1] != "fast" {
		t.Errorf("GetSuggestions should strip scores in order, got %v", words)
	}
}

func TestSessionPassthroughs(t *testing.T) {
	store := knownVocab()
	s := NewSession(store, nil)

	if !s.IsCorrect("cat") {
		t.Error("cat is in the vocabulary")
	}
	if s.IsCorrect("parkour") {
		t.Error("parkour is not in the vocabulary")
	}
	if got := s.WordCount(); got != len(store.vocab) {
		t.Errorf("WordCount: expected %d, got %d", len(store.vocab), got)
	}
	if got := s.MostFrequent(2); len(got) != 2 {
		t.Errorf("MostFrequent(2): got %v", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !store.closed {
		t.Error("Close must release the store")
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	store := knownVocab()
	a := NewSession(store, nil)
	b := NewSession(store, nil)
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("sessions need distinct ids, got %q and %q", a.ID(), b.ID())
	}
}
