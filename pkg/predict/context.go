// Package predict tracks the word the user is editing and decides when its
// surrounding context is final enough to commit, suggest from, or hand to the
// recorder.
package predict

// WordContext is one observation of a word and up to two neighbors on each
// side. Empty string means the slot was not observed. The zero value is a
// valid "nothing observed" context, and two contexts are the same observation
// exactly when all five fields match.
type WordContext struct {
	SecondBefore string
	FirstBefore  string
	Word         string
	FirstAfter   string
	SecondAfter  string
}

// IsContinuationOf reports whether c refines other: same word, same words
// before it. The after slots are ignored, since those are exactly what grows
// while the user keeps typing past the word.
func (c WordContext) IsContinuationOf(other WordContext) bool {
	return c.Word == other.Word &&
		c.FirstBefore == other.FirstBefore &&
		c.SecondBefore == other.SecondBefore
}

// Merge combines two observations of the same word, slot by slot. Filled
// slots in c win over other; empty slots take whatever other saw. Returns
// false without merging when the words differ.
func (c WordContext) Merge(other WordContext) (WordContext, bool) {
	if c.Word != other.Word {
		return WordContext{}, false
	}
	merged := c
	if merged.SecondBefore == "" {
		merged.SecondBefore = other.SecondBefore
	}
	if merged.FirstBefore == "" {
		merged.FirstBefore = other.FirstBefore
	}
	if merged.FirstAfter == "" {
		merged.FirstAfter = other.FirstAfter
	}
	if merged.SecondAfter == "" {
		merged.SecondAfter = other.SecondAfter
	}
	return merged, true
}

// Score rates how much usable surrounding context the observation carries:
// 3 for neighbors on both sides, 2 for a full pair on one side, 1 for a single
// adjacent neighbor, 0 for a bare word. Outer slots without their inner
// neighbor count for nothing.
func (c WordContext) Score() int {
	switch {
	case c.FirstBefore != "" && c.FirstAfter != "":
		return 3
	case c.FirstBefore != "" && c.SecondBefore != "":
		return 2
	case c.FirstAfter != "" && c.SecondAfter != "":
		return 2
	case c.FirstBefore != "" || c.FirstAfter != "":
		return 1
	default:
		return 0
	}
}

// BetterThan reports whether c carries strictly more context than other.
func (c WordContext) BetterThan(other WordContext) bool {
	return c.Score() > other.Score()
}
