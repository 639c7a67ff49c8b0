package predict

// Recorder receives the session's persistence signals. Both calls are fire
// and forget: the session never blocks on them and never sees their outcome.
type Recorder interface {
	// RecordUnknownWord is signaled once per commit of a word the store does
	// not know.
	RecordUnknownWord(word string)

	// UpgradeSavedContext replaces the context stored under handle with a
	// strictly richer one for the same word.
	UpgradeSavedContext(handle string, ctx WordContext)
}
