// Package cli handles cmd line input and predictions for DBG and testing various features
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/nextserve/internal/utils"
	"github.com/bastiangx/nextserve/pkg/predict"
	"github.com/bastiangx/nextserve/pkg/userdict"
	"github.com/charmbracelet/log"
)

// InputHandler reads lines from stdin and turns them into prediction
// queries against a live session. The last word on a line is the prefix
// being typed; the words before it become the n-gram context. A line
// ending in a space runs pure next-word prediction with no prefix.
//
// Dot commands expose the rest of the session for poking at:
//
//	.count            vocabulary size
//	.top [n]          most frequent words
//	.check <word>     is the word known?
//	.learn <words>    feed words through the context tracker
//	.unknown          words the tracker has recorded as unknown
//	.limit <n>        change the suggestion limit
//	.q                quit
type InputHandler struct {
	session         *predict.Session
	dict            *userdict.Store
	minPrefixLength int
	maxPrefixLength int
	suggestLimit    int
	noFilter        bool
}

// NewInputHandler handles initialization of the InputHandler with basic parameters.
// dict may be nil when no user dictionary is attached; .learn and .unknown
// then report accordingly.
func NewInputHandler(session *predict.Session, dict *userdict.Store, minLength, maxLength, limit int, noFilter bool) *InputHandler {
	return &InputHandler{
		session:         session,
		dict:            dict,
		minPrefixLength: minLength,
		maxPrefixLength: maxLength,
		suggestLimit:    limit,
		noFilter:        noFilter,
	}
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin, and passes
// it to handleLine for processing. The loop terminates on .q or when an
// error occurs while reading from stdin.
func (h *InputHandler) Start() error {
	log.Print("NextServe CLI [BETA]")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type a phrase and press Enter for predictions, .help for commands (Ctrl+C to exit):")

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if h.handleLine(line) {
			return nil
		}
	}
}

// handleLine routes a raw input line; returns true when the loop should stop.
func (h *InputHandler) handleLine(line string) bool {
	if strings.HasPrefix(strings.TrimSpace(line), ".") {
		return h.handleCommand(strings.FieldsFunc(line, utils.IsSeparator))
	}
	h.handleQuery(line)
	return false
}

// handleQuery turns one line into a prediction query.
// Trailing whitespace means the last word is already complete, so every
// word is context and the prefix is empty.
func (h *InputHandler) handleQuery(line string) {
	last, _ := utf8.DecodeLastRuneInString(line)
	wordDone := utils.IsSeparator(last)
	fields := strings.FieldsFunc(line, utils.IsSeparator)

	prefix := ""
	context := fields
	if !wordDone {
		prefix = fields[len(fields)-1]
		context = fields[:len(fields)-1]
	}

	var prev2, prev1 string
	if n := len(context); n > 0 {
		prev1 = strings.ToLower(context[n-1])
		if n > 1 {
			prev2 = strings.ToLower(context[n-2])
		}
	}

	if prefix != "" {
		if len(prefix) < h.minPrefixLength {
			log.Errorf("Prefix too short: %s", prefix)
			return
		}
		if len(prefix) > h.maxPrefixLength {
			log.Errorf("Prefix too long: %s", prefix)
			return
		}
		// input filtering by default (unless --no-filter flag is used)
		if !h.noFilter && !utils.IsValidPrefix(prefix) {
			log.Warnf("No predictions for '%s' (filtered out)", prefix)
			return
		}
	}

	start := time.Now()
	suggestions := h.session.Suggest(strings.ToLower(prefix), prev2, prev1, h.suggestLimit)
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for prefix '%s' after (%s, %s)", elapsed, prefix, prev2, prev1)

	if len(suggestions) == 0 {
		log.Warnf("No predictions found for '%s'", line)
		return
	}

	log.Printf("Found %d predictions for '%s':", len(suggestions), line)
	for i, s := range suggestions {
		fmtFreq := utils.FormatWithCommas(s.Score)
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", s.Word)
		log.Printf("%2d. %-40s (freq: %8s)", i+1, clWord, fmtFreq)
	}
}

// handleCommand dispatches a dot command; returns true on quit.
func (h *InputHandler) handleCommand(fields []string) bool {
	switch fields[0] {
	case ".q", ".quit", ".exit":
		return true
	case ".count":
		log.Printf("%s words in vocabulary", utils.FormatWithCommas(h.session.WordCount()))
	case ".top":
		n := h.suggestLimit
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
				n = v
			}
		}
		for i, word := range h.session.MostFrequent(n) {
			log.Printf("%2d. %s", i+1, word)
		}
	case ".check":
		if len(fields) < 2 {
			log.Error("usage: .check <word>")
			return false
		}
		word := strings.ToLower(fields[1])
		if h.session.IsCorrect(word) {
			log.Printf("'%s' is a known word", word)
		} else {
			log.Printf("'%s' is not in the vocabulary", word)
		}
	case ".learn":
		if len(fields) < 2 {
			log.Error("usage: .learn <word> [word ...]")
			return false
		}
		h.learn(fields[1:])
	case ".unknown":
		h.showUnknown()
	case ".limit":
		if len(fields) < 2 {
			log.Error("usage: .limit <n>")
			return false
		}
		if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
			h.suggestLimit = v
			log.Printf("suggestion limit set to %d", v)
		} else {
			log.Errorf("not a usable limit: %s", fields[1])
		}
	case ".help":
		log.Print(".count | .top [n] | .check <word> | .learn <words> | .unknown | .limit <n> | .q")
	default:
		log.Errorf("unknown command: %s (try .help)", fields[0])
	}
	return false
}

// learn feeds a word run through the context tracker, the same way an
// editor host streams typed words. Each word commits once a later event
// arrives, so the last word stays pending until the next .learn or query.
func (h *InputHandler) learn(words []string) {
	valid := make([]string, 0, len(words))
	for _, w := range words {
		folded := strings.ToLower(w)
		if !utils.IsValidWord(folded) {
			log.Debugf("skipping word: %s", w)
			continue
		}
		valid = append(valid, folded)
	}
	if len(valid) == 0 {
		log.Warn("nothing usable to learn")
		return
	}

	at := func(i int) string {
		if i < 0 || i >= len(valid) {
			return ""
		}
		return valid[i]
	}
	for i := range valid {
		h.session.UpdateContext(predict.WordContext{
			SecondBefore: at(i - 2),
			FirstBefore:  at(i - 1),
			Word:         at(i),
			FirstAfter:   at(i + 1),
			SecondAfter:  at(i + 2),
		})
	}

	log.Printf("fed %d words through the tracker", len(valid))
	if h.dict != nil {
		log.Printf("user dictionary now tracks %d words", h.dict.Len())
	}
}

// showUnknown lists recorded unknown words with their counts.
func (h *InputHandler) showUnknown() {
	if h.dict == nil {
		log.Warn("no user dictionary attached (run with recording enabled)")
		return
	}
	words, err := h.dict.UnknownWords(0)
	if err != nil {
		log.Errorf("reading user dictionary: %v", err)
		return
	}
	if len(words) == 0 {
		log.Print("no unknown words recorded yet")
		return
	}
	log.Printf("%d unknown words recorded:", len(words))
	for i, wc := range words {
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", wc.Word)
		log.Printf("%2d. %-40s (seen: %3d)", i+1, clWord, wc.Count)
	}
}
