package server

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/nextserve/internal/logger"
	"github.com/bastiangx/nextserve/internal/utils"
	"github.com/bastiangx/nextserve/pkg/config"
	"github.com/bastiangx/nextserve/pkg/ngram"
	"github.com/bastiangx/nextserve/pkg/predict"
)

// Server handles the IPC for predictions and context updates. The request
// loop is single threaded; only the session map needs a lock because closing
// can race the loop.
type Server struct {
	store ngram.IStore
	rec   predict.Recorder

	dec *msgpack.Decoder
	enc *msgpack.Encoder

	sessions map[string]*predict.Session
	mu       sync.Mutex

	cfg     *config.Config
	cfgPath string
	cfgMu   sync.RWMutex

	log *log.Logger
}

// NewServer creates a prediction server using stdin/stdout for IPC. A nil
// recorder disables unknown-word persistence; a nil cfg runs on defaults.
// cfgPath may be empty to keep config ops runtime-only.
func NewServer(store ngram.IStore, rec predict.Recorder, cfg *config.Config, cfgPath string) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		store:    store,
		rec:      rec,
		dec:      msgpack.NewDecoder(os.Stdin),
		enc:      msgpack.NewEncoder(os.Stdout),
		sessions: make(map[string]*predict.Session),
		cfg:      cfg,
		cfgPath:  cfgPath,
		log:      logger.New("server"),
	}
}

// SetIO redirects the request loop, for tests and embedding.
func (s *Server) SetIO(r io.Reader, w io.Writer) {
	s.dec = msgpack.NewDecoder(r)
	s.enc = msgpack.NewEncoder(w)
}

// Start begins listening for IPC requests. Returns nil when the client
// closes its end.
func (s *Server) Start() error {
	s.log.Debug("starting IPC loop")
	s.send(ReadyResponse{Status: "ready"})

	for {
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if err == io.EOF {
				s.log.Debug("client disconnected")
				return nil
			}
			s.log.Errorf("decode request: %v", err)
			return err
		}
		s.handleRequest(req)
	}
}

// handleRequest dispatches one decoded request
func (s *Server) handleRequest(req Request) {
	switch req.Op {
	case "predict":
		s.handlePredict(req)
	case "update":
		s.handleUpdate(req)
	case "check":
		s.handleCheck(req)
	case "count":
		s.send(CountResponse{ID: req.ID, Count: s.store.WordCount()})
	case "top":
		s.handleTop(req)
	case "config":
		s.handleConfig(req)
	case "health":
		s.send(ReadyResponse{Status: "ok"})
	default:
		s.sendError(req.ID, fmt.Sprintf("unknown op: %s", req.Op), 400)
	}
}

// session returns the predictor session for a client session id, creating it
// on first use.
func (s *Server) session(id string) *predict.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = predict.NewSession(s.store, s.rec)
		s.sessions[id] = sess
		s.log.Debug("session created", "client", id, "session", sess.ID())
	}
	return sess
}

func (s *Server) send(response interface{}) {
	if err := s.enc.Encode(response); err != nil {
		s.log.Errorf("encode response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}

// handlePredict validates the prefix, folds case, queries the session and
// restores the typed capitalization on the way out. Queries the filter
// rejects produce an empty result, not an error.
func (s *Server) handlePredict(req Request) {
	s.cfgMu.RLock()
	srv := s.cfg.Server
	defaultLimit := s.cfg.Predict.DefaultLimit
	s.cfgMu.RUnlock()

	prefix := req.Word
	if len(prefix) > srv.MaxPrefix {
		s.sendError(req.ID, fmt.Sprintf("prefix exceeds maximum length of %d", srv.MaxPrefix), 400)
		return
	}
	if prefix != "" && len(prefix) < srv.MinPrefix {
		s.sendError(req.ID, fmt.Sprintf("prefix must be at least %d characters", srv.MinPrefix), 400)
		return
	}

	limit := req.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > srv.MaxLimit {
		limit = srv.MaxLimit
	}

	start := time.Now()
	predictions := []Prediction{}
	if srv.EnableFilter && !utils.IsValidPrefix(prefix) {
		s.log.Debug("prefix rejected by filter", "prefix", prefix)
	} else {
		_, caps := utils.ExtractCapitals(prefix)
		folded := strings.ToLower(prefix)
		prev1 := strings.ToLower(req.Prev1)
		prev2 := strings.ToLower(req.Prev2)

		ranked := s.session(req.Session).Suggest(folded, prev2, prev1, limit)
		filter := utils.NewSuggestionFilter(folded)
		for _, sg := range ranked {
			if !filter.ShouldInclude(sg.Word) {
				continue
			}
			word := sg.Word
			if srv.Capitalize {
				word = utils.ApplyCapitals(word, caps)
			}
			predictions = append(predictions, Prediction{Word: word, Score: sg.Score})
		}
	}
	elapsed := time.Since(start)

	s.send(PredictResponse{
		ID:          req.ID,
		Predictions: predictions,
		Count:       len(predictions),
		TimeTaken:   elapsed.Microseconds(),
	})
}

// handleUpdate feeds one context observation into the client's session.
// Words the filter rejects are acked as skipped so junk never reaches the
// recorder.
func (s *Server) handleUpdate(req Request) {
	if req.Word == "" {
		s.sendError(req.ID, "missing 'w' field", 400)
		return
	}
	s.cfgMu.RLock()
	enableFilter := s.cfg.Server.EnableFilter
	s.cfgMu.RUnlock()

	if enableFilter && !utils.IsValidWord(req.Word) {
		s.send(UpdateResponse{ID: req.ID, Status: "skipped"})
		return
	}

	ctx := predict.WordContext{
		SecondBefore: strings.ToLower(req.Before2),
		FirstBefore:  strings.ToLower(req.Before1),
		Word:         strings.ToLower(req.Word),
		FirstAfter:   strings.ToLower(req.After1),
		SecondAfter:  strings.ToLower(req.After2),
	}
	s.session(req.Session).UpdateContext(ctx)
	s.send(UpdateResponse{ID: req.ID, Status: "ok"})
}

func (s *Server) handleCheck(req Request) {
	if req.Word == "" {
		s.sendError(req.ID, "missing 'w' field", 400)
		return
	}
	known := s.store.ContainsWord(strings.ToLower(req.Word))
	s.send(CheckResponse{ID: req.ID, Word: req.Word, Known: known})
}

func (s *Server) handleTop(req Request) {
	s.cfgMu.RLock()
	maxLimit := s.cfg.Server.MaxLimit
	defaultLimit := s.cfg.Predict.DefaultLimit
	s.cfgMu.RUnlock()

	limit := req.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	words := s.store.MostFrequent(limit)
	s.send(TopResponse{ID: req.ID, Words: words, Count: len(words)})
}

// handleConfig applies limit overrides at runtime and persists them when the
// server was started with a config file.
func (s *Server) handleConfig(req Request) {
	s.cfgMu.Lock()
	if req.Capitalize != nil {
		s.cfg.Server.Capitalize = *req.Capitalize
	}
	s.cfg.ApplyRuntime(req.MaxLimit, req.MinPrefix, req.MaxPrefix, req.EnableFilter)
	var saveErr error
	if s.cfgPath != "" {
		saveErr = config.SaveConfig(s.cfg, s.cfgPath)
	}
	s.cfgMu.Unlock()

	if saveErr != nil {
		s.log.Errorf("persist config: %v", saveErr)
		s.send(ConfigResponse{ID: req.ID, Status: "error", Error: saveErr.Error()})
		return
	}
	s.send(ConfigResponse{ID: req.ID, Status: "ok"})
}

// Close tears down every session. The shared store is left open; its owner
// closes it.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.sessions {
		delete(s.sessions, id)
	}
}
