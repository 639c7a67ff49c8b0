/*
Package server implements msgpack IPC for the next-word predictor.

The server speaks binary msgpack over stdin/stdout on a request response
model: a Decoder reads back-to-back request objects, an Encoder writes one
response per request. No extra framing; msgpack objects are self delimiting.
Messages are processed synchronously with timing info included in prediction
responses.

# IPC

Every request carries an ID, an op, and op-specific fields. An editor asking
for predictions while the user types "ca" after "the" sends mainly this:

	{"id": "req_001", "op": "predict", "w": "ca", "p1": "the", "l": 8}

and receives suggestions ranked by n-gram frequency:

	{"id": "req_001", "r": [{"w": "cat", "s": 8}, {"w": "can", "s": 3}], "c": 2, "t": 145}

Context updates stream the word under the caret with up to two neighbors on
each side; the server feeds them to the client's predictor session and acks:

	{"id": "upd_001", "op": "update", "w": "run", "b1": "will", "a1": "fast"}
	{"id": "upd_001", "status": "ok"}

Vocabulary ops:

	{"id": "chk_001", "op": "check", "w": "parkour"}   -> {"id": "chk_001", "w": "parkour", "k": false}
	{"id": "cnt_001", "op": "count"}                   -> {"id": "cnt_001", "c": 50000}
	{"id": "top_001", "op": "top", "l": 10}            -> {"id": "top_001", "r": ["the", ...], "c": 10}

Config messages adjust server limits without restart and persist when a
config file is in use.

Clients that interleave independent editing streams set the session field "s";
each distinct value gets its own predictor session, created lazily.

Error responses ("e" plus a code) are reserved for protocol problems: unknown
ops, missing fields, out-of-range prefixes. A prediction that finds nothing is
a normal response with an empty result array.
*/
package server

// Request is the envelope for every client message. Fields beyond id/op are
// read per op; unknown fields are ignored.
type Request struct {
	ID      string `msgpack:"id"`
	Op      string `msgpack:"op"`
	Session string `msgpack:"s,omitempty"`

	// predict, update, check
	Word string `msgpack:"w,omitempty"`

	// predict: the one and two words before the caret
	Prev1 string `msgpack:"p1,omitempty"`
	Prev2 string `msgpack:"p2,omitempty"`

	// update: context slots around the word
	Before2 string `msgpack:"b2,omitempty"`
	Before1 string `msgpack:"b1,omitempty"`
	After1  string `msgpack:"a1,omitempty"`
	After2  string `msgpack:"a2,omitempty"`

	// predict, top
	Limit int `msgpack:"l,omitempty"`

	// config
	MaxLimit     *int  `msgpack:"max_limit,omitempty"`
	MinPrefix    *int  `msgpack:"min_prefix,omitempty"`
	MaxPrefix    *int  `msgpack:"max_prefix,omitempty"`
	EnableFilter *bool `msgpack:"enable_filter,omitempty"`
	Capitalize   *bool `msgpack:"capitalize,omitempty"`
}

// Prediction is one ranked candidate
type Prediction struct {
	Word  string `msgpack:"w"`
	Score int    `msgpack:"s"`
}

// PredictResponse answers a predict op
type PredictResponse struct {
	ID          string       `msgpack:"id"`
	Predictions []Prediction `msgpack:"r"`
	Count       int          `msgpack:"c"`
	TimeTaken   int64        `msgpack:"t"`
}

// UpdateResponse acks a context update; status is "ok" or "skipped"
type UpdateResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// CheckResponse answers a vocabulary membership check
type CheckResponse struct {
	ID    string `msgpack:"id"`
	Word  string `msgpack:"w"`
	Known bool   `msgpack:"k"`
}

// CountResponse answers a vocabulary count op
type CountResponse struct {
	ID    string `msgpack:"id"`
	Count int    `msgpack:"c"`
}

// TopResponse answers a top op with the most frequent words
type TopResponse struct {
	ID    string   `msgpack:"id"`
	Words []string `msgpack:"r"`
	Count int      `msgpack:"c"`
}

// ConfigResponse answers a config op
type ConfigResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
	Error  string `msgpack:"error,omitempty"`
}

// ErrorResponse holds basic error information for malformed requests
type ErrorResponse struct {
	ID    string `msgpack:"id,omitempty"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

// ReadyResponse is emitted once when the loop starts
type ReadyResponse struct {
	Status string `msgpack:"status"`
}
