// Package userdict persists what a session learns at runtime: occurrence
// counts for words the store does not know, and the best context observed for
// each saved record.
package userdict

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/bastiangx/nextserve/internal/logger"
	"github.com/bastiangx/nextserve/pkg/predict"
)

var (
	unknownBucket = []byte("unknown")
	contextBucket = []byte("contexts")
)

// Store implements predict.Recorder on a bbolt file. Safe for concurrent use;
// bbolt serializes the writes.
type Store struct {
	db  *bolt.DB
	log *log.Logger
}

// WordCount is one recorded unknown word and how often it was committed.
type WordCount struct {
	Word  string
	Count uint64
}

// Open creates or opens the dictionary file and ensures its buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("userdict: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(unknownBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(contextBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("userdict: create buckets: %w", err)
	}
	return &Store{db: db, log: logger.New("userdict")}, nil
}

// RecordUnknownWord bumps the occurrence count for word. The signal is fire
// and forget, so failures are logged and swallowed.
func (s *Store) RecordUnknownWord(word string) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(unknownBucket)
		key := []byte(word)
		count := uint64(1)
		if v := b.Get(key); len(v) == 8 {
			count = binary.BigEndian.Uint64(v) + 1
		}
		return b.Put(key, itob(count))
	})
	if err != nil {
		s.log.Errorf("record %q: %v", word, err)
	}
}

// UpgradeSavedContext stores ctx under handle, replacing whatever richer or
// poorer context was there. The record is created on first upgrade; the
// session only hands out handles for words it already recorded.
func (s *Store) UpgradeSavedContext(handle string, ctx predict.WordContext) {
	body, err := msgpack.Marshal(ctx)
	if err != nil {
		s.log.Errorf("encode context for %q: %v", ctx.Word, err)
		return
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(contextBucket).Put([]byte(handle), body)
	})
	if err != nil {
		s.log.Errorf("upgrade %s: %v", handle, err)
	}
}

// UnknownWords returns recorded words, most frequent first, ties by word.
// A limit of zero or less returns everything.
func (s *Store) UnknownWords(limit int) ([]WordCount, error) {
	var words []WordCount
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(unknownBucket).ForEach(func(k, v []byte) error {
			wc := WordCount{Word: string(k)}
			if len(v) == 8 {
				wc.Count = binary.BigEndian.Uint64(v)
			}
			words = append(words, wc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("userdict: scan unknown words: %w", err)
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return words, nil
}

// Count returns how often word was recorded, zero when never.
func (s *Store) Count(word string) uint64 {
	var count uint64
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(unknownBucket).Get([]byte(word)); len(v) == 8 {
			count = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return count
}

// SavedContext returns the context stored under handle, if any.
func (s *Store) SavedContext(handle string) (predict.WordContext, bool) {
	var (
		ctx   predict.WordContext
		found bool
	)
	s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(contextBucket).Get([]byte(handle))
		if v == nil {
			return nil
		}
		if err := msgpack.Unmarshal(v, &ctx); err != nil {
			s.log.Errorf("decode context %s: %v", handle, err)
			return nil
		}
		found = true
		return nil
	})
	return ctx, found
}

// Len returns the number of distinct recorded words.
func (s *Store) Len() int {
	var n int
	s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(unknownBucket).Stats().KeyN
		return nil
	})
	return n
}

// Close releases the underlying file.
func (s *Store) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
