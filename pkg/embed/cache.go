package embed

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/blake2b"
)

// minTextLength is the shortest text worth embedding. Shorter inputs get a
// deterministic zero vector and never reach the model or the disk cache.
const minTextLength = 3

// embeddingBatchSize chunks large miss sets so a single provider call stays
// bounded.
const embeddingBatchSize = 64

// keyPrefix namespaces embedding entries inside the Badger keyspace.
var keyPrefix = []byte{0x01}

// Store is a persistent content-addressed embedding cache backed by Badger.
//
// Keys are derived from the model name and a BLAKE2b-256 digest of the
// trimmed text, so the same text always maps to the same entry and switching
// models never serves stale vectors. Store implements Embedder and wraps a
// base embedder that is only consulted on cache misses.
//
// Thread-safe.
type Store struct {
	db   *badger.DB
	base Embedder

	hits   uint64
	misses uint64
}

// Open opens (or creates) the cache at path, wrapping base.
//
// When the directory cannot be opened the store degrades to a pass-through:
// embeddings still work, nothing persists, and the returned error tells the
// caller why. The returned *Store is usable in both cases.
func Open(path string, base Embedder) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return &Store{base: base}, fmt.Errorf("failed to open embedding cache at %s: %w", path, err)
	}
	return &Store{db: db, base: base}, nil
}

// cacheKey builds the Badger key for one text.
func (s *Store) cacheKey(text string) []byte {
	sum := blake2b.Sum256([]byte(text))
	key := make([]byte, 0, len(keyPrefix)+len(s.base.Model())+1+len(sum))
	key = append(key, keyPrefix...)
	key = append(key, s.base.Model()...)
	key = append(key, ':')
	key = append(key, sum[:]...)
	return key
}

// encodeVector serializes a float32 vector as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector deserializes a vector, rejecting truncated values.
func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding value: %d bytes", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

// get returns the cached vector for text, or nil on a miss. A value that
// fails to decode counts as a miss so it gets recomputed and overwritten.
func (s *Store) get(text string) []float32 {
	if s.db == nil {
		return nil
	}
	var vec []float32
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.cacheKey(text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, err := decodeVector(val)
			if err != nil {
				return err
			}
			vec = v
			return nil
		})
	})
	if err != nil {
		return nil
	}
	return vec
}

// put persists one vector. Write failures are ignored: the cache is an
// optimization, never a correctness dependency.
func (s *Store) put(text string, vec []float32) {
	if s.db == nil {
		return
	}
	_ = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.cacheKey(text), encodeVector(vec))
	})
}

// zeroVector is the fixed embedding for texts too short to carry meaning.
func (s *Store) zeroVector() []float32 {
	return make([]float32, s.base.Dimensions())
}

// Embed returns the embedding for text, from cache when possible.
func (s *Store) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch resolves each text from the cache and sends only the misses to
// the base embedder, in bounded chunks. Trivially short texts resolve to a
// zero vector without touching the model or the cache.
func (s *Store) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		text = strings.TrimSpace(text)
		if len([]rune(text)) < minTextLength {
			results[i] = s.zeroVector()
			continue
		}
		if vec := s.get(text); vec != nil {
			atomic.AddUint64(&s.hits, 1)
			results[i] = vec
			continue
		}
		atomic.AddUint64(&s.misses, 1)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	for start := 0; start < len(missTexts); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		vecs, err := s.base.EmbedBatch(ctx, missTexts[start:end])
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			i := missIdx[start+j]
			results[i] = vec
			s.put(missTexts[start+j], vec)
		}
	}

	return results, nil
}

// Dimensions returns the base embedder's vector dimension.
func (s *Store) Dimensions() int { return s.base.Dimensions() }

// Model returns the base embedder's model name.
func (s *Store) Model() string { return s.base.Model() }

// StoreStats describes the on-disk cache.
type StoreStats struct {
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"size_bytes"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
}

// Stats counts the persisted entries and reports the on-disk size along
// with the session hit/miss counters.
func (s *Store) Stats() (StoreStats, error) {
	stats := StoreStats{
		Hits:   atomic.LoadUint64(&s.hits),
		Misses: atomic.LoadUint64(&s.misses),
	}
	if s.db == nil {
		return stats, nil
	}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: keyPrefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			stats.Entries++
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	lsm, vlog := s.db.Size()
	stats.SizeBytes = lsm + vlog
	return stats, nil
}

// Clear drops every cached embedding.
func (s *Store) Clear() error {
	if s.db == nil {
		return nil
	}
	return s.db.DropAll()
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
