package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder counts calls so tests can prove what hit the model.
type mockEmbedder struct {
	embedCalls int64
	batchCalls int64
	dims       int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dims: 8}
}

// vectorFor makes a deterministic non-zero vector per text.
func (m *mockEmbedder) vectorFor(text string) []float32 {
	vec := make([]float32, m.dims)
	for i := range vec {
		vec[i] = float32(len(text)+i) / 10
	}
	return vec
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	atomic.AddInt64(&m.embedCalls, 1)
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt64(&m.batchCalls, 1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Model() string   { return "mock-model" }

func openTestStore(t *testing.T) (*Store, *mockEmbedder) {
	t.Helper()
	mock := newMockEmbedder()
	store, err := Open(t.TempDir(), mock)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mock
}

func TestStore_EmbedIsIdempotent(t *testing.T) {
	store, mock := openTestStore(t)
	ctx := context.Background()

	first, err := store.Embed(ctx, "logiciel de caisse certifié")
	require.NoError(t, err)

	second, err := store.Embed(ctx, "logiciel de caisse certifié")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// The second call must come from disk, not the model.
	assert.Equal(t, int64(1), atomic.LoadInt64(&mock.batchCalls))
}

func TestStore_BatchSendsOnlyMisses(t *testing.T) {
	store, mock := openTestStore(t)
	ctx := context.Background()

	_, err := store.Embed(ctx, "guide fiscalité")
	require.NoError(t, err)

	vecs, err := store.EmbedBatch(ctx, []string{"guide fiscalité", "comparatif des offres"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	// One batch for the warmup, one for the single miss.
	assert.Equal(t, int64(2), atomic.LoadInt64(&mock.batchCalls))

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
}

func TestStore_ShortTextBypassesModelAndDisk(t *testing.T) {
	store, mock := openTestStore(t)
	ctx := context.Background()

	vec, err := store.Embed(ctx, " ok ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, mock.dims), vec)
	assert.Equal(t, int64(0), atomic.LoadInt64(&mock.batchCalls))

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
}

func TestStore_TrimmedTextSharesEntry(t *testing.T) {
	store, mock := openTestStore(t)
	ctx := context.Background()

	_, err := store.Embed(ctx, "guide fiscalité")
	require.NoError(t, err)
	_, err = store.Embed(ctx, "  guide fiscalité  ")
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&mock.batchCalls))
}

func TestStore_Clear(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	_, err := store.Embed(ctx, "guide fiscalité")
	require.NoError(t, err)
	require.NoError(t, store.Clear())

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
}

func TestStore_CorruptEntryRecomputed(t *testing.T) {
	store, mock := openTestStore(t)
	ctx := context.Background()

	_, err := store.Embed(ctx, "guide fiscalité")
	require.NoError(t, err)

	// Truncate the stored value to an invalid length.
	key := store.cacheKey("guide fiscalité")
	require.NoError(t, store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte{0x01, 0x02, 0x03})
	}))

	vec, err := store.Embed(ctx, "guide fiscalité")
	require.NoError(t, err)
	assert.Equal(t, mock.vectorFor("guide fiscalité"), vec)
	assert.Equal(t, int64(2), atomic.LoadInt64(&mock.batchCalls))
}

func TestStore_PassThroughWithoutDatabase(t *testing.T) {
	mock := newMockEmbedder()
	store := &Store{base: mock}

	vec, err := store.Embed(context.Background(), "guide fiscalité")
	require.NoError(t, err)
	assert.Equal(t, mock.vectorFor("guide fiscalité"), vec)
	assert.NoError(t, store.Clear())
	assert.NoError(t, store.Close())
}

func TestStore_LargeBatchIsChunked(t *testing.T) {
	store, mock := openTestStore(t)
	ctx := context.Background()

	texts := make([]string, embeddingBatchSize+10)
	for i := range texts {
		texts[i] = "ancre descriptive numéro " + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	// Duplicate-free inputs: 74 distinct texts over a 64 chunk boundary.
	vecs, err := store.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	assert.Equal(t, int64(2), atomic.LoadInt64(&mock.batchCalls))
}
