package semantic

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEncoder serves fixed vectors per text; unknown texts get zero vectors.
type fakeEncoder struct {
	vectors map[string][]float32
	calls   int
}

func (f *fakeEncoder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if vec, ok := f.vectors[t]; ok {
			out[i] = vec
		} else {
			out[i] = make([]float32, 2)
		}
	}
	return out, nil
}

func TestClusterThemes_DiversityGate(t *testing.T) {
	enc := &fakeEncoder{}
	a := New(enc, Config{})

	anchors := make([]string, 0, 10)
	for i := 0; i < 9; i++ {
		anchors = append(anchors, "cliquez ici")
	}
	anchors = append(anchors, "guide complet de la fiscalité")

	// 2 unique anchors out of 10 is far below the 0.30 gate.
	clusters, err := a.ClusterThemes(context.Background(), anchors, 3)
	require.NoError(t, err)
	assert.Empty(t, clusters)
	assert.Zero(t, enc.calls, "gated input must never reach the model")
}

func TestClusterThemes_TooFewAnchors(t *testing.T) {
	a := New(&fakeEncoder{}, Config{})

	clusters, err := a.ClusterThemes(context.Background(), []string{"guide fiscalité", "autre ancre"}, 3)
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestClusterThemes_ShortAnchorsFiltered(t *testing.T) {
	a := New(&fakeEncoder{}, Config{})

	// All anchors fall to the >3 character filter.
	clusters, err := a.ClusterThemes(context.Background(), []string{"ici", "ok", "go", "tv"}, 3)
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestClusterThemes_TwoThemes(t *testing.T) {
	fiscal := []float32{1, 0}
	caisse := []float32{0, 1}
	enc := &fakeEncoder{vectors: map[string][]float32{
		"conseil fiscalité":       fiscal,
		"fiscalité agricole":      fiscal,
		"fiscalité immobilière":   fiscal,
		"logiciel de caisse":      caisse,
		"logiciel caisse tactile": caisse,
		"caisse et logiciel":      caisse,
	}}
	a := New(enc, Config{})

	anchors := []string{
		"conseil fiscalité", "fiscalité agricole", "fiscalité immobilière",
		"logiciel de caisse", "logiciel caisse tactile", "caisse et logiciel",
	}
	clusters, err := a.ClusterThemes(context.Background(), anchors, 3)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	// One recurring word names the theme with its link count; two recurring
	// words join into a composite label.
	assert.Len(t, clusters["Fiscalité (3 liens)"], 3)
	assert.Len(t, clusters["Logiciel + Caisse"], 3)
}

func TestClusterThemes_NoiseDropped(t *testing.T) {
	fiscal := []float32{1, 0}
	enc := &fakeEncoder{vectors: map[string][]float32{
		"conseil fiscalité":     fiscal,
		"fiscalité agricole":    fiscal,
		"fiscalité immobilière": fiscal,
		"ancre isolée":          {0, 1},
	}}
	a := New(enc, Config{})

	anchors := []string{"conseil fiscalité", "fiscalité agricole", "fiscalité immobilière", "ancre isolée"}
	clusters, err := a.ClusterThemes(context.Background(), anchors, 3)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.NotContains(t, clusters["Fiscalité (3 liens)"], "ancre isolée")
}

func TestClusterThemes_DominantClusterRetried(t *testing.T) {
	// Two sub-themes 0.17 apart in cosine distance: the first pass at eps
	// 0.2 merges them into one dominant cluster, the 0.15 retry separates
	// them.
	sin := float32(math.Sqrt(1 - 0.83*0.83))
	groupA := []float32{1, 0}
	groupB := []float32{0.83, sin}
	enc := &fakeEncoder{vectors: map[string][]float32{
		"premier choix":  groupA,
		"grande offre":   groupA,
		"bonne affaire":  groupA,
		"autre texte":    groupB,
		"page utile":     groupB,
		"divers dossier": groupB,
	}}
	a := New(enc, Config{})

	anchors := []string{
		"premier choix", "grande offre", "bonne affaire",
		"autre texte", "page utile", "divers dossier",
	}
	clusters, err := a.ClusterThemes(context.Background(), anchors, 3)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	// No recurring content word in either group: generic numbered labels.
	assert.Len(t, clusters["Thème 1"], 3)
	assert.Len(t, clusters["Thème 2"], 3)
}

func TestClusterThemes_Deterministic(t *testing.T) {
	fiscal := []float32{1, 0}
	enc := &fakeEncoder{vectors: map[string][]float32{
		"conseil fiscalité":     fiscal,
		"fiscalité agricole":    fiscal,
		"fiscalité immobilière": fiscal,
	}}
	a := New(enc, Config{})
	anchors := []string{"conseil fiscalité", "fiscalité agricole", "fiscalité immobilière"}

	first, err := a.ClusterThemes(context.Background(), anchors, 3)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := a.ClusterThemes(context.Background(), anchors, 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCoherence(t *testing.T) {
	enc := &fakeEncoder{vectors: map[string][]float32{
		"logiciel de caisse": {1, 0},
		"page caisse":        {1, 0},
		"page opposée":       {-1, 0},
	}}
	a := New(enc, Config{})

	scores, err := a.Coherence(context.Background(),
		[]string{"logiciel de caisse", "logiciel de caisse", "logiciel de caisse"},
		[]string{"page caisse", "page opposée", "page inconnue"})
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.InDelta(t, 1.0, scores[0], 1e-6)
	// Negative similarity clamps to the floor; missing content scores 0.
	assert.Equal(t, 0.0, scores[1])
	assert.Equal(t, 0.0, scores[2])
}

func TestCoherence_EmptyInput(t *testing.T) {
	a := New(&fakeEncoder{}, Config{})
	scores, err := a.Coherence(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestFindGaps(t *testing.T) {
	enc := &fakeEncoder{vectors: map[string][]float32{
		"contenu caisse":     {1, 0},
		"contenu caisse bis": {1, 0.1},
		"contenu fiscalité":  {0, 1},
	}}
	a := New(enc, Config{})

	gaps, err := a.FindGaps(context.Background(), map[string]string{
		"https://example.com/caisse":     "contenu caisse",
		"https://example.com/caisse-bis": "contenu caisse bis",
		"https://example.com/fiscalite":  "contenu fiscalité",
	}, 0.7)
	require.NoError(t, err)

	require.Len(t, gaps, 1)
	assert.Equal(t, "https://example.com/caisse", gaps[0].PageA)
	assert.Equal(t, "https://example.com/caisse-bis", gaps[0].PageB)
	assert.Greater(t, gaps[0].Similarity, 0.7)
}

func TestFindGaps_SinglePage(t *testing.T) {
	a := New(&fakeEncoder{}, Config{})
	gaps, err := a.FindGaps(context.Background(), map[string]string{"https://example.com/a": "x"}, 0.7)
	require.NoError(t, err)
	assert.Empty(t, gaps)
}

func TestFindGaps_CappedAtTwenty(t *testing.T) {
	vectors := map[string][]float32{}
	contents := map[string]string{}
	for i := 0; i < 10; i++ {
		text := "contenu " + string(rune('a'+i))
		vectors[text] = []float32{1, 0}
		contents["https://example.com/"+string(rune('a'+i))] = text
	}
	a := New(&fakeEncoder{vectors: vectors}, Config{})

	// 10 identical pages give 45 pairs above threshold; only 20 survive.
	gaps, err := a.FindGaps(context.Background(), contents, 0.7)
	require.NoError(t, err)
	assert.Len(t, gaps, 20)
}
