package linkaudit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/linkaudit/pkg/config"
	"github.com/orneryd/linkaudit/pkg/content"
	"github.com/orneryd/linkaudit/pkg/embed"
	"github.com/orneryd/linkaudit/pkg/records"
)

// fakeEncoder serves fixed vectors per text; unknown texts get a distinct
// constant vector so everything clusters together unless separated on
// purpose.
type fakeEncoder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEncoder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if vec, ok := f.vectors[t]; ok {
			out[i] = vec
		} else {
			out[i] = []float32{1, 0}
		}
	}
	return out, nil
}

func sampleRecords() []records.LinkRecord {
	return []records.LinkRecord{
		{Source: "https://example.com/a", Destination: "https://example.com/b", Anchor: "guide complet fiscalité", Origin: "Contenu"},
		{Source: "https://example.com/a", Destination: "https://example.com/c", Anchor: "logiciel de caisse", Origin: "Contenu"},
		{Source: "https://example.com/b", Destination: "https://example.com/c", Anchor: "comparatif des offres", Origin: "Contenu"},
		{Source: "https://example.com/b", Destination: "https://example.com/a", Anchor: "accueil", Origin: "Navigation"},
		{Source: "https://example.com/a", Destination: "https://other.org/x", Anchor: "partenaire", Origin: "Contenu"},
	}
}

func TestAnalyze_CoreWithoutEncoder(t *testing.T) {
	a := New(config.Default())

	result, err := a.Analyze(context.Background(), sampleRecords())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "https://example.com", result.Site)
	assert.Equal(t, 3, result.Graph.Stats.EditorialLinks)
	assert.Equal(t, 1, result.Graph.Stats.MechanicalLinks)
	assert.Equal(t, 1, result.Graph.Stats.ExternalLinks)
	assert.Greater(t, result.Quality.Score, 0.0)

	assert.Nil(t, result.Semantic)
	assert.Contains(t, result.SemanticUnavailable, "no embedding model")
}

func TestAnalyze_EmptyDataset(t *testing.T) {
	a := New(config.Default())
	_, err := a.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestAnalyze_SiteFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Site.BaseURL = "https://configured.example"
	a := New(cfg)

	result, err := a.Analyze(context.Background(), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "https://configured.example", result.Site)
}

func TestAnalyze_SemanticStages(t *testing.T) {
	enc := &fakeEncoder{vectors: map[string][]float32{
		"contenu caisse":     {0, 1},
		"contenu caisse bis": {0, 1},
	}}
	provider := content.Provider{
		"https://example.com/b": "contenu caisse",
		"https://example.com/c": "contenu caisse bis",
	}
	a := New(config.Default(), WithEncoder(enc), WithContent(provider))

	result, err := a.Analyze(context.Background(), sampleRecords())
	require.NoError(t, err)

	require.NotNil(t, result.Semantic)
	assert.Empty(t, result.SemanticUnavailable)

	// All three editorial anchors share one embedding: one theme.
	assert.Len(t, result.Semantic.Themes, 1)

	// Anchors embed at [1,0], contents at [0,1]: fully incoherent.
	assert.Equal(t, 3, result.Semantic.Coherence.Scored)
	assert.Equal(t, 0.0, result.Semantic.Coherence.Average)
	assert.Len(t, result.Semantic.Coherence.WeakLinks, 3)

	// The two content pages are identical: one gap candidate.
	require.Len(t, result.Semantic.Gaps, 1)
	assert.Equal(t, "https://example.com/b", result.Semantic.Gaps[0].PageA)
}

func TestAnalyze_ModelUnavailableIsNotFatal(t *testing.T) {
	enc := &fakeEncoder{err: embed.ErrUnavailable}
	a := New(config.Default(), WithEncoder(enc))

	result, err := a.Analyze(context.Background(), sampleRecords())
	require.NoError(t, err)

	// Core results survive the dead model.
	assert.Equal(t, 3, result.Graph.Stats.EditorialLinks)
	assert.Nil(t, result.Semantic)
	assert.Contains(t, result.SemanticUnavailable, "unavailable")
}

func TestAnalyze_SemanticErrorIsNotFatal(t *testing.T) {
	enc := &fakeEncoder{err: errors.New("boom")}
	a := New(config.Default(), WithEncoder(enc))

	result, err := a.Analyze(context.Background(), sampleRecords())
	require.NoError(t, err)
	assert.Nil(t, result.Semantic)
	assert.Contains(t, result.SemanticUnavailable, "boom")
}

func TestNew_ConfigWarningsBecomeDiagnostics(t *testing.T) {
	cfg := config.Default()
	cfg.Thresholds.DiversityGate = 5
	cfg.Classifier.AnchorPatterns = []string{`[unclosed`}
	a := New(cfg)

	result, err := a.Analyze(context.Background(), sampleRecords())
	require.NoError(t, err)
	assert.Len(t, result.Diagnostics, 2)
}
