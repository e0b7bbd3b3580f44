package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/linkaudit/pkg/graph"
	"github.com/orneryd/linkaudit/pkg/linkaudit"
	"github.com/orneryd/linkaudit/pkg/quality"
)

func sampleResult() *linkaudit.Result {
	return &linkaudit.Result{
		RunID:       "run-123",
		Site:        "https://example.com",
		GeneratedAt: time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC),
		Graph: graph.Analysis{
			Stats: graph.Stats{
				TotalPages:          12,
				TotalInternalLinks:  40,
				EditorialLinks:      10,
				MechanicalLinks:     30,
				EditorialRatio:      25,
				AvgEditorialPerPage: 0.8,
			},
			MostLinkedPages:      []graph.PageCount{{URL: "https://example.com/b", Count: 4}},
			TopAnchors:           []graph.AnchorCount{{Anchor: "guide complet", Count: 3}},
			OverOptimizedAnchors: map[string]int{"logiciel de caisse": 7},
			OrphanPages:          []string{"https://example.com/orphan"},
		},
		Quality: quality.Result{
			Score: 42.5,
			Buckets: quality.Buckets{
				TooShort:       []quality.Flagged{{Anchor: "ici", Destination: "https://example.com/b"}},
				KeywordStuffed: []quality.Flagged{{Anchor: "caisse caisse caisse", Destination: "https://example.com/c"}},
			},
		},
		Semantic: &linkaudit.SemanticResult{
			Themes: map[string][]string{"Fiscalité (3 liens)": {"a", "b", "c"}},
			Coherence: linkaudit.CoherenceSummary{
				Average: 0.4,
				Scored:  5,
				WeakLinks: []linkaudit.WeakLink{
					{Anchor: "cliquez ici", Destination: "https://example.com/d", Score: 0.1},
				},
			},
		},
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(sampleResult(), &buf))
	html := buf.String()

	assert.Contains(t, html, "https://example.com")
	assert.Contains(t, html, "42.5/100")
	assert.Contains(t, html, "https://example.com/orphan")
	assert.Contains(t, html, "Fiscalité (3 liens)")
	// Low score renders in the danger color.
	assert.Contains(t, html, "#dc3545")
}

func TestWriteHTML_SemanticUnavailable(t *testing.T) {
	result := sampleResult()
	result.Semantic = nil
	result.SemanticUnavailable = "embedding model unavailable"

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(result, &buf))
	assert.Contains(t, buf.String(), "Analyse sémantique indisponible")
}

func TestWriteRecommendationsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecommendationsCSV(sampleResult(), &buf))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Type", "Priorité", "URL", "Problème", "Recommandation", "Détails"}, rows[0])

	types := map[string]int{}
	for _, row := range rows[1:] {
		types[row[0]]++
	}
	assert.Equal(t, 1, types["Page orpheline"])
	assert.Equal(t, 1, types["Ancre défaillante"])
	assert.Equal(t, 1, types["Ancre sur-optimisée"])
	assert.Equal(t, 1, types["Ancre répétitive"])
	assert.Equal(t, 1, types["Ancre incohérente"])
	// Ratio 25% and 0.8 links/page both trip the strategy rows.
	assert.Equal(t, 1, types["Stratégie globale"])
	assert.Equal(t, 1, types["Densité de maillage"])
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	htmlPath, csvPath, err := Save(sampleResult(), dir)
	require.NoError(t, err)

	for _, path := range []string{htmlPath, csvPath} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.Contains(t, htmlPath, "audit_report_20260825_143000.html")
}
