// Package semantic groups editorial anchors into named themes, scores the
// coherence between anchors and their destination pages, and surfaces pairs
// of semantically close pages that could link to each other.
//
// Everything here runs on embeddings obtained through the Encoder interface;
// the package has no opinion on which model produced them.
package semantic

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/orneryd/linkaudit/pkg/vector"
)

// Encoder produces embeddings for a batch of texts. Satisfied by
// embed.Store and by any embed.Embedder.
type Encoder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Config tunes the clustering stages. Zero values use defaults.
type Config struct {
	// Eps is the neighborhood radius for the first clustering pass
	// (default 0.2, cosine distance).
	Eps float64

	// RetryEps is the tighter radius used when the first pass collapses
	// into one dominant cluster (default 0.15).
	RetryEps float64

	// DiversityGate is the minimum ratio of unique anchors below which
	// clustering is skipped as meaningless (default 0.30).
	DiversityGate float64
}

func (c *Config) setDefaults() {
	if c.Eps <= 0 {
		c.Eps = 0.2
	}
	if c.RetryEps <= 0 {
		c.RetryEps = 0.15
	}
	if c.DiversityGate <= 0 {
		c.DiversityGate = 0.30
	}
}

// Gap is a pair of pages whose contents are semantically close.
type Gap struct {
	PageA      string  `json:"page_a"`
	PageB      string  `json:"page_b"`
	Similarity float64 `json:"similarity"`
}

// Analyzer runs the semantic stages against one encoder.
type Analyzer struct {
	enc Encoder
	cfg Config
}

// New creates an analyzer over enc.
func New(enc Encoder, cfg Config) *Analyzer {
	cfg.setDefaults()
	return &Analyzer{enc: enc, cfg: cfg}
}

// frenchStopWords are function words excluded from theme naming.
var frenchStopWords = map[string]struct{}{
	"dans": {}, "avec": {}, "pour": {}, "sur": {}, "sous": {}, "vers": {},
	"chez": {}, "sans": {}, "contre": {}, "depuis": {}, "pendant": {},
	"avant": {}, "après": {}, "entre": {}, "parmi": {}, "selon": {},
	"notre": {}, "votre": {}, "leur": {}, "cette": {}, "ces": {},
	"tous": {}, "toutes": {}, "plus": {}, "moins": {}, "très": {},
	"bien": {}, "encore": {}, "aussi": {}, "donc": {},
}

var titleCaser = cases.Title(language.French)

// ClusterThemes groups anchors into named themes.
//
// Anchors of 3 characters or fewer are dropped first. If fewer than
// minClusterSize remain, or the unique-anchor ratio falls under the
// diversity gate, the result is empty: clustering near-duplicate anchor
// sets produces noise, not themes.
//
// When the first pass yields a single cluster holding more than half the
// anchors, one retry runs with a tighter radius and a relaxed minimum to
// force finer separation.
func (a *Analyzer) ClusterThemes(ctx context.Context, anchors []string, minClusterSize int) (map[string][]string, error) {
	if minClusterSize <= 0 {
		minClusterSize = 3
	}
	if len(anchors) < minClusterSize {
		return map[string][]string{}, nil
	}

	var filtered []string
	for _, anchor := range anchors {
		if len([]rune(strings.TrimSpace(anchor))) > 3 {
			filtered = append(filtered, anchor)
		}
	}
	if len(filtered) < minClusterSize {
		return map[string][]string{}, nil
	}

	unique := map[string]struct{}{}
	for _, anchor := range filtered {
		unique[strings.ToLower(strings.TrimSpace(anchor))] = struct{}{}
	}
	if float64(len(unique))/float64(len(filtered)) < a.cfg.DiversityGate {
		return map[string][]string{}, nil
	}

	embeddings, err := a.enc.EmbedBatch(ctx, filtered)
	if err != nil {
		return nil, fmt.Errorf("failed to embed anchors: %w", err)
	}

	labels := dbscan(embeddings, a.cfg.Eps, minClusterSize)

	if single, size := dominantCluster(labels); single && size*2 > len(filtered) {
		relaxed := minClusterSize - 1
		if relaxed < 2 {
			relaxed = 2
		}
		labels = dbscan(embeddings, a.cfg.RetryEps, relaxed)
	}

	clusters := map[int][]string{}
	for i, label := range labels {
		if label == noiseLabel {
			continue
		}
		clusters[label] = append(clusters[label], filtered[i])
	}

	named := map[string][]string{}
	labelsSorted := make([]int, 0, len(clusters))
	for label := range clusters {
		labelsSorted = append(labelsSorted, label)
	}
	sort.Ints(labelsSorted)

	for _, label := range labelsSorted {
		members := clusters[label]
		if len(members) < minClusterSize {
			continue
		}
		named[themeName(label, members)] = members
	}
	return named, nil
}

// dominantCluster reports whether exactly one cluster exists and its size.
func dominantCluster(labels []int) (bool, int) {
	sizes := map[int]int{}
	for _, label := range labels {
		if label != noiseLabel {
			sizes[label]++
		}
	}
	if len(sizes) != 1 {
		return false, 0
	}
	for _, size := range sizes {
		return true, size
	}
	return false, 0
}

// themeName labels a cluster from its members' most frequent content words.
// With two or more recurring words the label joins the top two; with one it
// names the word and the member count; with none the generic numbered label
// stands.
func themeName(label int, members []string) string {
	freq := map[string]int{}
	var order []string
	for _, member := range members {
		for _, word := range strings.Fields(strings.ToLower(member)) {
			if len([]rune(word)) <= 3 {
				continue
			}
			if _, stop := frenchStopWords[word]; stop {
				continue
			}
			if freq[word] == 0 {
				order = append(order, word)
			}
			freq[word]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	var top []string
	for _, word := range order {
		if freq[word] >= 2 {
			top = append(top, word)
		}
		if len(top) == 3 {
			break
		}
	}

	switch {
	case len(top) >= 2:
		return titleCaser.String(top[0] + " + " + top[1])
	case len(top) == 1:
		return fmt.Sprintf("%s (%d liens)", titleCaser.String(top[0]), len(members))
	default:
		return fmt.Sprintf("Thème %d", label+1)
	}
}

// Coherence scores how well each anchor announces its destination page.
//
// anchors and contents are positionally aligned; a missing or empty content
// entry yields 0.0 for that position. Scores are clamped to [0, 1].
func (a *Analyzer) Coherence(ctx context.Context, anchors, contents []string) ([]float64, error) {
	if len(anchors) == 0 {
		return nil, nil
	}

	anchorVecs, err := a.enc.EmbedBatch(ctx, anchors)
	if err != nil {
		return nil, fmt.Errorf("failed to embed anchors: %w", err)
	}
	contentVecs, err := a.enc.EmbedBatch(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("failed to embed contents: %w", err)
	}

	scores := make([]float64, len(anchors))
	for i := range anchors {
		if i >= len(contentVecs) || vector.IsZero(contentVecs[i]) || vector.IsZero(anchorVecs[i]) {
			continue
		}
		sim := vector.CosineSimilarity(anchorVecs[i], contentVecs[i])
		if sim < 0 {
			sim = 0
		}
		scores[i] = sim
	}
	return scores, nil
}

// FindGaps returns the unordered page pairs whose content similarity
// exceeds threshold: close pages that may deserve a direct link. Results
// sort by similarity descending (URL pair ascending on ties) and cap at 20.
//
// The full pairwise matrix is quadratic; callers with more than a few
// hundred pages should pre-sample.
func (a *Analyzer) FindGaps(ctx context.Context, pageContents map[string]string, threshold float64) ([]Gap, error) {
	if len(pageContents) < 2 {
		return nil, nil
	}

	urls := make([]string, 0, len(pageContents))
	for u := range pageContents {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	contents := make([]string, len(urls))
	for i, u := range urls {
		contents[i] = pageContents[u]
	}

	embeddings, err := a.enc.EmbedBatch(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("failed to embed page contents: %w", err)
	}

	var gaps []Gap
	for i := range urls {
		for j := i + 1; j < len(urls); j++ {
			sim := vector.CosineSimilarity(embeddings[i], embeddings[j])
			if sim > threshold {
				gaps = append(gaps, Gap{PageA: urls[i], PageB: urls[j], Similarity: sim})
			}
		}
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Similarity != gaps[j].Similarity {
			return gaps[i].Similarity > gaps[j].Similarity
		}
		if gaps[i].PageA != gaps[j].PageA {
			return gaps[i].PageA < gaps[j].PageA
		}
		return gaps[i].PageB < gaps[j].PageB
	})
	if len(gaps) > 20 {
		gaps = gaps[:20]
	}
	return gaps, nil
}
