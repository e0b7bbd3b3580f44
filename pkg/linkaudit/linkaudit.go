// Package linkaudit orchestrates a full internal-linking audit: mechanical
// link classification, graph statistics, anchor quality scoring and the
// optional semantic stages.
//
// The semantic stages are strictly additive. When no embedding model is
// reachable the audit still produces its classification, graph and quality
// results, and records why the semantic part is missing.
package linkaudit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/orneryd/linkaudit/pkg/classify"
	"github.com/orneryd/linkaudit/pkg/config"
	"github.com/orneryd/linkaudit/pkg/content"
	"github.com/orneryd/linkaudit/pkg/embed"
	"github.com/orneryd/linkaudit/pkg/graph"
	"github.com/orneryd/linkaudit/pkg/quality"
	"github.com/orneryd/linkaudit/pkg/records"
	"github.com/orneryd/linkaudit/pkg/semantic"
)

// ErrNoRecords means the dataset was empty after ingestion.
var ErrNoRecords = errors.New("linkaudit: no records to analyze")

// weakCoherenceThreshold flags anchor/page pairs whose semantic similarity
// suggests the anchor misrepresents its destination.
const weakCoherenceThreshold = 0.3

// WeakLink is an editorial link whose anchor and destination content
// diverge semantically.
type WeakLink struct {
	Anchor      string  `json:"anchor"`
	Destination string  `json:"destination"`
	Score       float64 `json:"score"`
}

// CoherenceSummary aggregates anchor/destination coherence scoring.
type CoherenceSummary struct {
	// Average is the mean coherence over the scored pairs.
	Average float64 `json:"average"`

	// Scored counts the editorial links whose destination had content.
	Scored int `json:"scored"`

	// WeakLinks are the lowest-scoring pairs, ascending, capped at 20.
	WeakLinks []WeakLink `json:"weak_links,omitempty"`
}

// SemanticResult holds the embedding-based analysis.
type SemanticResult struct {
	Themes    map[string][]string `json:"themes"`
	Coherence CoherenceSummary    `json:"coherence"`
	Gaps      []semantic.Gap      `json:"gaps,omitempty"`
}

// Result is the complete audit output for one dataset.
type Result struct {
	RunID       string    `json:"run_id"`
	Site        string    `json:"site"`
	GeneratedAt time.Time `json:"generated_at"`

	Graph   graph.Analysis `json:"graph"`
	Quality quality.Result `json:"quality"`

	// Semantic is nil when the embedding model was unavailable or
	// disabled; SemanticUnavailable then carries the reason.
	Semantic            *SemanticResult `json:"semantic,omitempty"`
	SemanticUnavailable string          `json:"semantic_unavailable,omitempty"`

	// Diagnostics are non-fatal warnings gathered along the way.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithEncoder supplies the embedding encoder for the semantic stages.
// Without one, semantic analysis is skipped.
func WithEncoder(enc semantic.Encoder) Option {
	return func(a *Auditor) { a.encoder = enc }
}

// WithContent supplies page text for coherence and gap analysis.
func WithContent(provider content.Provider) Option {
	return func(a *Auditor) { a.content = provider }
}

// WithScope overrides the internal-link predicate.
func WithScope(scope graph.ScopeFunc) Option {
	return func(a *Auditor) { a.scope = scope }
}

// Auditor runs audits with one fixed configuration.
type Auditor struct {
	cfg     *config.Config
	rules   *classify.Rules
	scope   graph.ScopeFunc
	encoder semantic.Encoder
	content content.Provider

	warnings []string
}

// New builds an auditor. Invalid config values and unparseable classifier
// patterns become diagnostics on every result, not errors.
func New(cfg *config.Config, opts ...Option) *Auditor {
	if cfg == nil {
		cfg = config.Default()
	}
	warnings := cfg.Validate()

	rules, ruleWarnings := classify.NewRules(classify.Options{
		AnchorPatterns: cfg.Classifier.AnchorPatterns,
		SelectorTokens: cfg.Classifier.SelectorTokens,
	})
	warnings = append(warnings, ruleWarnings...)

	a := &Auditor{
		cfg:      cfg,
		rules:    rules,
		scope:    graph.SameHost,
		warnings: warnings,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the full audit over recs.
//
// Classification mutates the records' mechanical flag in place; callers
// needing the pristine input should copy first.
func (a *Auditor) Analyze(ctx context.Context, recs []records.LinkRecord) (*Result, error) {
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}

	result := &Result{
		RunID:       uuid.NewString(),
		Site:        a.siteFor(recs),
		GeneratedAt: time.Now().UTC(),
		Diagnostics: append([]string(nil), a.warnings...),
	}

	a.rules.Apply(recs)

	result.Graph = graph.Analyze(recs, a.scope, graph.Options{
		AnchorRepetitionThreshold: a.cfg.Thresholds.AnchorRepetition,
		TopPages:                  a.cfg.Report.TopPages,
		TopAnchors:                a.cfg.Report.TopAnchors,
	})

	result.Quality = quality.ScoreAnchors(result.Graph.Editorial, result.Graph.Stats.EditorialRatio, quality.Options{
		StuffingWordLength: a.cfg.Thresholds.StuffingWordLength,
		StuffingMaxRepeat:  a.cfg.Thresholds.StuffingMaxRepeat,
	})

	a.runSemantic(ctx, result)
	return result, nil
}

// siteFor resolves the audited site: configuration first, then the host of
// the first record's source URL.
func (a *Auditor) siteFor(recs []records.LinkRecord) string {
	if a.cfg.Site.BaseURL != "" {
		return a.cfg.Site.BaseURL
	}
	for _, rec := range recs {
		u, err := url.Parse(rec.Source)
		if err == nil && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return ""
}

// runSemantic fills in the embedding-based stages, or records why they were
// skipped. Model failures never fail the audit.
func (a *Auditor) runSemantic(ctx context.Context, result *Result) {
	if a.encoder == nil {
		result.SemanticUnavailable = "no embedding model configured"
		return
	}

	analyzer := semantic.New(a.encoder, semantic.Config{
		DiversityGate: a.cfg.Thresholds.DiversityGate,
	})

	anchors := make([]string, len(result.Graph.Editorial))
	for i, rec := range result.Graph.Editorial {
		anchors[i] = rec.Anchor
	}

	themes, err := analyzer.ClusterThemes(ctx, anchors, a.cfg.Thresholds.MinClusterSize)
	if err != nil {
		result.SemanticUnavailable = semanticFailure(err)
		return
	}

	sem := &SemanticResult{Themes: themes}

	if len(a.content) > 0 {
		coherence, err := a.scoreCoherence(ctx, analyzer, result.Graph.Editorial)
		if err != nil {
			result.SemanticUnavailable = semanticFailure(err)
			return
		}
		sem.Coherence = coherence

		gaps, err := analyzer.FindGaps(ctx, a.content, a.cfg.Thresholds.GapSimilarity)
		if err != nil {
			result.SemanticUnavailable = semanticFailure(err)
			return
		}
		sem.Gaps = gaps
	}

	result.Semantic = sem
}

// scoreCoherence pairs each editorial link with its destination's content
// and summarizes the similarity scores.
func (a *Auditor) scoreCoherence(ctx context.Context, analyzer *semantic.Analyzer, editorial []records.LinkRecord) (CoherenceSummary, error) {
	var anchors, contents []string
	var pairs []records.LinkRecord
	for _, rec := range editorial {
		text, ok := a.content[rec.Destination]
		if !ok || text == "" || rec.Anchor == "" {
			continue
		}
		anchors = append(anchors, rec.Anchor)
		contents = append(contents, text)
		pairs = append(pairs, rec)
	}
	if len(anchors) == 0 {
		return CoherenceSummary{}, nil
	}

	scores, err := analyzer.Coherence(ctx, anchors, contents)
	if err != nil {
		return CoherenceSummary{}, err
	}

	summary := CoherenceSummary{Scored: len(scores)}
	var total float64
	for i, score := range scores {
		total += score
		if score < weakCoherenceThreshold {
			summary.WeakLinks = append(summary.WeakLinks, WeakLink{
				Anchor:      pairs[i].Anchor,
				Destination: pairs[i].Destination,
				Score:       score,
			})
		}
	}
	summary.Average = total / float64(len(scores))

	sort.Slice(summary.WeakLinks, func(i, j int) bool {
		if summary.WeakLinks[i].Score != summary.WeakLinks[j].Score {
			return summary.WeakLinks[i].Score < summary.WeakLinks[j].Score
		}
		return summary.WeakLinks[i].Destination < summary.WeakLinks[j].Destination
	})
	if len(summary.WeakLinks) > 20 {
		summary.WeakLinks = summary.WeakLinks[:20]
	}
	return summary, nil
}

// semanticFailure renders a skip reason, keeping the model-unavailable case
// recognizable.
func semanticFailure(err error) string {
	if errors.Is(err, embed.ErrUnavailable) {
		return fmt.Sprintf("embedding model unavailable: %v", err)
	}
	return fmt.Sprintf("semantic analysis failed: %v", err)
}
