// Package graph derives the internal link graph from classified records:
// editorial in/out degree per page, orphan detection, anchor repetition and
// the aggregate link statistics.
//
// The graph is held as frequency counters rather than an explicit adjacency
// structure; everything the audit needs (orphans, hubs, repetition) falls
// out of the counters.
package graph

import (
	"net/url"
	"sort"

	"github.com/orneryd/linkaudit/pkg/records"
)

// ScopeFunc decides whether a link is internal to the audited site.
// Injected so callers (and tests) control the site boundary.
type ScopeFunc func(source, destination string) bool

// SameHost is the default scope: both URLs parse and share a host.
func SameHost(source, destination string) bool {
	s, err := url.Parse(source)
	if err != nil || s.Host == "" {
		return false
	}
	d, err := url.Parse(destination)
	if err != nil || d.Host == "" {
		return false
	}
	return s.Host == d.Host
}

// Options tunes the analysis. Zero values fall back to defaults.
type Options struct {
	// AnchorRepetitionThreshold flags anchors whose editorial frequency
	// exceeds it (default 5).
	AnchorRepetitionThreshold int

	// TopPages caps the hub/authority lists (default 10).
	TopPages int

	// TopAnchors caps the anchor frequency list (default 20).
	TopAnchors int
}

func (o *Options) setDefaults() {
	if o.AnchorRepetitionThreshold <= 0 {
		o.AnchorRepetitionThreshold = 5
	}
	if o.TopPages <= 0 {
		o.TopPages = 10
	}
	if o.TopAnchors <= 0 {
		o.TopAnchors = 20
	}
}

// PageCount is a URL with its editorial link count.
type PageCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// AnchorCount is an anchor text with its editorial frequency.
type AnchorCount struct {
	Anchor string `json:"anchor"`
	Count  int    `json:"count"`
}

// Stats are the aggregate numbers for the internal link graph.
// All ratios are 0 when their denominator is 0, never an error.
type Stats struct {
	TotalPages          int     `json:"total_pages"`
	TotalInternalLinks  int     `json:"total_internal_links"`
	EditorialLinks      int     `json:"editorial_links"`
	MechanicalLinks     int     `json:"mechanical_links"`
	ExternalLinks       int     `json:"external_links"`
	EditorialRatio      float64 `json:"editorial_ratio"`        // percent
	AvgEditorialPerPage float64 `json:"avg_editorial_per_page"`
}

// Analysis is the full graph derivation for one dataset.
type Analysis struct {
	Stats Stats `json:"stats"`

	// TopLinkingPages are the pages emitting the most editorial links.
	TopLinkingPages []PageCount `json:"top_linking_pages"`

	// MostLinkedPages are the pages receiving the most editorial links.
	MostLinkedPages []PageCount `json:"most_linked_pages"`

	// TopAnchors are the most frequent editorial anchor texts.
	TopAnchors []AnchorCount `json:"top_anchors"`

	// OverOptimizedAnchors are anchors repeated beyond the threshold.
	OverOptimizedAnchors map[string]int `json:"over_optimized_anchors"`

	// OrphanPages have zero inbound editorial links. A page that only
	// receives mechanical links is still an orphan. Sorted.
	OrphanPages []string `json:"orphan_pages"`

	// Editorial is the internal editorial subset (self-links excluded),
	// the input for the anchor quality scorer.
	Editorial []records.LinkRecord `json:"-"`
}

// Analyze builds the graph statistics from classified records.
//
// Only internal records (per inScope) participate. Self-referential links
// prove their source page exists but are excluded from every edge counter
// before orphans are computed.
func Analyze(recs []records.LinkRecord, inScope ScopeFunc, opts Options) Analysis {
	opts.setDefaults()
	if inScope == nil {
		inScope = SameHost
	}

	outbound := map[string]int{}
	inbound := map[string]int{}
	anchorFreq := map[string]int{}
	allPages := map[string]struct{}{}
	linkedPages := map[string]struct{}{}

	var editorial []records.LinkRecord
	var internalCount, editorialCount, externalCount int

	for _, rec := range recs {
		if rec.Source == "" || rec.Destination == "" {
			continue
		}
		if !inScope(rec.Source, rec.Destination) {
			externalCount++
			continue
		}

		// A page is "known" once it was crawled as a source, whatever
		// kind of links it carries.
		allPages[rec.Source] = struct{}{}

		if rec.Source == rec.Destination {
			continue
		}

		internalCount++
		if rec.IsMechanical {
			continue
		}

		editorialCount++
		editorial = append(editorial, rec)
		outbound[rec.Source]++
		inbound[rec.Destination]++
		linkedPages[rec.Destination] = struct{}{}
		if a := rec.Anchor; a != "" {
			anchorFreq[a]++
		}
	}

	var orphans []string
	for page := range allPages {
		if _, linked := linkedPages[page]; !linked {
			orphans = append(orphans, page)
		}
	}
	sort.Strings(orphans)

	over := map[string]int{}
	for anchor, n := range anchorFreq {
		if n > opts.AnchorRepetitionThreshold {
			over[anchor] = n
		}
	}

	stats := Stats{
		TotalPages:         len(allPages),
		TotalInternalLinks: internalCount,
		EditorialLinks:     editorialCount,
		MechanicalLinks:    internalCount - editorialCount,
		ExternalLinks:      externalCount,
	}
	if internalCount > 0 {
		stats.EditorialRatio = float64(editorialCount) / float64(internalCount) * 100
	}
	if len(allPages) > 0 {
		stats.AvgEditorialPerPage = float64(editorialCount) / float64(len(allPages))
	}

	return Analysis{
		Stats:                stats,
		TopLinkingPages:      topPages(outbound, opts.TopPages),
		MostLinkedPages:      topPages(inbound, opts.TopPages),
		TopAnchors:           topAnchors(anchorFreq, opts.TopAnchors),
		OverOptimizedAnchors: over,
		OrphanPages:          orphans,
		Editorial:            editorial,
	}
}

// topPages returns the n highest-count entries, count descending, URL
// ascending on ties so output is stable across runs.
func topPages(counts map[string]int, n int) []PageCount {
	out := make([]PageCount, 0, len(counts))
	for u, c := range counts {
		out = append(out, PageCount{URL: u, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].URL < out[j].URL
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func topAnchors(counts map[string]int, n int) []AnchorCount {
	out := make([]AnchorCount, 0, len(counts))
	for a, c := range counts {
		out = append(out, AnchorCount{Anchor: a, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Anchor < out[j].Anchor
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
