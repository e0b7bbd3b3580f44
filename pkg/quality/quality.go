// Package quality buckets editorial anchors by quality and computes the
// aggregate 0-100 editorial score.
//
// Length buckets (too short / good / too long) are mutually exclusive;
// keyword stuffing and URL-as-anchor are independent flags an anchor can
// carry on top of its length bucket.
package quality

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/orneryd/linkaudit/pkg/records"
)

// Options tunes the bucketing thresholds. Zero values use defaults.
type Options struct {
	// StuffingWordLength is the minimum word length (exclusive) counted
	// toward keyword stuffing (default 3: only words longer than 3 chars).
	StuffingWordLength int

	// StuffingMaxRepeat is the repetition count a word may reach before
	// the anchor is flagged (default 2: more than twice flags it).
	StuffingMaxRepeat int
}

func (o *Options) setDefaults() {
	if o.StuffingWordLength <= 0 {
		o.StuffingWordLength = 3
	}
	if o.StuffingMaxRepeat <= 0 {
		o.StuffingMaxRepeat = 2
	}
}

// Flagged is one anchor/destination pair placed in a quality bucket.
type Flagged struct {
	Anchor      string `json:"anchor"`
	Destination string `json:"destination"`
}

// Buckets holds the per-anchor quality classification.
type Buckets struct {
	TooShort       []Flagged `json:"too_short"`
	TooLong        []Flagged `json:"too_long"`
	GoodQuality    []Flagged `json:"good_quality"`
	KeywordStuffed []Flagged `json:"keyword_stuffed"`
	URLAnchors     []Flagged `json:"url_anchors"`
}

// KeywordCount is an anchor keyword with its frequency.
type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Result is the complete anchor quality analysis.
type Result struct {
	Buckets Buckets `json:"buckets"`

	// Score is the aggregate editorial quality score in [0, 100].
	Score float64 `json:"score"`

	// TopAnchorKeywords are the most frequent content words (4+ chars)
	// across editorial anchors.
	TopAnchorKeywords []KeywordCount `json:"top_anchor_keywords"`

	// DestinationCategories counts editorial links by destination page
	// type, inferred from the URL.
	DestinationCategories map[string]int `json:"destination_categories"`
}

var keywordRe = regexp.MustCompile(`[\p{L}\p{N}_]{4,}`)

// ScoreAnchors buckets every editorial anchor and computes the aggregate
// score. editorialRatio is the editorial percentage of internal links,
// taken from the graph stats so both stages agree on it.
func ScoreAnchors(editorial []records.LinkRecord, editorialRatio float64, opts Options) Result {
	opts.setDefaults()

	var b Buckets
	keywords := map[string]int{}
	categories := map[string]int{}
	scored := 0

	for _, rec := range editorial {
		anchor := strings.TrimSpace(rec.Anchor)
		if anchor == "" {
			continue
		}
		scored++
		flag := Flagged{Anchor: anchor, Destination: rec.Destination}

		words := strings.Fields(anchor)
		switch {
		case len(words) == 1 && len([]rune(anchor)) < 4:
			b.TooShort = append(b.TooShort, flag)
		case len(words) > 8:
			b.TooLong = append(b.TooLong, flag)
		case len(words) >= 2 && len(words) <= 6:
			b.GoodQuality = append(b.GoodQuality, flag)
		}

		if stuffed(words, opts) {
			b.KeywordStuffed = append(b.KeywordStuffed, flag)
		}

		lower := strings.ToLower(anchor)
		if strings.HasPrefix(lower, "http://") ||
			strings.HasPrefix(lower, "https://") ||
			strings.HasPrefix(lower, "www.") {
			b.URLAnchors = append(b.URLAnchors, flag)
		}

		for _, w := range keywordRe.FindAllString(lower, -1) {
			keywords[w]++
		}
		categories[categorize(rec.Destination)]++
	}

	return Result{
		Buckets:               b,
		Score:                 EditorialScore(b, scored, editorialRatio),
		TopAnchorKeywords:     topKeywords(keywords, 15),
		DestinationCategories: categories,
	}
}

// stuffed reports whether any sufficiently long word repeats beyond the
// allowed count within a single anchor.
func stuffed(words []string, opts Options) bool {
	freq := map[string]int{}
	for _, w := range words {
		w = strings.ToLower(w)
		if len([]rune(w)) > opts.StuffingWordLength {
			freq[w]++
			if freq[w] > opts.StuffingMaxRepeat {
				return true
			}
		}
	}
	return false
}

// EditorialScore computes the aggregate 0-100 score.
//
// Base score comes from the editorial ratio in five bands; anchor-quality
// penalties are dampened by base/100 so a site that already scores low is
// not punished twice; a small bonus rewards good anchors; thin editorial
// volume costs a flat penalty. Zero editorial links score exactly 0.
func EditorialScore(b Buckets, totalEditorial int, editorialRatio float64) float64 {
	if totalEditorial == 0 {
		return 0
	}

	var base float64
	switch {
	case editorialRatio >= 70:
		base = 90
	case editorialRatio >= 50:
		base = 70
	case editorialRatio >= 30:
		base = 50
	case editorialRatio >= 15:
		base = 30
	default:
		base = 10
	}

	total := float64(totalEditorial)
	penaltyFactor := base / 100
	penalty := (float64(len(b.TooShort))/total)*15*penaltyFactor +
		(float64(len(b.TooLong))/total)*10*penaltyFactor +
		(float64(len(b.KeywordStuffed))/total)*20*penaltyFactor +
		(float64(len(b.URLAnchors))/total)*25*penaltyFactor

	bonus := math.Min(5, float64(len(b.GoodQuality))/total*10)

	var volumePenalty float64
	switch {
	case totalEditorial < 20:
		volumePenalty = 20
	case totalEditorial < 50:
		volumePenalty = 10
	}

	score := base - penalty + bonus - volumePenalty
	score = math.Max(0, math.Min(100, score))
	return math.Round(score*10) / 10
}

// categorize infers a coarse page type from a destination URL.
func categorize(dest string) string {
	d := strings.ToLower(dest)
	switch {
	case containsAny(d, "blog", "article", "actualit"):
		return "Blog/Articles"
	case containsAny(d, "produit", "product", "service"):
		return "Products/Services"
	case containsAny(d, "contact", "about", "propos"):
		return "Institutional"
	default:
		return "Other"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func topKeywords(counts map[string]int, n int) []KeywordCount {
	out := make([]KeywordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, KeywordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
