// Package classify labels link records as mechanical (template navigation)
// or editorial (in-content). Classification is a pure function over a
// precompiled rule table: rules are validated and compiled once when the
// table is built, never re-parsed per record.
//
// Rule priority (first match wins):
//
//  1. DOM origin matches the navigation-origin vocabulary
//  2. Explicit link type matches the navigation-type vocabulary
//  3. Anchor text matches a mechanical anchor pattern
//  4. DOM path matches a navigation-zone pattern
//  5. DOM path contains a mechanical selector token
//  6. Anchor is 2 characters or fewer and not allowlisted
//  7. Anchor is a bare URL
//
// Anything that survives all seven rules is editorial.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/orneryd/linkaudit/pkg/records"
)

// navigationOrigins are substrings of crawler DOM-zone labels that mark
// template links. Includes the French labels Screaming Frog emits on
// localized installs.
var navigationOrigins = []string{
	"navigation", "en-tête", "pied de page", "header", "footer", "nav", "menu",
}

// navigationTypes are explicit link-type values that are always mechanical.
var navigationTypes = []string{
	"navigation", "menu", "footer", "header", "breadcrumb",
}

// defaultAnchorPatterns match boilerplate anchor texts: generic CTAs,
// pagination, empty anchors, bare symbols. Config-supplied patterns fully
// replace this list, they are not merged.
var defaultAnchorPatterns = []string{
	`^(accueil|home|menu|navigation)$`,
	`^(suivant|précédent|next|previous|page \d+)$`,
	`^(lire la suite|en savoir plus|voir plus|read more|more)$`,
	`^(contact|à propos|mentions légales|cgv|politique|privacy)$`,
	`^\d+$`,
	`^(cliquez ici|cliquer ici|ici|click here|here)$`,
	`^(retour|back|retour accueil)$`,
	`^(passer au contenu|skip to content)$`,
	`^(voir tout|see all|view all)$`,
	`^(\+|\-|\>|\<|»|«)$`,
	`^$`,
}

// domPathPatterns match navigation zones in XPath/CSS position strings.
var domPathPatterns = []string{
	`(header|footer|nav|navigation|menu)`,
	`(breadcrumb|pagination|pager)`,
	`(sidebar|widget|aside)`,
	`(social|share|partage)`,
	`(tag|category|categorie)`,
	`(related|connexe|similaire)`,
	`role=["']?(navigation|menu|banner|contentinfo)["']?`,
}

// defaultSelectorTokens are CSS class fragments whose presence in the DOM
// path marks a mechanical link. Config tokens fully replace these.
var defaultSelectorTokens = []string{
	".menu", ".nav", ".header", ".footer", ".breadcrumb", ".pagination", ".sidebar",
}

// shortAllowlist holds the short anchors that are legitimate despite being
// under the 3-character floor.
var shortAllowlist = map[string]struct{}{
	"tv": {}, "pc": {}, "seo": {}, "api": {}, "faq": {},
}

// Options configures the rule table. Zero value uses all defaults.
type Options struct {
	// AnchorPatterns replaces the default mechanical anchor regexes
	// when non-empty.
	AnchorPatterns []string

	// SelectorTokens replaces the default mechanical CSS selector
	// tokens when non-empty.
	SelectorTokens []string
}

// Rules is a compiled, validated classification rule table.
// Safe for concurrent use; build once at configuration-load time.
type Rules struct {
	anchorPatterns  []*regexp.Regexp
	domPathPatterns []*regexp.Regexp
	selectorTokens  []string
}

// NewRules compiles the rule table. Invalid regular expressions are skipped,
// not fatal: each one produces a warning so the caller can surface it.
func NewRules(opts Options) (*Rules, []string) {
	var warnings []string

	anchorSrc := defaultAnchorPatterns
	if len(opts.AnchorPatterns) > 0 {
		anchorSrc = opts.AnchorPatterns
	}

	r := &Rules{}
	for _, p := range anchorSrc {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping invalid anchor pattern %q: %v", p, err))
			continue
		}
		r.anchorPatterns = append(r.anchorPatterns, re)
	}

	for _, p := range domPathPatterns {
		// Built-in patterns; compile errors here are programmer errors.
		r.domPathPatterns = append(r.domPathPatterns, regexp.MustCompile("(?i)"+p))
	}

	tokens := defaultSelectorTokens
	if len(opts.SelectorTokens) > 0 {
		tokens = opts.SelectorTokens
	}
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		r.selectorTokens = append(r.selectorTokens, strings.TrimPrefix(t, "."))
	}

	return r, warnings
}

// Mechanical reports whether the record is a structural/template link.
// Pure and deterministic: same record, same answer. The rule order encodes
// priority, not just an OR of conditions.
func (r *Rules) Mechanical(rec records.LinkRecord) bool {
	anchor := strings.ToLower(strings.TrimSpace(rec.Anchor))
	origin := strings.ToLower(rec.Origin)
	domPath := strings.ToLower(rec.DOMPath)
	linkType := strings.ToLower(strings.TrimSpace(rec.LinkType))

	// 1. Navigation zones reported by the crawler win over everything.
	for _, o := range navigationOrigins {
		if origin != "" && strings.Contains(origin, o) {
			return true
		}
	}

	// 2. Explicit link type.
	for _, t := range navigationTypes {
		if linkType == t {
			return true
		}
	}

	// 3. Boilerplate anchor text.
	for _, re := range r.anchorPatterns {
		if re.MatchString(anchor) {
			return true
		}
	}

	// 4. Navigation zone in the DOM path.
	if domPath != "" {
		for _, re := range r.domPathPatterns {
			if re.MatchString(domPath) {
				return true
			}
		}

		// 5. Mechanical selector tokens.
		for _, tok := range r.selectorTokens {
			if strings.Contains(domPath, tok) {
				return true
			}
		}
	}

	// 6. Non-descriptive short anchors, minus the allowlist.
	if len([]rune(anchor)) <= 2 {
		if _, ok := shortAllowlist[anchor]; !ok {
			return true
		}
	}

	// 7. A URL pasted as its own anchor is never editorial.
	if strings.HasPrefix(anchor, "http://") ||
		strings.HasPrefix(anchor, "https://") ||
		strings.HasPrefix(anchor, "www.") {
		return true
	}

	return false
}

// Apply classifies every record in place and returns the mechanical and
// editorial counts.
func (r *Rules) Apply(recs []records.LinkRecord) (mechanical, editorial int) {
	for i := range recs {
		recs[i].IsMechanical = r.Mechanical(recs[i])
		if recs[i].IsMechanical {
			mechanical++
		} else {
			editorial++
		}
	}
	return mechanical, editorial
}
