// Package content extracts representative text from HTML pages for the
// semantic stages: title, main heading and meta description, which is
// enough signal for embedding without hauling whole page bodies around.
package content

import (
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Provider maps page URLs to their representative text. A nil or empty
// provider simply disables coherence and gap analysis.
type Provider map[string]string

// ExtractText pulls the title, first h1 and meta description out of an
// HTML document, joined with ". ".
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	var parts []string
	add := func(s string) {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			parts = append(parts, s)
		}
	}

	add(doc.Find("title").First().Text())
	add(doc.Find("h1").First().Text())
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		add(desc)
	}

	return strings.Join(parts, ". "), nil
}

// LoadMirror builds a Provider from a local HTML mirror of the site.
//
// Each .html file maps to baseURL plus its relative path; index.html maps
// to its directory URL, so mirror/blog/index.html becomes
// https://example.com/blog/. Unreadable or unparseable files are skipped.
func LoadMirror(dir, baseURL string) (Provider, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	provider := Provider{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".html") {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		text, err := ExtractText(f)
		f.Close()
		if err != nil || text == "" {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		provider[mirrorURL(base, rel)] = text
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk mirror %s: %w", dir, err)
	}
	return provider, nil
}

// mirrorURL maps a relative mirror path to its page URL.
func mirrorURL(base *url.URL, rel string) string {
	rel = filepath.ToSlash(rel)
	if rel == "index.html" {
		return base.String() + "/"
	}
	if strings.HasSuffix(rel, "/index.html") {
		return base.String() + "/" + strings.TrimSuffix(rel, "index.html")
	}
	return base.String() + "/" + strings.TrimSuffix(rel, ".html")
}
