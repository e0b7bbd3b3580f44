// Package records defines the link record shape shared by every analysis
// stage. Ingestion adapters translate whatever schema the crawler exported
// into this fixed form before the engine ever sees data.
package records

// LinkRecord is one observed hyperlink from a crawl export.
//
// Source, Destination and Anchor are always populated by ingestion.
// Origin, LinkType and DOMPath depend on what the crawler exported; an
// absent field is the empty string and simply never matches its
// classification rule.
type LinkRecord struct {
	// Source is the URL of the page the link was found on.
	Source string

	// Destination is the URL the link points to.
	Destination string

	// Anchor is the visible clickable text.
	Anchor string

	// Origin is the crawler's DOM-zone label (e.g. "Navigation", "Contenu").
	Origin string

	// LinkType is an explicit link-type column, when the export has one.
	LinkType string

	// DOMPath is an XPath or CSS-like position of the link element.
	DOMPath string

	// IsMechanical is set by the classifier. Records start editorial.
	IsMechanical bool
}
