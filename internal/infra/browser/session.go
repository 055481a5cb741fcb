package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/mapreviews/harvester/internal/config"
)

// Element is a handle to a live DOM node. Handles go stale when the page
// re-renders; methods surface that as an error and callers decide whether
// to skip or abort.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
	Click(ctx context.Context) error
	// FindOne resolves a CSS selector relative to this element.
	FindOne(ctx context.Context, selector string) (Element, bool, error)
}

// Finder is the lookup surface shared by a whole document and a single
// element subtree. Extraction code works against this so field candidates
// can target either scope.
type Finder interface {
	FindOne(ctx context.Context, selector string) (Element, bool, error)
}

// Session is a live, navigable document view. One session belongs to
// exactly one harvest; it is never shared or reused.
type Session interface {
	Finder
	Navigate(ctx context.Context, url string) error
	// FindAll resolves a CSS selector against the whole document.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// RunScript evaluates a script in the document. The result is discarded.
	RunScript(ctx context.Context, src string) error
	Close()
}

// Factory creates a fresh Session. Each call must produce an independent
// browser so concurrent harvests cannot interfere with each other.
type Factory func(ctx context.Context) (Session, error)

// NewFactory selects the driver named by the configuration.
func NewFactory(cfg *config.Config) (Factory, error) {
	switch cfg.Browser.Driver {
	case config.DriverChromedp:
		return func(ctx context.Context) (Session, error) {
			return NewChromedpSession(ctx, &cfg.Browser)
		}, nil
	case config.DriverRod:
		return func(ctx context.Context) (Session, error) {
			return NewRodSession(ctx, &cfg.Browser)
		}, nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", cfg.Browser.Driver)
	}
}

// isXPath reports whether a selector should be evaluated as an XPath
// expression rather than a CSS selector. Candidate chains mix both: text
// predicates need XPath, class and attribute lookups stay CSS.
func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "//") || strings.HasPrefix(selector, "(")
}
