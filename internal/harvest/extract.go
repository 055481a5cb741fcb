package harvest

import (
	"context"
	"strings"

	"github.com/mapreviews/harvester/internal/infra/browser"
)

// ExtractField tries the field's candidates in order against root and
// returns the first non-empty value. A missing field is an empty string,
// never an error: one blank field must not take down a whole record, and
// one broken record must not take down a whole harvest.
func ExtractField(ctx context.Context, root browser.Finder, spec FieldSpec) string {
	for _, c := range spec.Candidates {
		el, ok, err := root.FindOne(ctx, c.Selector)
		if err != nil || !ok {
			continue
		}
		if text, err := el.Text(ctx); err == nil {
			if v := strings.TrimSpace(text); v != "" {
				return v
			}
		}
		if c.Attr == "" {
			continue
		}
		attr, ok, err := el.Attribute(ctx, c.Attr)
		if err != nil || !ok {
			continue
		}
		if v := strings.TrimSpace(strings.TrimPrefix(attr, c.TrimPrefix)); v != "" {
			return v
		}
	}
	return ""
}
