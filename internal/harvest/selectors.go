package harvest

// Candidate is one way to locate a logical field. When the matched
// element's text is empty the named attribute is read instead, with
// TrimPrefix stripped from the attribute value.
type Candidate struct {
	Selector   string
	Attr       string
	TrimPrefix string
}

// FieldSpec is the ordered candidate chain for one logical field. Order is
// significant: the first candidate producing a non-empty value wins.
type FieldSpec struct {
	Name       string
	Candidates []Candidate
}

// Selectors is the full static selector configuration for one source
// layout. Record-relative candidates must be CSS; document-level
// candidates may be XPath when they need text predicates.
type Selectors struct {
	// ConsentDismiss are controls that close an interstitial before the
	// page content is reachable.
	ConsentDismiss []string
	// ReviewsTab are candidate controls opening the reviews listing.
	ReviewsTab []string

	SubjectName    FieldSpec
	SubjectContact FieldSpec

	// ScrollContainer is the virtualized listing to drive to the bottom.
	ScrollContainer string
	// RecordRoot matches every currently rendered record element.
	RecordRoot string
	// RecordIDAttr is the attribute on a record root carrying the stable id.
	RecordIDAttr string
	// ExpandControl matches the controls that reveal truncated record text.
	ExpandControl string

	Author FieldSpec
	Rating FieldSpec
	Text   FieldSpec
	Date   FieldSpec
}

// GoogleMapsSelectors returns the selector set for a Google Maps place
// page. Class names are what the current markup ships; when Google rotates
// them only this function needs updating.
func GoogleMapsSelectors() Selectors {
	return Selectors{
		ConsentDismiss: []string{
			`//button[contains(., 'Reject all')]`,
			`//button[contains(., 'Accept all')]`,
		},
		ReviewsTab: []string{
			`//button[contains(@aria-label,"reviews")]`,
			`//button[contains(@aria-label,"Reviews")]`,
			`//button[contains(text(),"Reviews")]`,
			`//button[contains(text(),"Rating")]`,
		},
		SubjectName: FieldSpec{
			Name: "subject_name",
			Candidates: []Candidate{
				{Selector: `//h1[contains(@class,"DUwDvf")]`},
				{Selector: `h1`},
			},
		},
		SubjectContact: FieldSpec{
			Name: "subject_contact",
			Candidates: []Candidate{
				{Selector: `button[aria-label*="Phone"]`, Attr: "aria-label", TrimPrefix: "Phone: "},
				{Selector: `button[data-item-id*="phone:tel"]`, Attr: "data-item-id", TrimPrefix: "phone:tel:"},
				{Selector: `button[aria-label*="Call"]`, Attr: "aria-label", TrimPrefix: "Call "},
				{Selector: `a[href^="tel:"]`, Attr: "href", TrimPrefix: "tel:"},
			},
		},
		ScrollContainer: `div.m6QErb.DxyBCb`,
		RecordRoot:      `div[data-review-id]`,
		RecordIDAttr:    "data-review-id",
		ExpandControl:   `button[aria-label="See more"]`,
		Author: FieldSpec{
			Name:       "author",
			Candidates: []Candidate{{Selector: `div.d4r55`}},
		},
		Rating: FieldSpec{
			Name:       "rating",
			Candidates: []Candidate{{Selector: `[aria-label*="star"]`, Attr: "aria-label"}},
		},
		Text: FieldSpec{
			Name:       "text",
			Candidates: []Candidate{{Selector: `span.wiI7pd`}},
		},
		Date: FieldSpec{
			Name:       "date",
			Candidates: []Candidate{{Selector: `span.rsqaWe`}},
		},
	}
}
