package harvest

import (
	"context"
	"sync"

	"github.com/mapreviews/harvester/internal/infra/browser"
)

// fakeElement is a synthetic DOM node for extractor and engine tests.
type fakeElement struct {
	text     string
	textErr  error
	attrs    map[string]string
	attrErr  error
	children map[string]*fakeElement
	clickErr error
	clicks   int
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	return e.text, e.textErr
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if e.attrErr != nil {
		return "", false, e.attrErr
	}
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	return nil
}

func (e *fakeElement) FindOne(ctx context.Context, selector string) (browser.Element, bool, error) {
	child, ok := e.children[selector]
	if !ok {
		return nil, false, nil
	}
	return child, true, nil
}

// fakeSession simulates a virtualized listing that reveals one batch of
// record elements per scroll attempt.
type fakeSession struct {
	mu sync.Mutex

	singles map[string]*fakeElement

	recordSelector string
	batches        [][]*fakeElement
	visible        []*fakeElement

	expandSelector string
	expands        []*fakeElement

	scrolls   int
	navigated []string
	navErr    error
	closed    bool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.navigated = append(s.navigated, url)
	return s.navErr
}

func (s *fakeSession) RunScript(ctx context.Context, src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrolls++
	if s.scrolls <= len(s.batches) {
		s.visible = append(s.visible, s.batches[s.scrolls-1]...)
	}
	return nil
}

func (s *fakeSession) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch selector {
	case s.recordSelector:
		els := make([]browser.Element, len(s.visible))
		for i, el := range s.visible {
			els[i] = el
		}
		return els, nil
	case s.expandSelector:
		els := make([]browser.Element, len(s.expands))
		for i, el := range s.expands {
			els[i] = el
		}
		return els, nil
	}
	return nil, nil
}

func (s *fakeSession) FindOne(ctx context.Context, selector string) (browser.Element, bool, error) {
	el, ok := s.singles[selector]
	if !ok {
		return nil, false, nil
	}
	return el, true, nil
}

func (s *fakeSession) Close() {
	s.closed = true
}

func recordEl(id string, fields map[string]*fakeElement) *fakeElement {
	return &fakeElement{
		attrs:    map[string]string{"data-review-id": id},
		children: fields,
	}
}
