package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/mapreviews/harvester/internal/config"
)

type rodSession struct {
	browser *rod.Browser
	page    *rod.Page
}

// NewRodSession launches a dedicated browser through go-rod. The page is
// created with the stealth profile so automation markers stay hidden from
// the rendered site.
func NewRodSession(ctx context.Context, cfg *config.Browser) (Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-blink-features", cfg.DisableBlinkFeatures).
		Set("user-agent", cfg.UserAgent).
		Set("window-size", "1920,1080")
	if cfg.NoSandbox {
		l = l.Set("no-sandbox")
	}
	if cfg.DisableDevShmUsage {
		l = l.Set("disable-dev-shm-usage")
	}
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("create stealth page: %w", err)
	}

	return &rodSession{browser: browser, page: page}, nil
}

func (s *rodSession) Close() {
	_ = s.browser.Close()
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := s.page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (s *rodSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := s.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (s *rodSession) FindOne(ctx context.Context, selector string) (Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var (
		found bool
		el    *rod.Element
		err   error
	)
	if isXPath(selector) {
		found, el, err = s.page.HasX(selector)
	} else {
		found, el, err = s.page.Has(selector)
	}
	if err != nil {
		return nil, false, fmt.Errorf("query %q: %w", selector, err)
	}
	if !found {
		return nil, false, nil
	}
	return &rodElement{el: el}, true, nil
}

func (s *rodSession) RunScript(ctx context.Context, src string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// rod evaluates function definitions; wrap arbitrary script text so
	// statements and IIFEs run the same as under the CDP driver.
	if _, err := s.page.Eval("() => { " + src + " }"); err != nil {
		return fmt.Errorf("evaluate script: %w", err)
	}
	return nil
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.el.Text()
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	val, err := e.el.Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("read attribute %q: %w", name, err)
	}
	if val == nil {
		return "", false, nil
	}
	return *val, true, nil
}

func (e *rodElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}

func (e *rodElement) FindOne(ctx context.Context, selector string) (Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	found, el, err := e.el.Has(selector)
	if err != nil {
		return nil, false, fmt.Errorf("query %q: %w", selector, err)
	}
	if !found {
		return nil, false, nil
	}
	return &rodElement{el: el}, true, nil
}
