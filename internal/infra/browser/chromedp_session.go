package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/mapreviews/harvester/internal/config"
)

type chromedpSession struct {
	pageCtx       context.Context
	pageCtxFuc    context.CancelFunc
	allocCtxFuc   context.CancelFunc
	timeoutCtxFuc context.CancelFunc
}

// NewChromedpSession launches a dedicated Chrome instance via chromedp and
// returns once the browser process is up. The session dies with Close or
// when the configured lifetime elapses, whichever comes first.
func NewChromedpSession(ctx context.Context, cfg *config.Browser) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", cfg.DisableBlinkFeatures),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", cfg.DisableDevShmUsage),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.Bin != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Bin))
	}

	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, cfg.LifeTime)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx, opts...)
	pageCtx, cancelPage := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		pageCtx:       pageCtx,
		pageCtxFuc:    cancelPage,
		allocCtxFuc:   cancelAlloc,
		timeoutCtxFuc: cancelTimeout,
	}

	// An empty run forces the browser process to start so that a missing or
	// broken Chrome binary fails here and not mid-harvest.
	if err := chromedp.Run(pageCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return s, nil
}

func (s *chromedpSession) Close() {
	s.pageCtxFuc()
	s.allocCtxFuc()
	s.timeoutCtxFuc()
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := chromedp.Run(s.pageCtx,
		network.Enable(),
		chromedp.Navigate(url),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *chromedpSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	err := chromedp.Run(s.pageCtx,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &chromedpElement{sess: s, node: n})
	}
	return els, nil
}

func (s *chromedpSession) FindOne(ctx context.Context, selector string) (Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	opt := chromedp.ByQuery
	if isXPath(selector) {
		opt = chromedp.BySearch
	}
	var nodes []*cdp.Node
	err := chromedp.Run(s.pageCtx,
		chromedp.Nodes(selector, &nodes, opt, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, false, fmt.Errorf("query %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, false, nil
	}
	return &chromedpElement{sess: s, node: nodes[0]}, true, nil
}

func (s *chromedpSession) RunScript(ctx context.Context, src string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(s.pageCtx, chromedp.Evaluate(src, nil)); err != nil {
		return fmt.Errorf("evaluate script: %w", err)
	}
	return nil
}

type chromedpElement struct {
	sess *chromedpSession
	node *cdp.Node
}

func (e *chromedpElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var text string
	err := chromedp.Run(e.sess.pageCtx,
		chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID),
	)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (e *chromedpElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var value string
	var ok bool
	err := chromedp.Run(e.sess.pageCtx,
		chromedp.AttributeValue([]cdp.NodeID{e.node.NodeID}, name, &value, &ok, chromedp.ByNodeID),
	)
	if err != nil {
		return "", false, fmt.Errorf("read attribute %q: %w", name, err)
	}
	return value, ok, nil
}

func (e *chromedpElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(e.sess.pageCtx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}

func (e *chromedpElement) FindOne(ctx context.Context, selector string) (Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var nodes []*cdp.Node
	err := chromedp.Run(e.sess.pageCtx,
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.FromNode(e.node), chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, false, fmt.Errorf("query %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, false, nil
	}
	return &chromedpElement{sess: e.sess, node: nodes[0]}, true, nil
}
