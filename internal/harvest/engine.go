package harvest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mapreviews/harvester/internal/config"
	"github.com/mapreviews/harvester/internal/domain/model"
	"github.com/mapreviews/harvester/internal/infra/browser"
)

// Engine runs one single-shot harvest against a freshly created session.
// It performs no retries; the caller decides whether a failed harvest is
// worth resubmitting.
type Engine struct {
	newSession browser.Factory
	sel        Selectors
	cfg        config.Harvest
	logger     zerolog.Logger
}

func NewEngine(factory browser.Factory, sel Selectors, cfg config.Harvest, logger zerolog.Logger) *Engine {
	return &Engine{
		newSession: factory,
		sel:        sel,
		cfg:        cfg,
		logger:     logger.With().Str("component", "harvest").Logger(),
	}
}

// Harvest navigates to sourceRef, collects every record the virtualized
// listing will reveal and extracts their fields. The session is released
// on every exit path. Failures carry a Kind; see errors.go for the
// taxonomy.
func (e *Engine) Harvest(ctx context.Context, sourceRef string) ([]model.Review, error) {
	sess, err := e.newSession(ctx)
	if err != nil {
		return nil, newError(KindSessionSetup, "create browser session", err)
	}
	defer sess.Close()

	e.logger.Info().Str("source", sourceRef).Msg("navigating to source")
	if err := sess.Navigate(ctx, sourceRef); err != nil {
		return nil, newError(KindUnclassified, "navigate to source", err)
	}
	sleep(ctx, e.cfg.NavigateSettle)

	e.dismissConsent(ctx, sess)

	subjectName, subjectContact := e.extractSubject(ctx, sess)

	if err := e.openReviewsTab(ctx, sess); err != nil {
		return nil, err
	}

	ids, err := CollectIDs(ctx, sess, ScrollParams{
		ContainerSelector: e.sel.ScrollContainer,
		IDSelector:        e.sel.RecordRoot,
		IDAttr:            e.sel.RecordIDAttr,
		SettleDelay:       e.cfg.ScrollSettle,
		MaxAttempts:       e.cfg.MaxScrollAttempts,
		StaleLimit:        e.cfg.StaleLimit,
	})
	if err != nil {
		return nil, newError(KindUnclassified, "scroll collection interrupted", err)
	}
	e.logger.Info().Int("ids", len(ids)).Msg("finished scrolling")

	e.expandTruncated(ctx, sess)

	records, err := e.extractRecords(ctx, sess, subjectName, subjectContact)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, newError(KindNoRecords, "no records were extracted from this source", nil)
	}

	e.logger.Info().Int("records", len(records)).Msg("harvest complete")
	return records, nil
}

// dismissConsent closes a consent interstitial when one is shown. The
// control not existing is the normal case outside the EU.
func (e *Engine) dismissConsent(ctx context.Context, sess browser.Session) {
	el, ok := e.waitForControl(ctx, sess, e.sel.ConsentDismiss, e.cfg.ClickSettle)
	if !ok {
		return
	}
	if err := el.Click(ctx); err != nil {
		e.logger.Debug().Err(err).Msg("consent control found but not clickable")
		return
	}
	e.logger.Debug().Msg("dismissed consent interstitial")
	sleep(ctx, e.cfg.ClickSettle)
}

func (e *Engine) extractSubject(ctx context.Context, sess browser.Session) (name, contact string) {
	// The header renders after navigation settles; give the name the same
	// bounded wait the original layout needed.
	deadline := time.Now().Add(e.cfg.ControlWait)
	for {
		if name = ExtractField(ctx, sess, e.sel.SubjectName); name != "" {
			break
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			break
		}
		sleep(ctx, e.cfg.PollInterval)
	}
	contact = ExtractField(ctx, sess, e.sel.SubjectContact)

	if name == "" {
		e.logger.Warn().Msg("subject name not found, records will be degraded")
	}
	if contact == "" {
		e.logger.Debug().Msg("subject contact not found")
	}
	return name, contact
}

func (e *Engine) openReviewsTab(ctx context.Context, sess browser.Session) error {
	el, ok := e.waitForControl(ctx, sess, e.sel.ReviewsTab, e.cfg.ControlWait)
	if !ok {
		return newError(KindReviewsTabNotFound, "reviews entry point not found on page", nil)
	}
	if err := el.Click(ctx); err != nil {
		return newError(KindReviewsTabNotFound, "reviews entry point not clickable", err)
	}
	sleep(ctx, e.cfg.ClickSettle)
	return nil
}

// expandTruncated clicks every currently present expand control. Best
// effort: a control that fails to click just leaves one record truncated.
func (e *Engine) expandTruncated(ctx context.Context, sess browser.Session) {
	els, err := sess.FindAll(ctx, e.sel.ExpandControl)
	if err != nil {
		e.logger.Debug().Err(err).Msg("scan for expand controls failed")
		return
	}
	expanded := 0
	for _, el := range els {
		if err := el.Click(ctx); err == nil {
			expanded++
		}
	}
	if expanded > 0 {
		e.logger.Debug().Int("expanded", expanded).Msg("expanded truncated records")
		sleep(ctx, e.cfg.ClickSettle)
	}
}

func (e *Engine) extractRecords(ctx context.Context, sess browser.Session, subjectName, subjectContact string) ([]model.Review, error) {
	els, err := sess.FindAll(ctx, e.sel.RecordRoot)
	if err != nil {
		return nil, newError(KindUnclassified, "scan record elements", err)
	}

	records := make([]model.Review, 0, len(els))
	extracted := make(map[string]struct{}, len(els))
	for _, el := range els {
		id, ok, err := el.Attribute(ctx, e.sel.RecordIDAttr)
		if err != nil || !ok || id == "" {
			// Stale handle or a placeholder element; skip, never retry.
			continue
		}
		if _, dup := extracted[id]; dup {
			continue
		}
		extracted[id] = struct{}{}

		records = append(records, model.Review{
			ID:             id,
			Author:         ExtractField(ctx, el, e.sel.Author),
			Rating:         ExtractField(ctx, el, e.sel.Rating),
			Text:           ExtractField(ctx, el, e.sel.Text),
			Date:           ExtractField(ctx, el, e.sel.Date),
			SubjectName:    subjectName,
			SubjectContact: subjectContact,
		})
	}
	return records, nil
}

// waitForControl polls the candidate selectors in order until one resolves
// or the wait budget runs out.
func (e *Engine) waitForControl(ctx context.Context, sess browser.Session, candidates []string, wait time.Duration) (browser.Element, bool) {
	deadline := time.Now().Add(wait)
	for {
		for _, sel := range candidates {
			el, ok, err := sess.FindOne(ctx, sel)
			if err == nil && ok {
				return el, true
			}
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return nil, false
		}
		sleep(ctx, e.cfg.PollInterval)
	}
}
