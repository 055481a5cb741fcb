package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/mapreviews/harvester/internal/infra/browser"
)

// ScrollParams configures one run of the scroll-and-collect loop.
type ScrollParams struct {
	ContainerSelector string
	IDSelector        string
	IDAttr            string
	SettleDelay       time.Duration
	MaxAttempts       int
	StaleLimit        int
}

// CollectIDs drives the virtualized container to its bottom until the
// identifier set stops growing. Only rendered records carry identifiers,
// so the union accumulated across all attempts is the complete view of the
// record space; a single rescan at the end would miss everything that was
// rendered and then recycled.
//
// The loop stops after StaleLimit consecutive attempts without a new
// identifier, or after MaxAttempts no matter what. The context is checked
// between attempts only, never inside a scroll+settle step.
func CollectIDs(ctx context.Context, sess browser.Session, p ScrollParams) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	staleStreak := 0

	for attempt := 0; attempt < p.MaxAttempts && staleStreak < p.StaleLimit; attempt++ {
		if err := ctx.Err(); err != nil {
			return seen, err
		}

		_ = sess.RunScript(ctx, scrollToBottomScript(p.ContainerSelector))
		sleep(ctx, p.SettleDelay)

		els, err := sess.FindAll(ctx, p.IDSelector)
		if err != nil {
			// The page is mid-render; treat it like an attempt that
			// revealed nothing and let the stale streak decide.
			staleStreak++
			continue
		}

		grew := false
		for _, el := range els {
			id, ok, err := el.Attribute(ctx, p.IDAttr)
			if err != nil || !ok || id == "" {
				continue
			}
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				grew = true
			}
		}
		if grew {
			staleStreak = 0
		} else {
			staleStreak++
		}
	}
	return seen, nil
}

func scrollToBottomScript(containerSelector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%q);
	if (el) { el.scrollTop = el.scrollHeight; }
})();`, containerSelector)
}

// sleep blocks for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
