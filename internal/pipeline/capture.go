package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/predictops/tipsync/internal/model"
)

// CaptureResult summarizes one capture cycle.
type CaptureResult struct {
	Captured  int // documents stored as a new version
	Unchanged int // documents identical to the stored latest
	Failed    int // documents that could not be fetched or stored
}

// Capture fetches every manifest document from the platform and stores it.
// Tabular documents marked for merging are stamped with observation
// provenance against the previously stored version before the write, so a
// re-capture of unchanged rows keeps their original timestamps and produces
// no new version. One document's failure never aborts the rest.
func (p *Pipeline) Capture(ctx context.Context, m *Manifest, now time.Time) (*CaptureResult, error) {
	log := zap.L().With(zap.String("scope", m.Scope))
	log.Info("capture: starting", zap.Int("documents", len(m.Documents)))

	result := &CaptureResult{}
	for _, doc := range m.Documents {
		if err := ctx.Err(); err != nil {
			return result, eris.Wrap(err, "pipeline: capture canceled")
		}

		changed, err := p.captureOne(ctx, m.Scope, doc, now)
		if err != nil {
			log.Warn("capture: document failed",
				zap.String("document", doc.Name), zap.Error(err))
			result.Failed++
			continue
		}
		if changed {
			result.Captured++
		} else {
			result.Unchanged++
		}
	}

	log.Info("capture: finished",
		zap.Int("captured", result.Captured),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("failed", result.Failed))
	return result, nil
}

// captureOne reports whether the write produced a new version.
func (p *Pipeline) captureOne(ctx context.Context, scope string, doc ManifestDocument, now time.Time) (bool, error) {
	content, err := p.platform.FetchPage(ctx, scope, doc.Page)
	if err != nil {
		return false, eris.Wrapf(err, "pipeline: fetch %s", doc.Name)
	}

	before := -1
	previous := ""
	prev, err := p.docs.GetLatest(ctx, doc.Name, scope)
	switch {
	case err == nil:
		before = prev.Version
		previous = prev.Content
	case eris.Is(err, model.ErrNotFound):
		// first capture, nothing stored yet
	default:
		return false, eris.Wrapf(err, "pipeline: load previous %s", doc.Name)
	}

	if doc.Merge {
		content = p.merge.Merge(content, previous, now)
	}
	version, err := p.docs.Put(ctx, doc.Name, scope, content, now)
	if err != nil {
		return false, eris.Wrapf(err, "pipeline: store %s", doc.Name)
	}
	return version != before, nil
}
