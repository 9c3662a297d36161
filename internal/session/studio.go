package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/ai-marketing-designer/internal/config"
	"github.com/fpang/ai-marketing-designer/internal/export"
	"github.com/fpang/ai-marketing-designer/internal/generation"
	"github.com/fpang/ai-marketing-designer/internal/marketing"
	"github.com/fpang/ai-marketing-designer/internal/report"
)

// StudioOptions tunes a Studio.
type StudioOptions struct {
	// RenderConcurrency caps parallel renders in RenderAll.
	RenderConcurrency int
	// ArchiveMethod is config.ArchiveDeflate or config.ArchiveZstd.
	ArchiveMethod string
}

// Studio runs the generation workflow against one Session. The session's
// own key takes precedence over the client's fallback credential.
type Studio struct {
	sess *Session
	gen  *generation.Client
	opts StudioOptions
}

// NewStudio binds sess to client.
func NewStudio(sess *Session, client *generation.Client, opts StudioOptions) *Studio {
	if opts.RenderConcurrency < 1 {
		opts.RenderConcurrency = config.DefaultRenderConcurrency
	}
	return &Studio{sess: sess, gen: client.WithCredentials(sess), opts: opts}
}

// Session returns the bound session.
func (st *Studio) Session() *Session {
	return st.sess
}

// Analyze runs phase 1 on the uploaded photo. A failure moves the session
// to StateError with the raw message.
func (st *Studio) Analyze(ctx context.Context) (*marketing.DirectorOutput, error) {
	s := st.sess
	s.mu.Lock()
	if s.photo == nil {
		s.mu.Unlock()
		return nil, ErrNoUpload
	}
	photo, name, brand := *s.photo, s.productName, s.brandContext
	epoch := s.analysisEpoch
	s.state = StateAnalyzing
	s.lastError = ""
	s.mu.Unlock()

	out, err := st.gen.Analyze(ctx, photo, name, brand)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analysisEpoch != epoch {
		log.Info().Str("session", s.ID).Msg("Discarding superseded analysis")
		return nil, ErrSuperseded
	}
	if err != nil {
		s.state = StateError
		s.lastError = err.Error()
		return nil, err
	}
	s.analysis = out
	s.selected = 0
	s.dropPlanLocked()
	s.state = StateResults
	s.touch()

	log.Info().
		Str("session", s.ID).
		Int("routes", len(out.MarketingRoutes)).
		Msg("Analysis stored")
	return out, nil
}

// GeneratePlan runs phase 2 for the selected route. A failure keeps the
// analysis and returns the session to StateResults.
func (st *Studio) GeneratePlan(ctx context.Context) (*marketing.ContentPlan, error) {
	s := st.sess
	s.mu.Lock()
	if s.analysis == nil {
		s.mu.Unlock()
		return nil, ErrNoAnalysis
	}
	route, _ := s.analysis.Route(s.selected)
	analysis := s.analysis.ProductAnalysis
	refCopy := s.referenceCopy
	epoch := s.planEpoch
	s.state = StatePlanning
	s.lastError = ""
	s.mu.Unlock()

	plan, err := st.gen.Plan(ctx, route, analysis, refCopy)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.planEpoch != epoch || s.analysis == nil {
		if s.state == StatePlanning {
			s.state = StateResults
		}
		log.Info().Str("session", s.ID).Msg("Discarding superseded content plan")
		return nil, ErrSuperseded
	}
	if err != nil {
		s.state = StateResults
		s.lastError = err.Error()
		return nil, err
	}
	s.dropPlanLocked()
	s.plan = plan
	s.items = append([]marketing.ContentItem(nil), plan.Items...)
	s.state = StateSuiteReady
	s.touch()

	log.Info().
		Str("session", s.ID).
		Str("plan", plan.PlanName).
		Str("route", route.RouteName).
		Msg("Content plan stored")
	return plan, nil
}

// RenderItem renders one plan item from its current visual prompt and
// stores the image. A failure is recorded against that item only.
func (st *Studio) RenderItem(ctx context.Context, id string) (string, error) {
	s := st.sess
	s.mu.RLock()
	_, item, err := s.itemLocked(id)
	ref := s.reference
	epoch := s.planEpoch
	s.mu.RUnlock()
	if err != nil {
		return "", err
	}

	img, err := st.gen.Render(ctx, marketing.RenderRequest{
		Prompt:         item.VisualPrompt,
		AspectRatio:    marketing.AspectRatio(item.Ratio),
		ReferenceImage: ref,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.planEpoch != epoch {
		return "", ErrSuperseded
	}
	if err != nil {
		s.renderErrs[id] = err.Error()
		return "", err
	}
	s.images[id] = img
	delete(s.renderErrs, id)
	s.touch()
	return img, nil
}

// RenderAll renders every item that has no image yet (or every item when
// force is set), at most RenderConcurrency at a time. One item failing
// does not stop the others; the returned map holds each attempted item's
// outcome.
func (st *Studio) RenderAll(ctx context.Context, force bool) (map[string]error, error) {
	plan, err := st.sess.Plan()
	if err != nil {
		return nil, err
	}

	var todo []string
	for _, it := range plan.Items {
		if _, done := st.sess.Image(it.ID); done && !force {
			continue
		}
		todo = append(todo, it.ID)
	}

	errs := make([]error, len(todo))
	var g errgroup.Group
	g.SetLimit(st.opts.RenderConcurrency)
	for i, id := range todo {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			_, errs[i] = st.RenderItem(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]error, len(todo))
	failed := 0
	for i, id := range todo {
		results[id] = errs[i]
		if errs[i] != nil {
			failed++
		}
	}
	log.Info().
		Str("session", st.sess.ID).
		Int("attempted", len(todo)).
		Int("failed", failed).
		Int("concurrency", st.opts.RenderConcurrency).
		Msg("Batch render complete")
	return results, nil
}

// RenderConcept renders one of the selected route's phase-1 concept
// prompts. The result is returned, not stored.
func (st *Studio) RenderConcept(ctx context.Context, promptIndex int, ratio marketing.AspectRatio, reference string) (string, error) {
	analysis, err := st.sess.Analysis()
	if err != nil {
		return "", err
	}
	route, _ := analysis.Route(st.sess.SelectedRoute())
	if promptIndex < 0 || promptIndex >= len(route.ImagePrompts) {
		return "", fmt.Errorf("%w: %d (have %d)", ErrNoConcept, promptIndex, len(route.ImagePrompts))
	}
	return st.gen.Render(ctx, marketing.RenderRequest{
		Prompt:         route.ImagePrompts[promptIndex].PromptText,
		AspectRatio:    ratio,
		ReferenceImage: reference,
	})
}

// ExportArchive packages every rendered image under its derived filename.
func (st *Studio) ExportArchive(archiveName string) (*export.Archive, error) {
	plan, err := st.sess.Plan()
	if err != nil {
		return nil, err
	}
	p := export.Packager{Method: st.opts.ArchiveMethod}
	return p.Package(st.sess.Images(), plan.Items, archiveName)
}

// ExportReport compiles the text report from the session's current state.
func (st *Studio) ExportReport() (string, error) {
	s := st.sess
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.analysis == nil {
		return "", ErrNoAnalysis
	}
	var items []marketing.ContentItem
	if s.plan != nil {
		items = append(items, s.items...)
	}
	return report.CompileReport(s.analysis.ProductAnalysis, s.analysis.MarketingRoutes, s.selected, s.plan, items), nil
}

// IsSessionError reports whether err is a workflow precondition failure
// rather than a generation failure.
func IsSessionError(err error) bool {
	for _, target := range []error{ErrNoUpload, ErrNoAnalysis, ErrNoPlan, ErrUnknownItem, ErrNoRoute, ErrSuperseded} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
