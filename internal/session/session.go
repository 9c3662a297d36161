// Package session holds the explicit per-user workflow context: the API key
// the user supplied, the uploaded photo, phase-1 and phase-2 results, the
// user's edits, and the rendered-image map.
//
// A Session is safe for concurrent use. Results of a generation call are
// committed only if nothing invalidated them while the call was in flight
// (re-upload, route change, reset); stale results are dropped.
package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fpang/ai-marketing-designer/internal/auth"
	"github.com/fpang/ai-marketing-designer/internal/marketing"
)

// Sentinel errors.
var (
	ErrNoUpload    = errors.New("no product photo uploaded")
	ErrNoAnalysis  = errors.New("no strategy analysis available")
	ErrNoPlan      = errors.New("no content plan available")
	ErrUnknownItem = errors.New("unknown content item")
	ErrNoRoute     = errors.New("route index out of range")
	ErrNoConcept   = errors.New("concept prompt index out of range")
	ErrSuperseded  = errors.New("result discarded: session changed while the request was in flight")
)

// State is the workflow position of a session.
type State string

const (
	StateIdle       State = "idle"
	StateAnalyzing  State = "analyzing"
	StateResults    State = "results"
	StatePlanning   State = "planning"
	StateSuiteReady State = "suite_ready"
	StateError      State = "error"
)

// Session is one user's workspace.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu            sync.RWMutex
	apiKey        string
	state         State
	lastError     string
	photo         *marketing.ImageInput
	productName   string
	brandContext  string
	referenceCopy string
	reference     string // data URL applied to every item render
	analysis      *marketing.DirectorOutput
	selected      int
	plan          *marketing.ContentPlan
	items         []marketing.ContentItem
	images        map[string]string
	renderErrs    map[string]string
	touched       time.Time

	// analysisEpoch changes whenever phase-1 inputs change; planEpoch
	// whenever the plan (and so the image map) is invalidated.
	analysisEpoch uint64
	planEpoch     uint64
}

var _ auth.Source = (*Session)(nil)

// New creates an idle session with a random ID.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		touched:    now,
		state:      StateIdle,
		images:     make(map[string]string),
		renderErrs: make(map[string]string),
	}
}

// Name implements auth.Source.
func (s *Session) Name() string { return "session" }

// APIKey implements auth.Source. An empty key with a nil error means the
// user has not supplied one.
func (s *Session) APIKey(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey, nil
}

// SetAPIKey stores the user's key for this session.
func (s *Session) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
	s.touch()
}

// HasAPIKey reports whether a session key is set.
func (s *Session) HasAPIKey() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey != ""
}

// State returns the current state and the last error message, if any.
func (s *Session) State() (State, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.lastError
}

// SetUpload replaces the product photo and phase-1 inputs. Any analysis,
// plan, and rendered images are discarded.
func (s *Session) SetUpload(photo marketing.ImageInput, productName, brandContext string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photo = &photo
	s.productName = productName
	s.brandContext = brandContext
	s.analysis = nil
	s.selected = 0
	s.analysisEpoch++
	s.dropPlanLocked()
	s.state = StateIdle
	s.lastError = ""
	s.touch()
}

// SetReferenceCopy sets the optional competitor/reference copy used by
// phase 2.
func (s *Session) SetReferenceCopy(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.referenceCopy = text
	s.touch()
}

// SetReferenceImage sets (or with "" clears) the data URL passed as
// reference to every item render.
func (s *Session) SetReferenceImage(dataURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reference = dataURL
	s.touch()
}

// SelectRoute picks the phase-1 route that phase 2 expands. Changing the
// selection discards the plan and its images.
func (s *Session) SelectRoute(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analysis == nil {
		return ErrNoAnalysis
	}
	if _, ok := s.analysis.Route(i); !ok {
		return fmt.Errorf("%w: %d (have %d)", ErrNoRoute, i, len(s.analysis.MarketingRoutes))
	}
	if i != s.selected {
		s.selected = i
		s.dropPlanLocked()
		if s.state == StateSuiteReady {
			s.state = StateResults
		}
	}
	s.touch()
	return nil
}

// SelectedRoute returns the selected route index.
func (s *Session) SelectedRoute() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Analysis returns the phase-1 result.
func (s *Session) Analysis() (*marketing.DirectorOutput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.analysis == nil {
		return nil, ErrNoAnalysis
	}
	return s.analysis, nil
}

// Plan returns the phase-2 plan with the user's current item edits applied.
func (s *Session) Plan() (*marketing.ContentPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.plan == nil {
		return nil, ErrNoPlan
	}
	return &marketing.ContentPlan{
		PlanName: s.plan.PlanName,
		Items:    append([]marketing.ContentItem(nil), s.items...),
	}, nil
}

// Item returns the current (possibly edited) content item.
func (s *Session) Item(id string) (marketing.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, it, err := s.itemLocked(id)
	return it, err
}

// UpdateItem applies a user edit. Each field is last-write-wins; identity
// fields cannot change.
func (s *Session) UpdateItem(id string, patch marketing.ItemPatch) (marketing.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, it, err := s.itemLocked(id)
	if err != nil {
		return marketing.ContentItem{}, err
	}
	s.items[i] = patch.Apply(it)
	s.touch()
	return s.items[i], nil
}

// PutImage records a rendered image for a plan item.
func (s *Session) PutImage(id, dataURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.itemLocked(id); err != nil {
		return err
	}
	s.images[id] = dataURL
	delete(s.renderErrs, id)
	s.touch()
	return nil
}

// Image returns the rendered image for an item.
func (s *Session) Image(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[id]
	return img, ok
}

// Images returns a copy of the rendered-image map.
func (s *Session) Images() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.images)
}

// ClearImage removes the rendered image and last render error of one item.
func (s *Session) ClearImage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.itemLocked(id); err != nil {
		return err
	}
	delete(s.images, id)
	delete(s.renderErrs, id)
	return nil
}

// ClearImages removes every rendered image.
func (s *Session) ClearImages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.images)
	clear(s.renderErrs)
}

// RenderErrors returns the last render failure message per item.
func (s *Session) RenderErrors() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.renderErrs)
}

// Reset drops everything, including the API key.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = ""
	s.photo = nil
	s.productName, s.brandContext, s.referenceCopy, s.reference = "", "", "", ""
	s.analysis = nil
	s.selected = 0
	s.analysisEpoch++
	s.dropPlanLocked()
	s.state = StateIdle
	s.lastError = ""
	s.touch()
}

// View is a JSON-friendly snapshot of a session.
type View struct {
	ID            string                    `json:"id"`
	State         State                     `json:"state"`
	Error         string                    `json:"error,omitempty"`
	HasAPIKey     bool                      `json:"hasApiKey"`
	HasPhoto      bool                      `json:"hasPhoto"`
	ProductName   string                    `json:"productName,omitempty"`
	BrandContext  string                    `json:"brandContext,omitempty"`
	ReferenceCopy string                    `json:"referenceCopy,omitempty"`
	Analysis      *marketing.DirectorOutput `json:"analysis,omitempty"`
	SelectedRoute int                       `json:"selectedRoute"`
	Plan          *marketing.ContentPlan    `json:"plan,omitempty"`
	Rendered      []string                  `json:"rendered"`
	RenderErrors  map[string]string         `json:"renderErrors,omitempty"`
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{
		ID:            s.ID,
		State:         s.state,
		Error:         s.lastError,
		HasAPIKey:     s.apiKey != "",
		HasPhoto:      s.photo != nil,
		ProductName:   s.productName,
		BrandContext:  s.brandContext,
		ReferenceCopy: s.referenceCopy,
		Analysis:      s.analysis,
		SelectedRoute: s.selected,
		Rendered:      make([]string, 0, len(s.images)),
	}
	if s.plan != nil {
		v.Plan = &marketing.ContentPlan{
			PlanName: s.plan.PlanName,
			Items:    append([]marketing.ContentItem(nil), s.items...),
		}
	}
	for id := range s.images {
		v.Rendered = append(v.Rendered, id)
	}
	sort.Strings(v.Rendered)
	if len(s.renderErrs) > 0 {
		v.RenderErrors = maps.Clone(s.renderErrs)
	}
	return v
}

// lastTouched reports the last mutation time.
func (s *Session) lastTouched() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touched
}

func (s *Session) touch() {
	s.touched = time.Now()
}

func (s *Session) dropPlanLocked() {
	s.plan = nil
	s.items = nil
	s.planEpoch++
	clear(s.images)
	clear(s.renderErrs)
}

func (s *Session) itemLocked(id string) (int, marketing.ContentItem, error) {
	if s.plan == nil {
		return -1, marketing.ContentItem{}, ErrNoPlan
	}
	for i, it := range s.items {
		if it.ID == id {
			return i, it, nil
		}
	}
	return -1, marketing.ContentItem{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
}
