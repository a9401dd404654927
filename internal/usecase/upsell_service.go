package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/udopaints/storefront-backend/internal/domain"
)

// sessionSweepInterval is how often expired per-session state is pruned.
const sessionSweepInterval = 10 * time.Minute

// UpsellServiceConfig holds configuration for the upsell service
type UpsellServiceConfig struct {
	MinConfidenceThreshold float64
	EnableDebugLogging     bool
	SessionTTL             time.Duration
}

// UpsellService computes, per shopper session, the presentation state of
// every upsell offer on a product page: visibility under the merchant's
// hide conditions, best-match variant, and display prices. The service's
// per-session state is the source of truth; storefront DOM content is a
// derived projection re-synced on every evaluation.
type UpsellService struct {
	matching   *MatchingService
	bridge     domain.EditorBridge
	dismissals domain.DismissalStore
	group      singleflight.Group

	mu     sync.Mutex
	states map[string]*sessionState // session id -> per-item states
	ttl    time.Duration
	done   chan struct{}
}

// sessionState holds one session's per-item states with expiration, so
// abandoned shopper sessions are reclaimed instead of accumulating.
type sessionState struct {
	items      map[string]*itemState
	expiration time.Time
}

// itemState is the shown/hidden state machine for one upsell item.
type itemState struct {
	hidden       bool
	savedDisplay string // non-"none" display mode captured at hide time
}

// NewUpsellService creates a new upsell service with dependencies
func NewUpsellService(
	bridge domain.EditorBridge,
	dismissals domain.DismissalStore,
	config UpsellServiceConfig,
) *UpsellService {
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}

	s := &UpsellService{
		matching: NewMatchingService(MatchConfig{
			MinConfidenceThreshold: config.MinConfidenceThreshold,
			EnableDebugLogging:     config.EnableDebugLogging,
		}),
		bridge:     bridge,
		dismissals: dismissals,
		states:     make(map[string]*sessionState),
		ttl:        config.SessionTTL,
		done:       make(chan struct{}),
	}

	go s.sweepExpired()

	return s
}

// UpsellItemInput is one upsell offer as the storefront currently renders it.
type UpsellItemInput struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	OptionNames []string         `json:"optionNames"`
	Variants    []domain.Variant `json:"variants"`
	DisplayMode string           `json:"displayMode"` // current CSS display value, e.g. "flex"
	Checked     bool             `json:"checked"`
}

// EvaluateRequest carries everything the storefront embeds for one page:
// main product data, the selected variant, the upsell offers, and the
// merchant's hide-condition string.
type EvaluateRequest struct {
	SessionID         string            `json:"-"`
	MainProduct       domain.Product    `json:"mainProduct"`
	SelectedVariantID int64             `json:"selectedVariantId"`
	Upsells           []UpsellItemInput `json:"upsells"`
	HideConditions    string            `json:"hideConditions"`
	SyncVariants      bool              `json:"syncVariants"`
	MoneyFormat       string            `json:"moneyFormat"`
	Currency          string            `json:"currency"`
}

// UpsellItemState is the next presentation state for one upsell offer.
type UpsellItemState struct {
	ID               string  `json:"id"`
	Visible          bool    `json:"visible"`
	SelectionCleared bool    `json:"selectionCleared"`
	DisplayMode      string  `json:"displayMode"`
	VariantID        int64   `json:"variantId,omitempty"`
	VariantTitle     string  `json:"variantTitle,omitempty"`
	Price            string  `json:"price,omitempty"`
	CompareAtPrice   string  `json:"compareAtPrice,omitempty"`
	MatchScore       float64 `json:"matchScore"`
}

// UpsellEvaluation is the full recomputation result for a session.
type UpsellEvaluation struct {
	Items        []UpsellItemState `json:"items"`
	WidgetHidden bool              `json:"widgetHidden"`
	EditorReady  bool              `json:"editorReady"`
}

// Evaluate recomputes the per-upsell presentation states for a session.
// Recomputation is serialized per session: an editor state change arriving
// while a recompute is in flight shares that flight's result instead of
// stacking a second recompute.
func (s *UpsellService) Evaluate(ctx context.Context, req *EvaluateRequest) (*UpsellEvaluation, error) {
	if req == nil || req.SessionID == "" {
		return nil, domain.ErrInvalidRequest
	}

	v, err, _ := s.group.Do(req.SessionID, func() (interface{}, error) {
		return s.evaluate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*UpsellEvaluation), nil
}

func (s *UpsellService) evaluate(ctx context.Context, req *EvaluateRequest) (*UpsellEvaluation, error) {
	conditions := ParseHideConditions(req.HideConditions)
	selected := MapSelectedOptions(req.SelectedVariantID, req.MainProduct.Options, req.MainProduct.Variants)

	// Bridge not ready is a hide trigger, never an error: upsell features
	// silently disable themselves when the editor is unreachable.
	editorReady := true
	if s.bridge != nil {
		editorReady = s.bridge.IsReadyToExport(ctx).Success
	}

	dismissed := s.dismissedSet(ctx, req.SessionID)

	eval := &UpsellEvaluation{
		Items:       make([]UpsellItemState, 0, len(req.Upsells)),
		EditorReady: editorReady,
	}

	hiddenCount := 0
	for i := range req.Upsells {
		item := &req.Upsells[i]

		hidden := !editorReady || dismissed[item.ID]
		if !hidden {
			for _, cond := range conditions {
				if conditionHides(cond, selected, item.Name) {
					hidden = true
					break
				}
			}
		}

		state := s.transition(req.SessionID, item, hidden)
		if hidden {
			hiddenCount++
		}

		s.syncPrice(ctx, req, selected, item, &state)
		eval.Items = append(eval.Items, state)
	}

	eval.WidgetHidden = len(eval.Items) > 0 && hiddenCount == len(eval.Items)
	return eval, nil
}

// transition advances the shown/hidden state machine for one item and
// returns its next presentation state. Hiding clears the item's selection
// so a hidden item can never remain selected in submitted form data;
// showing restores the display mode captured at hide time rather than
// forcing "block".
func (s *UpsellService) transition(sessionID string, item *UpsellItemInput, hidden bool) UpsellItemState {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.states[sessionID]
	if session == nil || time.Now().After(session.expiration) {
		session = &sessionState{items: make(map[string]*itemState)}
		s.states[sessionID] = session
	}
	session.expiration = time.Now().Add(s.ttl)

	st := session.items[item.ID]
	if st == nil {
		st = &itemState{}
		session.items[item.ID] = st
	}

	out := UpsellItemState{ID: item.ID}

	if hidden {
		if !st.hidden && item.DisplayMode != "" && item.DisplayMode != "none" {
			st.savedDisplay = item.DisplayMode
		}
		st.hidden = true
		out.Visible = false
		out.DisplayMode = "none"
		out.SelectionCleared = item.Checked
		return out
	}

	st.hidden = false
	out.Visible = true
	switch {
	case st.savedDisplay != "":
		out.DisplayMode = st.savedDisplay
		// Consumed; the next hide captures whatever mode the storefront
		// renders by then, not this stale one.
		st.savedDisplay = ""
	case item.DisplayMode != "" && item.DisplayMode != "none":
		out.DisplayMode = item.DisplayMode
	default:
		out.DisplayMode = "block"
	}
	return out
}

// syncPrice fills in the best-match variant and its display prices. The
// compare-at price is only rendered when strictly greater than the price.
func (s *UpsellService) syncPrice(ctx context.Context, req *EvaluateRequest, selected map[string]string, item *UpsellItemInput, out *UpsellItemState) {
	if len(item.Variants) == 0 {
		return
	}

	variant := &item.Variants[0]
	if req.SyncVariants {
		upsell := &domain.UpsellProduct{
			ID:          item.ID,
			Name:        item.Name,
			OptionNames: item.OptionNames,
			Variants:    item.Variants,
		}
		match, err := s.matching.BestMatch(ctx, upsell, selected)
		if err != nil {
			log.Printf("[UPSELL] match failed for %q: %v", item.Name, err)
			return
		}
		variant = match.Variant
		out.MatchScore = match.Score
	}

	out.VariantID = variant.ID
	out.VariantTitle = variant.Title
	out.Price = domain.FormatCents(variant.Price, req.MoneyFormat, req.Currency)
	if variant.CompareAtPrice > variant.Price {
		out.CompareAtPrice = domain.FormatCents(variant.CompareAtPrice, req.MoneyFormat, req.Currency)
	}
}

// dismissedSet loads the session's dismissed upsell ids. Store errors
// degrade to an empty set.
func (s *UpsellService) dismissedSet(ctx context.Context, sessionID string) map[string]bool {
	set := make(map[string]bool)
	if s.dismissals == nil {
		return set
	}
	ids, err := s.dismissals.Dismissed(ctx, sessionID)
	if err != nil {
		log.Printf("[UPSELL] reading dismissals for session %s: %v", sessionID, err)
		return set
	}
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Dismiss records a shopper dismissing an upsell from the cart widget.
func (s *UpsellService) Dismiss(ctx context.Context, sessionID, productID string) error {
	if sessionID == "" || productID == "" {
		return domain.ErrInvalidRequest
	}
	if s.dismissals == nil {
		return nil
	}
	return s.dismissals.Dismiss(ctx, sessionID, productID)
}

// Dismissed returns the session's dismissed upsell ids.
func (s *UpsellService) Dismissed(ctx context.Context, sessionID string) ([]string, error) {
	if sessionID == "" {
		return nil, domain.ErrInvalidRequest
	}
	if s.dismissals == nil {
		return nil, nil
	}
	return s.dismissals.Dismissed(ctx, sessionID)
}

// Reset drops all per-session presentation state, e.g. when the shopper's
// cart session ends.
func (s *UpsellService) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
}

// Close stops the expiry sweeper.
func (s *UpsellService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// sweepExpired removes expired session states periodically.
func (s *UpsellService) sweepExpired() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.pruneExpired(time.Now())
		}
	}
}

func (s *UpsellService) pruneExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.states {
		if now.After(session.expiration) {
			delete(s.states, id)
		}
	}
}
