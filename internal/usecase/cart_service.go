package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/udopaints/storefront-backend/internal/domain"
)

// UpsellFieldPrefix is the reserved prefix for hidden form fields carrying
// upsell selections alongside the main add-to-cart submission.
const UpsellFieldPrefix = "upsell-variant-"

// mainProductProperty is the line-item property attached to every extracted
// upsell item, carrying the main product's title.
const mainProductProperty = "Main product"

// UpsellSelection is one upsell checkbox as the storefront reports it.
type UpsellSelection struct {
	VariantID   int64  `json:"variantId"`
	VariantName string `json:"variantName"`
	Checked     bool   `json:"checked"`
	Visible     bool   `json:"visible"`
}

// AddToCartRequest is a main-product add-to-cart submission together with
// the raw form fields, which may carry reserved-prefix upsell entries.
type AddToCartRequest struct {
	SessionID string            `json:"-"`
	MainTitle string            `json:"mainTitle"`
	MainItem  domain.CartItem   `json:"mainItem"`
	Fields    map[string]string `json:"fields"`
}

// CartService owns the upsell side of add-to-cart: injecting and stripping
// reserved-prefix fields, splitting upsell selections into their own line
// items, and resetting selections on cart-wide updates.
type CartService struct {
	client domain.CartClient
	bridge domain.EditorBridge

	mu         sync.Mutex
	selections map[string]*selectionEntry // session id -> injected fields
	ttl        time.Duration
	done       chan struct{}
}

// selectionEntry holds one session's injected fields with expiration.
type selectionEntry struct {
	fields     map[string]string
	expiration time.Time
}

// NewCartService creates a new cart service with dependencies. Recorded
// selections for sessions idle longer than sessionTTL are reclaimed.
func NewCartService(client domain.CartClient, bridge domain.EditorBridge, sessionTTL time.Duration) *CartService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	s := &CartService{
		client:     client,
		bridge:     bridge,
		selections: make(map[string]*selectionEntry),
		ttl:        sessionTTL,
		done:       make(chan struct{}),
	}

	go s.sweepExpired()

	return s
}

// BuildUpsellFields produces the hidden form fields for the currently
// checked-and-visible upsell selections, one field per selection named
// UpsellFieldPrefix + variant id with the variant's name as value.
// The field set is always rebuilt from scratch so stale entries from a
// previous selection state never survive.
func BuildUpsellFields(selections []UpsellSelection) map[string]string {
	fields := make(map[string]string)
	for _, sel := range selections {
		if !sel.Checked || !sel.Visible || sel.VariantID == 0 {
			continue
		}
		fields[fmt.Sprintf("%s%d", UpsellFieldPrefix, sel.VariantID)] = sel.VariantName
	}
	return fields
}

// ExtractUpsellItems scans form fields for the reserved prefix, turns each
// prefixed field into its own cart line item (quantity 1, carrying the main
// product's title as a line-item property), and returns the remaining
// fields with the prefixed entries stripped. Fields whose suffix is not a
// variant id are logged and dropped.
func ExtractUpsellItems(fields map[string]string, mainTitle string) ([]domain.CartItem, map[string]string) {
	var items []domain.CartItem
	rest := make(map[string]string, len(fields))

	for name, value := range fields {
		if !strings.HasPrefix(name, UpsellFieldPrefix) {
			rest[name] = value
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(name, UpsellFieldPrefix), 10, 64)
		if err != nil {
			log.Printf("[CART] dropping upsell field with bad variant id: %q", name)
			continue
		}
		items = append(items, domain.CartItem{
			ID:       id,
			Quantity: 1,
			Properties: map[string]string{
				mainProductProperty: mainTitle,
			},
		})
	}

	// Map iteration order is random; keep line items stable.
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items, rest
}

// RecordSelections stores the injected fields for a session so a later
// cart-wide update can remove them.
func (s *CartService) RecordSelections(sessionID string, fields map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[sessionID] = &selectionEntry{
		fields:     fields,
		expiration: time.Now().Add(s.ttl),
	}
}

// Selections returns the currently injected fields for a session.
func (s *CartService) Selections(sessionID string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.selections[sessionID]
	if e == nil || time.Now().After(e.expiration) {
		return map[string]string{}
	}

	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// ResetSelections handles a cart-wide update: all injected fields are
// removed so subsequent submissions cannot carry stale upsell selections.
func (s *CartService) ResetSelections(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selections, sessionID)
}

// Close stops the expiry sweeper.
func (s *CartService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// sweepExpired removes expired selection entries periodically.
func (s *CartService) sweepExpired() {
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

func (s *CartService) pruneExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.selections {
		if now.After(e.expiration) {
			delete(s.selections, id)
		}
	}
}

// AddToCart runs the full submission flow: consult the editor's
// pre-add-to-cart hook, split upsell fields into separate line items,
// post everything to the cart API, then fire the editor's post-add hook
// and clear the session's selections. Cart API errors are returned as
// *domain.CartError so the caller can surface status and message; the
// shopper's add-to-cart control is always re-enabled by the caller.
func (s *CartService) AddToCart(ctx context.Context, req *AddToCartRequest) (*domain.CartAddResponse, error) {
	if req == nil || req.MainItem.ID == 0 {
		return nil, domain.ErrInvalidRequest
	}

	main := req.MainItem
	if main.Quantity <= 0 {
		main.Quantity = 1
	}

	// The editor must agree before anything is added: its hook returns the
	// uploaded image URLs that become line-item properties.
	if s.bridge != nil {
		result := s.bridge.OnAddToCart(ctx)
		if !result.Success {
			return nil, fmt.Errorf("%w: %s", domain.ErrBridgeUnavailable, result.Error)
		}
		for i, url := range result.ImageURLs {
			if main.Properties == nil {
				main.Properties = make(map[string]string)
			}
			main.Properties[fmt.Sprintf("Custom image %d", i+1)] = url
		}
	}

	upsells, rest := ExtractUpsellItems(req.Fields, req.MainTitle)

	// Remaining non-reserved fields ride along as main line-item properties.
	for name, value := range rest {
		if name == "id" || name == "quantity" || value == "" {
			continue
		}
		if main.Properties == nil {
			main.Properties = make(map[string]string)
		}
		main.Properties[name] = value
	}

	payload := &domain.CartAddRequest{Items: append([]domain.CartItem{main}, upsells...)}

	resp, err := s.client.AddItems(ctx, payload)
	if err != nil {
		return nil, err
	}

	if s.bridge != nil {
		if result := s.bridge.AfterAddToCart(ctx); !result.Success {
			// Post-add notification failure never rolls back the cart.
			log.Printf("[CART] afterAddToCart hook failed: %s", result.Error)
		}
	}

	// A successful add is a cart-wide update.
	s.ResetSelections(req.SessionID)

	return resp, nil
}
