package http

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/udopaints/storefront-backend/internal/domain"
	"github.com/udopaints/storefront-backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	upsells *usecase.UpsellService
	cart    *usecase.CartService
	bridge  domain.EditorBridge

	mu          sync.RWMutex
	editorState string
}

// NewHandler creates a new HTTP handler and subscribes to editor state
// changes so the status endpoint can report the last seen state tag.
func NewHandler(upsells *usecase.UpsellService, cart *usecase.CartService, bridge domain.EditorBridge) *Handler {
	h := &Handler{
		upsells: upsells,
		cart:    cart,
		bridge:  bridge,
	}

	if bridge != nil {
		bridge.OnStateChange(func(state string) {
			h.mu.Lock()
			h.editorState = state
			h.mu.Unlock()
		})
	}

	return h
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "udopaints-storefront-backend",
		"version": "1.0.0",
	})
}

// EvaluateUpsells recomputes the upsell presentation states for the
// shopper's session from the page data the storefront embeds.
func (h *Handler) EvaluateUpsells(c *gin.Context) {
	var req usecase.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.SessionID = sessionID(c)

	eval, err := h.upsells.Evaluate(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation failed"})
		return
	}

	c.JSON(http.StatusOK, eval)
}

// AddToCart proxies the add-to-cart submission: upsell form fields are
// split into separate line items before the cart API call. Cart API errors
// keep their status and message so the storefront can show them inline;
// the add-to-cart control is re-enabled by the storefront on any outcome.
func (h *Handler) AddToCart(c *gin.Context) {
	var req usecase.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.SessionID = sessionID(c)

	resp, err := h.cart.AddToCart(c.Request.Context(), &req)
	if err != nil {
		var cartErr *domain.CartError
		switch {
		case errors.As(err, &cartErr):
			c.JSON(cartErr.Status, gin.H{
				"status":      cartErr.Status,
				"message":     cartErr.Message,
				"description": cartErr.Description,
			})
		case errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrBridgeUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "cart request failed"})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ResetCart handles the cart-wide update event: all injected upsell fields
// and per-session presentation state are dropped.
func (h *Handler) ResetCart(c *gin.Context) {
	id := sessionID(c)
	h.cart.ResetSelections(id)
	h.upsells.Reset(id)
	c.Status(http.StatusNoContent)
}

// dismissRequest is the body of a cart-widget dismissal.
type dismissRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// DismissUpsell records that the shopper dismissed an upsell from the
// cart widget; the dismissal persists for the session.
func (h *Handler) DismissUpsell(c *gin.Context) {
	var req dismissRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}

	if err := h.upsells.Dismiss(c.Request.Context(), sessionID(c), req.ProductID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record dismissal"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ListDismissed returns the session's dismissed upsell product ids.
func (h *Handler) ListDismissed(c *gin.Context) {
	ids, err := h.upsells.Dismissed(c.Request.Context(), sessionID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read dismissals"})
		return
	}
	if ids == nil {
		ids = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"dismissed": ids})
}

// TriggerUpload runs the editor's upload flow. The result is the bridge's
// uniform shape; failures come back with success=false, never an error
// status, so the storefront can simply disable the affected control.
func (h *Handler) TriggerUpload(c *gin.Context) {
	if h.bridge == nil {
		c.JSON(http.StatusOK, domain.BridgeResult{Success: false, Error: domain.ErrBridgeUnavailable.Error()})
		return
	}
	c.JSON(http.StatusOK, h.bridge.UploadImage(c.Request.Context()))
}

// EditorStatus reports whether the personalization editor is reachable and
// ready, plus the last state tag it emitted. Bridge failures degrade to
// ready=false; this endpoint never errors.
func (h *Handler) EditorStatus(c *gin.Context) {
	ready := false
	if h.bridge != nil {
		ready = h.bridge.IsReadyToExport(c.Request.Context()).Success
	}

	h.mu.RLock()
	state := h.editorState
	h.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"ready": ready,
		"state": state,
	})
}
