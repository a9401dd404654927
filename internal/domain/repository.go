package domain

import "context"

// CartClient defines the interface for posting line items to the cart API.
type CartClient interface {
	AddItems(ctx context.Context, req *CartAddRequest) (*CartAddResponse, error)
}

// BridgeResult is the uniform outcome of every editor-bridge call.
// Bridge unavailability and thrown errors resolve to Success=false
// rather than propagating, so callers can always degrade safely.
type BridgeResult struct {
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
	ImageURLs []string `json:"imageUrls,omitempty"`
}

// EditorBridge is the capability exposed by the embedded personalization
// editor. The concrete implementation resolves readiness once and caches
// it; callers never observe a panic from the external service.
type EditorBridge interface {
	// WaitReady blocks until the editor service is reachable or the
	// bounded poll gives up with ErrBridgeUnavailable.
	WaitReady(ctx context.Context) error

	// IsReadyToExport reports whether the editor will allow checkout.
	IsReadyToExport(ctx context.Context) BridgeResult

	// OnAddToCart runs the editor's pre-add-to-cart hook and returns the
	// image URLs to attach as line-item properties.
	OnAddToCart(ctx context.Context) BridgeResult

	// AfterAddToCart notifies the editor that the add-to-cart completed.
	AfterAddToCart(ctx context.Context) BridgeResult

	// UploadImage triggers the editor's upload flow.
	UploadImage(ctx context.Context) BridgeResult

	// OnStateChange subscribes fn to editor state tags
	// ("editor:*", "upload-state:*"). Callbacks may overlap.
	OnStateChange(fn func(state string))
}

// DismissalStore tracks, per shopper session, which upsell products have
// been dismissed from the cart-drawer widget.
type DismissalStore interface {
	Dismiss(ctx context.Context, sessionID, productID string) error
	Dismissed(ctx context.Context, sessionID string) ([]string, error)
	IsDismissed(ctx context.Context, sessionID, productID string) (bool, error)
	Clear(ctx context.Context, sessionID string) error
}
