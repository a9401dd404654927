package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/udopaints/storefront-backend/internal/domain"
)

// Client posts line items to the Shopify cart API on behalf of the
// storefront's add-to-cart flow.
type Client struct {
	httpClient  *http.Client
	cartAddURL  string
	sectionIDs  []string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new cart API client. sectionIDs name the theme
// sections the cart API should render back with each response.
func NewClient(cartAddURL string, sectionIDs []string) *Client {
	// The cart endpoint is shopper-facing; keep the proxy well under
	// Shopify's storefront limits.
	limiter := rate.NewLimiter(rate.Limit(4), 8)

	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cartAddURL:  cartAddURL,
		sectionIDs:  sectionIDs,
		rateLimiter: limiter,
	}
}

// SetDebug enables request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the wait before the next retry attempt.
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500<<(attempt-1)) * time.Millisecond
}

// AddItems posts {items:[...]} to the cart-add endpoint. Transient
// failures (network errors, 5xx) are retried up to 3 times with backoff;
// 4xx responses decode the cart API's {status, message} error shape into a
// *domain.CartError and are not retried.
func (c *Client) AddItems(ctx context.Context, req *domain.CartAddRequest) (*domain.CartAddResponse, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	if req.Sections == "" && len(c.sectionIDs) > 0 {
		req.Sections = strings.Join(c.sectionIDs, ",")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart request: %w", err)
	}

	if c.debug {
		log.Printf("[CART] POST %s %s", c.cartAddURL, payload)
	}

	const maxAttempts = 3

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, payload)
		if err != nil {
			log.Printf("[CART] request error (attempt %d): %v", attempt, err)
			lastErr = err
			// No backoff after the final attempt.
			if attempt < maxAttempts && !sleepCtx(ctx, exponentialBackoff(attempt)) {
				return nil, ctx.Err()
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			var added domain.CartAddResponse
			if err := json.Unmarshal(body, &added); err != nil {
				return nil, fmt.Errorf("failed to decode cart response: %w", err)
			}
			if c.debug {
				log.Printf("[CART] added %d items", len(added.Items))
			}
			return &added, nil

		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Shopper-correctable: sold out, bad variant id, etc.
			cartErr := &domain.CartError{Status: resp.StatusCode}
			if err := json.Unmarshal(body, cartErr); err != nil || cartErr.Message == "" {
				cartErr.Message = http.StatusText(resp.StatusCode)
			}
			cartErr.Status = resp.StatusCode
			return nil, cartErr

		default:
			log.Printf("[CART] API error (attempt %d) - status %d, body: %s", attempt, resp.StatusCode, body)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrCartAPIFailure, resp.StatusCode)
			if attempt < maxAttempts && !sleepCtx(ctx, exponentialBackoff(attempt)) {
				return nil, ctx.Err()
			}
		}
	}

	return nil, lastErr
}

// doRequest executes a single POST with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cartAddURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "UdoPaintsStorefront/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCartAPIFailure, err)
	}
	return resp, nil
}

// sleepCtx sleeps for d unless ctx ends first; reports whether it slept fully.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
