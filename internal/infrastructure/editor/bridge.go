package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/udopaints/storefront-backend/internal/domain"
)

// Bridge talks to the embedded personalization-editor service
// (UdoPaintsEditor). The editor appears at an unpredictable time after
// page embed, so readiness is resolved by a bounded poll and cached;
// every call is guarded so bridge failures degrade to a uniform
// {success:false, error} result instead of propagating.
type Bridge struct {
	httpClient   *http.Client
	baseURL      string
	pollInterval time.Duration
	pollAttempts int
	debug        bool

	readyOnce sync.Once
	readyCh   chan struct{}
	readyErr  error

	mu          sync.Mutex
	subscribers []func(state string)
	lastState   string
	watching    bool
	done        chan struct{}
}

// statusResponse is the editor's status endpoint shape.
type statusResponse struct {
	Ready bool   `json:"ready"`
	State string `json:"state,omitempty"`
}

// NewBridge creates a bridge for the editor service at baseURL.
func NewBridge(baseURL string, pollInterval time.Duration, pollAttempts int) *Bridge {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if pollAttempts <= 0 {
		pollAttempts = 10
	}

	return &Bridge{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:      baseURL,
		pollInterval: pollInterval,
		pollAttempts: pollAttempts,
		readyCh:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// SetDebug enables poll and call logging
func (b *Bridge) SetDebug(debug bool) {
	b.debug = debug
}

// WaitReady blocks until the editor responds ready, the bounded poll is
// exhausted (ErrBridgeUnavailable), or ctx ends. The poll runs once with
// its own detached context; ctx only bounds this caller's wait, so one
// caller disconnecting cannot poison the cached outcome for everyone else.
func (b *Bridge) WaitReady(ctx context.Context) error {
	b.readyOnce.Do(func() {
		go b.resolveReadiness()
	})

	select {
	case <-b.readyCh:
		return b.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resolveReadiness runs the bounded poll under a budget derived from the
// poll settings. The only outcomes it caches are nil and
// ErrBridgeUnavailable.
func (b *Bridge) resolveReadiness() {
	budget := time.Duration(b.pollAttempts) * (b.pollInterval + b.httpClient.Timeout)
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	if err := b.pollUntilReady(ctx); err != nil {
		b.readyErr = domain.ErrBridgeUnavailable
	}
	close(b.readyCh)
	if b.readyErr == nil {
		go b.watchState()
	}
}

func (b *Bridge) pollUntilReady(ctx context.Context) error {
	for attempt := 1; attempt <= b.pollAttempts; attempt++ {
		status, err := b.fetchStatus(ctx)
		if err == nil && status.Ready {
			if b.debug {
				log.Printf("[EDITOR] ready after %d attempt(s)", attempt)
			}
			b.setState(status.State)
			return nil
		}
		if b.debug {
			log.Printf("[EDITOR] not ready (attempt %d/%d): %v", attempt, b.pollAttempts, err)
		}

		timer := time.NewTimer(b.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return domain.ErrBridgeUnavailable
}

func (b *Bridge) fetchStatus(ctx context.Context) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("editor status returned %d", resp.StatusCode)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

// IsReadyToExport reports whether the editor will allow checkout.
func (b *Bridge) IsReadyToExport(ctx context.Context) domain.BridgeResult {
	return b.call(ctx, "/api/is-ready-to-export")
}

// OnAddToCart runs the editor's pre-add-to-cart hook; on success the
// result carries the image URLs to attach as line-item properties.
func (b *Bridge) OnAddToCart(ctx context.Context) domain.BridgeResult {
	return b.call(ctx, "/api/on-add-to-cart")
}

// AfterAddToCart notifies the editor that the add-to-cart completed.
func (b *Bridge) AfterAddToCart(ctx context.Context) domain.BridgeResult {
	return b.call(ctx, "/api/after-add-to-cart")
}

// UploadImage triggers the editor's upload flow.
func (b *Bridge) UploadImage(ctx context.Context) domain.BridgeResult {
	return b.call(ctx, "/api/upload-image")
}

// call is the shared guard around every editor method: readiness first,
// then a POST whose failure of any kind becomes a uniform failed result.
func (b *Bridge) call(ctx context.Context, path string) domain.BridgeResult {
	if err := b.WaitReady(ctx); err != nil {
		return domain.BridgeResult{Success: false, Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, nil)
	if err != nil {
		return domain.BridgeResult{Success: false, Error: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return domain.BridgeResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.BridgeResult{
			Success: false,
			Error:   fmt.Sprintf("editor returned %d", resp.StatusCode),
		}
	}

	var result domain.BridgeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.BridgeResult{Success: false, Error: err.Error()}
	}
	return result
}

// OnStateChange subscribes fn to editor state tags ("editor:*",
// "upload-state:*"). fn is invoked from the watcher goroutine and may
// overlap with request handling; consumers are expected to serialize
// their own recomputation.
func (b *Bridge) OnStateChange(fn func(state string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// LastState returns the most recent state tag seen from the editor.
func (b *Bridge) LastState() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastState
}

// watchState polls the editor status endpoint and notifies subscribers
// whenever the state tag changes. Runs once, started on first readiness.
func (b *Bridge) watchState() {
	b.mu.Lock()
	if b.watching {
		b.mu.Unlock()
		return
	}
	b.watching = true
	b.mu.Unlock()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), b.pollInterval*4)
			status, err := b.fetchStatus(ctx)
			cancel()
			if err != nil {
				continue
			}
			b.setState(status.State)
		}
	}
}

// setState records a state tag and fans it out to subscribers when changed.
func (b *Bridge) setState(state string) {
	if state == "" {
		return
	}

	b.mu.Lock()
	if state == b.lastState {
		b.mu.Unlock()
		return
	}
	b.lastState = state
	subscribers := make([]func(string), len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.mu.Unlock()

	if b.debug {
		log.Printf("[EDITOR] state change: %s", state)
	}
	for _, fn := range subscribers {
		fn(state)
	}
}

// Close stops the state watcher.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.done:
	default:
		close(b.done)
	}
}
