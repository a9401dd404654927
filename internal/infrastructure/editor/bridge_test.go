package editor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udopaints/storefront-backend/internal/domain"
)

// editorStub simulates the editor service becoming ready after a number
// of status polls.
type editorStub struct {
	readyAfter int32
	polls      int32
	state      atomic.Value
	exportOK   bool
	imageURLs  []string
}

func (s *editorStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		polls := atomic.AddInt32(&s.polls, 1)
		ready := polls >= s.readyAfter
		state, _ := s.state.Load().(string)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ready": ready,
			"state": state,
		})
	})
	mux.HandleFunc("/api/is-ready-to-export", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.BridgeResult{Success: s.exportOK})
	})
	mux.HandleFunc("/api/on-add-to-cart", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.BridgeResult{Success: true, ImageURLs: s.imageURLs})
	})
	mux.HandleFunc("/api/after-add-to-cart", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.BridgeResult{Success: true})
	})
	mux.HandleFunc("/api/upload-image", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.BridgeResult{Success: true})
	})
	return mux
}

func TestWaitReady_BecomesReady(t *testing.T) {
	stub := &editorStub{readyAfter: 3, exportOK: true}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	bridge := NewBridge(server.URL, 10*time.Millisecond, 5)
	defer bridge.Close()

	err := bridge.WaitReady(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&stub.polls), int32(3))
}

func TestWaitReady_AttemptsExhausted(t *testing.T) {
	stub := &editorStub{readyAfter: 100}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	bridge := NewBridge(server.URL, 5*time.Millisecond, 3)
	defer bridge.Close()

	err := bridge.WaitReady(context.Background())
	assert.ErrorIs(t, err, domain.ErrBridgeUnavailable)

	// The outcome is cached; a second wait must not poll again.
	polls := atomic.LoadInt32(&stub.polls)
	err = bridge.WaitReady(context.Background())
	assert.ErrorIs(t, err, domain.ErrBridgeUnavailable)
	assert.Equal(t, polls, atomic.LoadInt32(&stub.polls))
}

func TestWaitReady_CancelledCallerDoesNotPoisonOutcome(t *testing.T) {
	stub := &editorStub{readyAfter: 1, exportOK: true}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	bridge := NewBridge(server.URL, 10*time.Millisecond, 5)
	defer bridge.Close()

	// First caller disconnects before the poll resolves. Only their own
	// wait fails; the readiness poll keeps running detached.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err := bridge.WaitReady(cancelled)
	assert.ErrorIs(t, err, context.Canceled)

	// A later shopper sees a healthy editor, not the first caller's error.
	require.NoError(t, bridge.WaitReady(context.Background()))
	result := bridge.IsReadyToExport(context.Background())
	assert.True(t, result.Success)
}

func TestGuardedCalls_BridgeDown(t *testing.T) {
	// No server at all: every wrapper resolves to a uniform failure
	// instead of an error or panic.
	bridge := NewBridge("http://127.0.0.1:1", time.Millisecond, 1)
	defer bridge.Close()
	ctx := context.Background()

	for _, result := range []domain.BridgeResult{
		bridge.IsReadyToExport(ctx),
		bridge.OnAddToCart(ctx),
		bridge.AfterAddToCart(ctx),
		bridge.UploadImage(ctx),
	} {
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)
	}
}

func TestOnAddToCart_ReturnsImageURLs(t *testing.T) {
	stub := &editorStub{
		readyAfter: 1,
		exportOK:   true,
		imageURLs:  []string{"https://cdn.example/custom-1.png", "https://cdn.example/custom-2.png"},
	}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	bridge := NewBridge(server.URL, 10*time.Millisecond, 3)
	defer bridge.Close()

	result := bridge.OnAddToCart(context.Background())
	require.True(t, result.Success)
	assert.Equal(t, stub.imageURLs, result.ImageURLs)
}

func TestOnStateChange_NotifiesOnChange(t *testing.T) {
	stub := &editorStub{readyAfter: 1, exportOK: true}
	stub.state.Store("editor:loading")
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	bridge := NewBridge(server.URL, 5*time.Millisecond, 3)
	defer bridge.Close()

	var mu sync.Mutex
	var seen []string
	bridge.OnStateChange(func(state string) {
		mu.Lock()
		seen = append(seen, state)
		mu.Unlock()
	})

	require.NoError(t, bridge.WaitReady(context.Background()))

	stub.state.Store("editor:ready")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, s := range seen {
			if s == "editor:ready" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	stub.state.Store("upload-state:uploading")
	require.Eventually(t, func() bool {
		return bridge.LastState() == "upload-state:uploading"
	}, time.Second, 5*time.Millisecond)
}
