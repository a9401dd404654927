package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udopaints/storefront-backend/internal/domain"
)

func TestNewClient(t *testing.T) {
	client := NewClient("https://shop.example.com/cart/add.js", []string{"cart-drawer"})

	assert.NotNil(t, client)
	assert.Equal(t, "https://shop.example.com/cart/add.js", client.cartAddURL)
	assert.Equal(t, []string{"cart-drawer"}, client.sectionIDs)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestSetDebug(t *testing.T) {
	client := NewClient("https://shop.example.com/cart/add.js", nil)

	assert.False(t, client.debug)

	client.SetDebug(true)
	assert.True(t, client.debug)

	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAddItems_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req domain.CartAddRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 2)
		assert.Equal(t, int64(100), req.Items[0].ID)
		assert.Equal(t, "cart-drawer,cart-icon-bubble", req.Sections)

		response := domain.CartAddResponse{
			Items: []domain.CartLine{
				{VariantID: 100, Quantity: 1, Title: "Custom Pet Portrait"},
				{VariantID: 200, Quantity: 1, Title: "Gift Wrap - Large"},
			},
			Sections: map[string]string{"cart-drawer": "<div></div>"},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := NewClient(server.URL, []string{"cart-drawer", "cart-icon-bubble"})
	ctx := context.Background()

	resp, err := client.AddItems(ctx, &domain.CartAddRequest{
		Items: []domain.CartItem{
			{ID: 100, Quantity: 1},
			{ID: 200, Quantity: 1},
		},
	})

	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, int64(200), resp.Items[1].VariantID)
	assert.Contains(t, resp.Sections, "cart-drawer")
}

func TestAddItems_CartError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      422,
			"message":     "Cart Error",
			"description": "All 1 Gift Wrap - Large are in your cart.",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	_, err := client.AddItems(context.Background(), &domain.CartAddRequest{
		Items: []domain.CartItem{{ID: 200, Quantity: 1}},
	})

	var cartErr *domain.CartError
	require.ErrorAs(t, err, &cartErr)
	assert.Equal(t, 422, cartErr.Status)
	assert.Equal(t, "Cart Error", cartErr.Message)
	assert.Contains(t, cartErr.Description, "Gift Wrap")
}

func TestAddItems_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.CartAddResponse{
			Items: []domain.CartLine{{VariantID: 100, Quantity: 1}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	resp, err := client.AddItems(context.Background(), &domain.CartAddRequest{
		Items: []domain.CartItem{{ID: 100, Quantity: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Len(t, resp.Items, 1)
}

func TestAddItems_AllRetriesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	start := time.Now()
	_, err := client.AddItems(context.Background(), &domain.CartAddRequest{
		Items: []domain.CartItem{{ID: 100, Quantity: 1}},
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCartAPIFailure)

	// Backoff is only taken between attempts (500ms + 1s); backing off
	// after the final attempt would push this past 3.5s.
	assert.Less(t, elapsed, 3*time.Second)
}

func TestAddItems_InvalidRequest(t *testing.T) {
	client := NewClient("https://shop.example.com/cart/add.js", nil)

	_, err := client.AddItems(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = client.AddItems(context.Background(), &domain.CartAddRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
