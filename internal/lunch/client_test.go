package lunch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/children/c1/lunches", r.URL.Path)

		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "BEAN_WITH_SALAD", req.Meal)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"o1","childId":"c1","meal":"BEAN_WITH_SALAD","quantity":2,
			"dayOfWeek":"MONDAY","unitPrice":3.8,"total":"7.60","status":"PAID"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", time.Second)
	order, err := client.CreateOrder(context.Background(), "c1", OrderRequest{Meal: "BEAN_WITH_SALAD", Quantity: 2, DayOfWeek: "MONDAY"})
	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("7.60")))
	assert.True(t, order.Paid())
}

func TestClientListIncludesDeleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("includeDeleted"))
		_, _ = w.Write([]byte(`[{"id":"o1","status":"PAID","total":"4.50"},{"id":"o2","status":"CANCELLED","total":"4.50","deleted":true}]`))
	}))
	defer srv.Close()

	orders, err := NewClient(srv.URL, time.Second).ListOrders(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.True(t, orders[1].Deleted)
}

func TestClientClassifiesStatusCodes(t *testing.T) {
	code := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "lunch not found", code)
	}))
	defer srv.Close()
	client := NewClient(srv.URL, time.Second)

	err := client.DeleteOrder(context.Background(), "c1", "o1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClientRejected))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.NotFound())
	assert.Equal(t, "lunch not found", se.Body)

	code = http.StatusBadGateway
	err = client.DeleteOrder(context.Background(), "c1", "o1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrClientRejected))
}

func TestClientHonoursTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 20*time.Millisecond).ListOrders(context.Background(), "c1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
