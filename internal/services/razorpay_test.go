package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRazorpayCreateOrder(t *testing.T) {
	var received razorpayOrderPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_secret", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_123","amount":25000,"currency":"INR","receipt":"r1","status":"created"}`))
	}))
	defer server.Close()

	gateway := NewRazorpayGateway(server.URL+"/", "rzp_test_key", "rzp_secret")
	order, err := gateway.CreateOrder(context.Background(), GatewayOrderRequest{
		AmountMinorUnits: 25000,
		Currency:         "INR",
		Receipt:          "r1",
		Notes:            map[string]string{"userId": "u1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "order_123", order.ID)
	assert.EqualValues(t, 25000, order.Amount)
	assert.NotEmpty(t, order.Raw)
	assert.EqualValues(t, 25000, received.Amount)
	assert.Equal(t, "u1", received.Notes["userId"])
}

func TestRazorpayCreateOrderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer server.Close()

	gateway := NewRazorpayGateway(server.URL, "k", "s")
	_, err := gateway.CreateOrder(context.Background(), GatewayOrderRequest{AmountMinorUnits: 1, Currency: "INR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestRazorpaySignature(t *testing.T) {
	gateway := NewRazorpayGateway("http://unused", "k", "secret")
	sig := gateway.ComputeSignature("order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, gateway.ComputeSignature("order_1", "pay_1"))
	assert.NotEqual(t, sig, gateway.ComputeSignature("order_1", "pay_2"))
}
