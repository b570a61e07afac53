package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const gatewayRazorpay = "razorpay"

// GatewayOrderRequest asks the gateway to open an order for a checkout.
type GatewayOrderRequest struct {
	AmountMinorUnits int64
	Currency         string
	Receipt          string
	Notes            map[string]string
}

// GatewayOrder is the gateway-side order created for a checkout.
type GatewayOrder struct {
	ID       string          `json:"id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt,omitempty"`
	Status   string          `json:"status,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// PaymentGateway is the payment provider used at checkout.
type PaymentGateway interface {
	Name() string
	PublicKey() string
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
	ComputeSignature(gatewayOrderID, paymentID string) string
}

// RazorpayGateway talks to the Razorpay Orders API.
type RazorpayGateway struct {
	baseURL string
	keyID   string
	secret  string
	client  *http.Client
}

// NewRazorpayGateway constructs a RazorpayGateway.
func NewRazorpayGateway(baseURL, keyID, secret string) *RazorpayGateway {
	return &RazorpayGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		keyID:   keyID,
		secret:  secret,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *RazorpayGateway) Name() string { return gatewayRazorpay }

func (g *RazorpayGateway) PublicKey() string { return g.keyID }

type razorpayOrderPayload struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens a Razorpay order.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	payload, err := json.Marshal(razorpayOrderPayload{
		Amount:   req.AmountMinorUnits,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("razorpay order request build: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.keyID, g.secret)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("razorpay order request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("razorpay order read: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr razorpayError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("razorpay order failed: status %d: %s", resp.StatusCode, apiErr.Error.Description)
		}
		return nil, fmt.Errorf("razorpay order failed: status %d", resp.StatusCode)
	}

	var order GatewayOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("razorpay order unmarshal: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("razorpay order: empty id")
	}
	order.Raw = body
	return &order, nil
}

// ComputeSignature returns hex(HMAC-SHA256(secret, "<orderId>|<paymentId>")).
func (g *RazorpayGateway) ComputeSignature(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
