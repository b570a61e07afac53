package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const telegramAPIBase = "https://api.telegram.org"

// Notifier tells shop staff about checkout events.
type Notifier interface {
	NotifyNewOrder(ctx context.Context, order OrderNotification) error
	NotifyPaymentSuccess(ctx context.Context, payment PaymentSuccessNotification) error
}

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	apiBase     string
	botToken    string
	adminChatID string
	client      *http.Client
	log         *zap.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string, log *zap.Logger) *TelegramService {
	return &TelegramService{
		apiBase:     telegramAPIBase,
		botToken:    botToken,
		adminChatID: adminChatID,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends an HTML message to the given chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug("telegram bot token not configured")
		return nil
	}

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("telegram send failed", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Warn("telegram unexpected status", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// OrderNotification contains order data for a Telegram notification.
type OrderNotification struct {
	OrderID       string
	Items         []OrderItemNotification
	TotalAmount   decimal.Decimal
	Currency      string
	CustomerName  string
	CustomerEmail string
	City          string
	PaymentMethod string
	Status        string
}

// OrderItemNotification contains order item data.
type OrderItemNotification struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// FormatPrice formats an amount with Indian digit grouping and currency.
func FormatPrice(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "INR"
	}

	str := amount.StringFixed(2)
	whole, fraction, _ := strings.Cut(str, ".")
	negative := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var groups []string
	if len(whole) > 3 {
		groups = append(groups, whole[len(whole)-3:])
		whole = whole[:len(whole)-3]
		for len(whole) > 2 {
			groups = append([]string{whole[len(whole)-2:]}, groups...)
			whole = whole[:len(whole)-2]
		}
	}
	if whole != "" {
		groups = append([]string{whole}, groups...)
	}

	result := strings.Join(groups, ",")
	if fraction != "00" {
		result += "." + fraction
	}
	if negative {
		result = "-" + result
	}
	return result + " " + currency
}

// NotifyNewOrder sends a new order summary to the admin chat.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order OrderNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	var itemsList strings.Builder
	for i, item := range order.Items {
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		itemsList.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.Name),
			item.Quantity,
			FormatPrice(item.Price, order.Currency),
			FormatPrice(lineTotal, order.Currency),
		))
	}

	paymentText := "Cash / offline"
	if order.PaymentMethod == gatewayRazorpay {
		paymentText = "Razorpay"
	}

	statusText := "⏳ Awaiting payment"
	if order.Status == "paid" {
		statusText = "✅ Paid"
	}

	message := fmt.Sprintf(`<b>🛒 NEW ORDER</b>
<b>📋 Order:</b> %s
<b>👤 Customer:</b> %s (%s)
<b>📍 City:</b> %s
<b>📦 Items:</b>
%s
<b>💰 Total:</b> %s
<b>💳 Payment:</b> %s
<b>📌 Status:</b> %s
━━━━━━━━━━━━━━━━━━`,
		order.OrderID,
		html.EscapeString(order.CustomerName),
		html.EscapeString(order.CustomerEmail),
		html.EscapeString(order.City),
		itemsList.String(),
		FormatPrice(order.TotalAmount, order.Currency),
		paymentText,
		statusText,
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}

// PaymentSuccessNotification contains payment success data.
type PaymentSuccessNotification struct {
	OrderID          string
	GatewayPaymentID string
	Amount           decimal.Decimal
	Currency         string
}

// NotifyPaymentSuccess sends a captured payment notice to the admin chat.
func (s *TelegramService) NotifyPaymentSuccess(ctx context.Context, payment PaymentSuccessNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>✅ PAYMENT RECEIVED</b>
<b>📋 Order:</b> %s
<b>🧾 Payment:</b> %s
<b>💰 Amount:</b> %s
<b>💳 Method:</b> Razorpay
━━━━━━━━━━━━━━━━━━
<i>Online Annavaram</i>`,
		payment.OrderID,
		payment.GatewayPaymentID,
		FormatPrice(payment.Amount, payment.Currency),
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}
