// Package gateway talks to the payment gateway: order creation over its REST
// API and verification of the signed checkout callback.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// ErrUnavailable is returned when the gateway cannot be reached or refuses the order.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Order is a gateway-side order awaiting payment.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Client creates orders on the gateway.
type Client interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error)
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// RazorpayClient is a minimal Razorpay Orders API client.
type RazorpayClient struct {
	http  *resty.Client
	keyID string
}

func NewRazorpayClient(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &RazorpayClient{http: client, keyID: keyID}
}

// KeyID is the public key the checkout widget needs alongside the order id.
func (c *RazorpayClient) KeyID() string {
	return c.keyID
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	var order Order
	var apiErr errorResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(orderRequest{
			Amount:   amount,
			Currency: currency,
			Receipt:  receipt,
		}).
		SetResult(&order).
		SetError(&apiErr).
		Post("/orders")
	if err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	if resp.IsError() {
		return nil, errors.Wrap(ErrUnavailable, fmt.Sprintf("status %d: %s %s",
			resp.StatusCode(), apiErr.Error.Code, apiErr.Error.Description))
	}
	if order.ID == "" {
		return nil, errors.Wrap(ErrUnavailable, "order response without id")
	}
	return &order, nil
}
