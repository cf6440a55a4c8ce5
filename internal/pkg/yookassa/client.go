// Package yookassa is a narrow client for the YooKassa payments API.
package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"vabboost/internal/pkg/logger"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected request")
	ErrNotConfigured      = errors.New("payment gateway credentials are not configured")
)

const maxDescriptionLen = 128

type Config struct {
	ShopID      string
	SecretKey   string
	APIURL      string
	Timeout     time.Duration
	MaxAttempts int
}

type Client struct {
	cfg     Config
	http    *http.Client
	newKey  func() string
	backoff time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		newKey:  func() string { return uuid.NewString() },
		backoff: 300 * time.Millisecond,
	}
}

type CreatePaymentRequest struct {
	Amount       float64
	Currency     string
	Description  string
	ReturnURL    string
	Metadata     map[string]string
	ReceiptEmail string
}

// Payment is the part of the gateway response the order flow needs. Raw keeps
// the full body for audit.
type Payment struct {
	ID              string
	Status          string
	ConfirmationURL string
	IdempotencyKey  string
	Raw             []byte
}

type amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type receiptItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Amount      amount `json:"amount"`
	VatCode     int    `json:"vat_code"`
}

type receipt struct {
	Customer struct {
		Email string `json:"email"`
	} `json:"customer"`
	Items []receiptItem `json:"items"`
}

type createBody struct {
	Amount       amount            `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation confirmation      `json:"confirmation"`
	Description  string            `json:"description"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Receipt      *receipt          `json:"receipt,omitempty"`
}

type paymentBody struct {
	ID           string       `json:"id"`
	Status       string       `json:"status"`
	Confirmation confirmation `json:"confirmation"`
}

type errorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Parameter   string `json:"parameter"`
}

// FormatAmount renders an amount the way the API expects ("2499.00").
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// CreatePayment creates a remote payment. One idempotence key is generated per
// call and reused across transport retries, so a retried request can never
// produce a second charge. Only network errors and 5xx responses are retried.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	if c.cfg.ShopID == "" || c.cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	body := createBody{
		Amount:       amount{Value: FormatAmount(req.Amount), Currency: req.Currency},
		Capture:      true,
		Confirmation: confirmation{Type: "redirect", ReturnURL: req.ReturnURL},
		Description:  truncate(req.Description, maxDescriptionLen),
		Metadata:     req.Metadata,
	}
	if req.ReceiptEmail != "" {
		r := &receipt{Items: []receiptItem{{
			Description: truncate(req.Description, maxDescriptionLen),
			Quantity:    "1.00",
			Amount:      body.Amount,
			VatCode:     1,
		}}}
		r.Customer.Email = req.ReceiptEmail
		body.Receipt = r
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode payment request: %w", err)
	}

	key := c.newKey()
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
			case <-time.After(c.backoff * time.Duration(attempt-1)):
			}
		}

		p, retry, err := c.do(ctx, key, payload)
		if err == nil {
			p.IdempotencyKey = key
			return p, nil
		}
		lastErr = err
		logger.Logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("idempotence_key", key).
			Msg("yookassa create payment attempt failed")
		if !retry {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, key string, payload []byte) (*Payment, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.SetBasicAuth(c.cfg.ShopID, c.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", key)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read body: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return nil, false, fmt.Errorf("%w: status %d code=%s parameter=%s: %s",
			ErrGatewayRejected, resp.StatusCode, eb.Code, eb.Parameter, eb.Description)
	}

	var pb paymentBody
	if err := json.Unmarshal(raw, &pb); err != nil {
		return nil, false, fmt.Errorf("%w: decode response: %v", ErrGatewayRejected, err)
	}
	if pb.ID == "" || pb.Confirmation.ConfirmationURL == "" {
		return nil, false, fmt.Errorf("%w: response without id or confirmation url", ErrGatewayRejected)
	}
	return &Payment{
		ID:              pb.ID,
		Status:          pb.Status,
		ConfirmationURL: pb.Confirmation.ConfirmationURL,
		Raw:             raw,
	}, false, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
