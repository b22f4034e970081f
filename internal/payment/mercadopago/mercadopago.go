package mercadopago

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

	"github.com/google/uuid"

	"mococa-backend/internal/payment"
)

const (
	defaultBaseURL = "https://api.mercadopago.com"

	// Mercado Pago timestamps, e.g. "2024-05-30T23:59:59.000-03:00"
	timeLayout = "2006-01-02T15:04:05.000-07:00"

	expirationWindow = 5 * 24 * time.Hour
)

// Client is a thin Mercado Pago payments client covering pix QR charges.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func New(accessToken string) (*Client, error) {
	if accessToken == "" {
		return nil, errors.New("mercadopago access token is required")
	}

	return &Client{
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

type paymentResponse struct {
	ID               int64  `json:"id"`
	Status           string `json:"status"`
	DateOfExpiration string `json:"date_of_expiration"`

	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// CreateCharge creates a pix QR payment expiring five days out.
func (c *Client) CreateCharge(ctx context.Context, amountCents int64) (*payment.Charge, error) {

	expiresAt := time.Now().Add(expirationWindow)

	body, err := json.Marshal(map[string]any{
		"transaction_amount": float64(amountCents) / 100,
		"payment_method_id":  "pix",
		"description":        "mococa payment",
		"date_of_expiration": expiresAt.Format(timeLayout),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/v1/payments",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	return c.do(req)
}

// ChargeStatus fetches the current state of a payment.
func (c *Client) ChargeStatus(ctx context.Context, id string) (*payment.Charge, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+"/v1/payments/"+id,
		nil,
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*payment.Charge, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf(
			"mercadopago returned status %d: %s",
			resp.StatusCode,
			snippet,
		)
	}

	var pr paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("mercadopago response parse failed: %w", err)
	}

	charge := &payment.Charge{
		ID:     strconv.FormatInt(pr.ID, 10),
		Code:   pr.PointOfInteraction.TransactionData.QRCode,
		QR:     pr.PointOfInteraction.TransactionData.QRCodeBase64,
		Status: mapStatus(pr.Status),
	}

	if pr.DateOfExpiration != "" {
		if t, err := time.Parse(timeLayout, pr.DateOfExpiration); err == nil {
			charge.ExpiresAt = t
		}
	}

	return charge, nil
}

func mapStatus(s string) payment.Status {
	switch s {
	case "approved":
		return payment.StatusPaid
	case "cancelled":
		return payment.StatusCancelled
	case "refunded", "charged_back":
		return payment.StatusRefunded
	case "expired":
		return payment.StatusExpired
	default:
		return payment.StatusPending
	}
}
