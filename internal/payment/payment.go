package payment

import (
	"context"
	"time"
)

// Status is the normalized payment state. Providers map their own
// vocabulary onto this one.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Terminal reports whether a payment can no longer transition.
func (s Status) Terminal() bool {
	switch s {
	case StatusPaid, StatusExpired, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Charge is a provider-issued QR payment.
type Charge struct {
	ID        string    // provider transaction id
	Code      string    // human-presentable copy-paste code
	QR        string    // base64 QR image
	Status    Status    //
	ExpiresAt time.Time // provider-side expiration
}

// Provider is the payment provider the tracker talks to.
type Provider interface {
	CreateCharge(ctx context.Context, amountCents int64) (*Charge, error)
	ChargeStatus(ctx context.Context, id string) (*Charge, error)
}
