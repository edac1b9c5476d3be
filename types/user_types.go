package types

import (
	"context"
	"time"
)

type User struct {
	UserID    int64
	ChatID    int64
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Payment struct {
	UserID                int64
	Currency              string
	TotalAmount           int64
	InvoicePayload        string
	TelegramPaymentCharge string
	ProviderPaymentCharge string
	CreatedAt             time.Time
}

type UserStore interface {
	UpsertUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, userID int64) (*User, error)

	// RecordPayment is idempotent on the Telegram charge id: inserted is
	// false when the payment was already processed.
	RecordPayment(ctx context.Context, p Payment) (inserted bool, err error)
}
