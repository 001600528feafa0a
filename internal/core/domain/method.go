package domain

import (
	"time"

	"github.com/google/uuid"
)

type MethodKind string

const (
	KindCard          MethodKind = "card"
	KindBankAccount   MethodKind = "bank_account"
	KindDigitalWallet MethodKind = "digital_wallet"
)

// PaymentMethod is a stored instrument usable to settle a bill. At most one
// method per user carries IsDefault; the store clears the previous default
// on write.
type PaymentMethod struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Kind      MethodKind `json:"kind"`
	Last4     string     `json:"last4,omitempty"`
	Brand     CardBrand  `json:"brand,omitempty"`     // card only
	BankName  string     `json:"bank_name,omitempty"` // bank_account only
	WalletRef string     `json:"wallet_ref,omitempty"`
	IsDefault bool       `json:"is_default"`
	CreatedAt time.Time  `json:"created_at"`
}

// MaskReference shortens a wallet address or account number to a display
// form like "bc1qxy...0wlh".
func MaskReference(ref string) string {
	if len(ref) <= 10 {
		return ref
	}
	return ref[:6] + "..." + ref[len(ref)-4:]
}

// LastFour returns the trailing four digits of an account or card number.
func LastFour(number string) string {
	if len(number) < 4 {
		return number
	}
	return number[len(number)-4:]
}
