package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Receipt is the payload posted after a completed payment.
type Receipt struct {
	Event            string    `json:"event"` // "payment.receipt"
	UserID           uuid.UUID `json:"user_id"`
	BillID           uuid.UUID `json:"bill_id"`
	TransactionID    uuid.UUID `json:"transaction_id"`
	Amount           string    `json:"amount"`
	ConfirmationCode string    `json:"confirmation_code"`
	Timestamp        time.Time `json:"timestamp"`
}

// SendReceipt posts the receipt to the configured webhook URL. A slow
// receiver must not block payment handling, so the client is capped at
// five seconds; callers fire this from a goroutine.
func SendReceipt(url string, receipt Receipt) error {
	payload, err := json.Marshal(receipt)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "BillPay-Webhook/1.0")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("receipt receiver returned error: %d", resp.StatusCode)
}
