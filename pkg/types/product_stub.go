package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/giftwell-app/giftwell-backend/pkg/enums"
	"github.com/google/uuid"
)

// ProductStub is the snapshot of a selected product persisted on a gift
// execution. Prices are captured at selection time so later catalog edits
// cannot change an execution's total.
type ProductStub struct {
	ProductID  uuid.UUID        `json:"product_id"`
	Title      string           `json:"title"`
	PriceCents int              `json:"price_cents"`
	ImageURL   string           `json:"image_url,omitempty"`
	Source     enums.GiftSource `json:"source"`
}

// SelectedProducts is the ordered jsonb list stored on gift_executions.
type SelectedProducts []ProductStub

// TotalCents sums the captured prices.
func (s SelectedProducts) TotalCents() int {
	total := 0
	for _, stub := range s {
		total += stub.PriceCents
	}
	return total
}

// Value implements driver.Valuer so the snapshot survives map-based updates.
func (s SelectedProducts) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *SelectedProducts) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	switch raw := value.(type) {
	case []byte:
		return json.Unmarshal(raw, s)
	case string:
		return json.Unmarshal([]byte(raw), s)
	default:
		return fmt.Errorf("unsupported selected_products source %T", value)
	}
}
