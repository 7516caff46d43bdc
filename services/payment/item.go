package payment

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"estateos-brokerledger/services/commission"
	"estateos-brokerledger/services/incentive"
)

type ItemKind string

var (
	KindCommission ItemKind = "commission"
	KindIncentive  ItemKind = "incentive"
)

// EarnedItem is the flattened view of an outstanding earned record. The
// allocation engine and the balance calculator operate on this one shape
// instead of duplicating logic per source table.
type EarnedItem struct {
	Kind      ItemKind        `json:"kind"`
	ID        string          `json:"id"`
	BrokerID  string          `json:"broker_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	PaymentID *string         `json:"payment_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func fromCommission(r *commission.CommissionRecord) EarnedItem {
	return EarnedItem{
		Kind:      KindCommission,
		ID:        r.ID,
		BrokerID:  r.BrokerID,
		Amount:    r.Amount,
		Currency:  r.Currency,
		Status:    string(r.Status),
		PaymentID: r.PaymentID,
		CreatedAt: r.CreatedAt,
	}
}

func fromIncentive(e *incentive.IncentiveEarning) EarnedItem {
	return EarnedItem{
		Kind:      KindIncentive,
		ID:        e.ID,
		BrokerID:  e.BrokerID,
		Amount:    e.Amount,
		Currency:  e.Currency,
		Status:    string(e.Status),
		PaymentID: e.PaymentID,
		CreatedAt: e.CreatedAt,
	}
}

// sortFIFO orders items oldest first. Ties break on kind then id so the
// sequence stays deterministic across runs.
func sortFIFO(items []EarnedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		if items[i].Kind != items[j].Kind {
			return items[i].Kind == KindCommission
		}
		return items[i].ID < items[j].ID
	})
}
