package payment

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"estateos-brokerledger/pkg/errutil"
	"estateos-brokerledger/services/broker"
	"estateos-brokerledger/services/commission"
	"estateos-brokerledger/services/incentive"
	"estateos-brokerledger/services/tenant"
)

// CurrencyBalance is a broker's position in one currency. Amounts in
// different currencies never mix; a broker earning in two currencies has two
// independent balances.
type CurrencyBalance struct {
	Currency    string          `json:"currency"`
	TotalEarned decimal.Decimal `json:"total_earned"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Balance     decimal.Decimal `json:"balance"`
}

type BrokerBalance struct {
	BrokerID  string            `json:"broker_id"`
	Balances  []CurrencyBalance `json:"balances"`
}

// Balance recomputes a broker's position from the earned-item tables. There
// are no cached counters; the append-only tables are the single source of
// truth and the figures here are always derivable from them.
func (s *Service) Balance(ctx context.Context, tc tenant.Context, brokerID string) (*BrokerBalance, error) {
	items, err := s.allItems(ctx, tc, brokerID)
	if err != nil {
		return nil, err
	}

	return &BrokerBalance{
		BrokerID: brokerID,
		Balances: summarize(items),
	}, nil
}

func summarize(items []EarnedItem) []CurrencyBalance {
	byCurrency := map[string]*CurrencyBalance{}
	for _, item := range items {
		cb, ok := byCurrency[item.Currency]
		if !ok {
			cb = &CurrencyBalance{
				Currency:    item.Currency,
				TotalEarned: decimal.Zero,
				TotalPaid:   decimal.Zero,
			}
			byCurrency[item.Currency] = cb
		}

		cb.TotalEarned = cb.TotalEarned.Add(item.Amount)
		if item.Status == "paid" {
			cb.TotalPaid = cb.TotalPaid.Add(item.Amount)
		}
	}

	balances := make([]CurrencyBalance, 0, len(byCurrency))
	for _, cb := range byCurrency {
		cb.Balance = cb.TotalEarned.Sub(cb.TotalPaid)
		balances = append(balances, *cb)
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Currency < balances[j].Currency })

	return balances
}

// allItems loads every earned item for one broker, or for the whole tenant
// when brokerID is empty.
func (s *Service) allItems(ctx context.Context, tc tenant.Context, brokerID string) ([]EarnedItem, error) {
	recordQuery := s.db.WithContext(ctx).Where("tenant_id = ?", tc.TenantID)
	earningQuery := s.db.WithContext(ctx).Where("tenant_id = ?", tc.TenantID)
	if brokerID != "" {
		recordQuery = recordQuery.Where("broker_id = ?", brokerID)
		earningQuery = earningQuery.Where("broker_id = ?", brokerID)
	}

	var records []*commission.CommissionRecord
	if err := recordQuery.Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	var earnings []*incentive.IncentiveEarning
	if err := earningQuery.Order("created_at ASC").Find(&earnings).Error; err != nil {
		return nil, err
	}

	items := make([]EarnedItem, 0, len(records)+len(earnings))
	for _, r := range records {
		items = append(items, fromCommission(r))
	}
	for _, e := range earnings {
		items = append(items, fromIncentive(e))
	}
	sortFIFO(items)

	return items, nil
}

// Statement is the full reconciliation view for one broker: every earned
// item, every payment, and the per-currency position they add up to.
type Statement struct {
	BrokerID string            `json:"broker_id"`
	Items    []EarnedItem      `json:"items"`
	Payments []*Payment        `json:"payments"`
	Balances []CurrencyBalance `json:"balances"`
}

func (s *Service) Statement(ctx context.Context, tc tenant.Context, brokerID string) (*Statement, error) {
	bk, err := s.brokers.FindOne(ctx, &broker.Broker{ID: brokerID, TenantID: tc.TenantID})
	if err != nil {
		return nil, err
	}
	if bk == nil {
		return nil, errutil.NotFound("broker not found")
	}

	items, err := s.allItems(ctx, tc, brokerID)
	if err != nil {
		return nil, err
	}

	payments, err := s.ListPayments(ctx, tc, brokerID)
	if err != nil {
		return nil, err
	}

	return &Statement{
		BrokerID: brokerID,
		Items:    items,
		Payments: payments,
		Balances: summarize(items),
	}, nil
}

// TenantBalance is one broker's per-currency position within the tenant
// overview.
type TenantBalance struct {
	BrokerID string            `json:"broker_id"`
	Balances []CurrencyBalance `json:"balances"`
}

// TenantSummary recomputes the position of every broker with earned items.
func (s *Service) TenantSummary(ctx context.Context, tc tenant.Context) ([]TenantBalance, error) {
	items, err := s.allItems(ctx, tc, "")
	if err != nil {
		return nil, err
	}

	byBroker := map[string][]EarnedItem{}
	for _, item := range items {
		byBroker[item.BrokerID] = append(byBroker[item.BrokerID], item)
	}

	brokerIDs := make([]string, 0, len(byBroker))
	for id := range byBroker {
		brokerIDs = append(brokerIDs, id)
	}
	sort.Strings(brokerIDs)

	summary := make([]TenantBalance, 0, len(brokerIDs))
	for _, id := range brokerIDs {
		summary = append(summary, TenantBalance{
			BrokerID: id,
			Balances: summarize(byBroker[id]),
		})
	}

	return summary, nil
}
