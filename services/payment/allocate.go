package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"estateos-brokerledger/pkg/errutil"
	"estateos-brokerledger/services/commission"
	"estateos-brokerledger/services/incentive"
	"estateos-brokerledger/services/tenant"
)

// Allocation records one earned item settled by a payment.
type Allocation struct {
	Kind   ItemKind        `json:"kind"`
	ItemID string          `json:"item_id"`
	Amount decimal.Decimal `json:"amount"`
}

// AllocationResult summarizes what one payment settled. TotalAllocated may
// exceed the payment amount because items are consumed whole; Remainder is
// the unallocated part of the payment when the broker ran out of eligible
// items, never negative.
type AllocationResult struct {
	Allocated      []Allocation    `json:"allocated"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
	Remainder      decimal.Decimal `json:"remainder"`
}

// allocate settles a payment FIFO against the broker's eligible commission
// records, oldest first, items consumed whole while any amount remains.
// Incentive earnings are out of scope here; they settle only through the
// explicit path where the caller names the items. Each item flip is a
// conditional write so a concurrent allocation that already settled the item
// is observed as zero rows affected and the item is skipped, never
// double-paid. Only items in the payment's currency qualify.
func (s *Service) allocate(ctx context.Context, tc tenant.Context, p *Payment) (*AllocationResult, error) {
	items, err := s.eligibleCommissions(ctx, tc, p.BrokerID, p.Currency)
	if err != nil {
		return nil, err
	}

	result := &AllocationResult{
		Allocated:      []Allocation{},
		TotalAllocated: decimal.Zero,
	}

	now := time.Now()
	remaining := p.Amount
	for _, item := range items {
		if !remaining.IsPositive() {
			break
		}

		claimed, err := s.claimItem(ctx, item, p.ID, now)
		if err != nil {
			return nil, err
		}
		if !claimed {
			zap.L().Info("earned item already settled, skipping",
				zap.String("tenant_id", tc.TenantID),
				zap.String("item_id", item.ID),
				zap.String("kind", string(item.Kind)),
			)
			continue
		}

		remaining = remaining.Sub(item.Amount)
		result.Allocated = append(result.Allocated, Allocation{
			Kind:   item.Kind,
			ItemID: item.ID,
			Amount: item.Amount,
		})
		result.TotalAllocated = result.TotalAllocated.Add(item.Amount)
	}

	if remaining.IsPositive() {
		result.Remainder = remaining
	} else {
		result.Remainder = decimal.Zero
	}

	return result, nil
}

// allocateExplicit settles a payment against the exact earned items the
// caller selected, either kind. No amount matching is enforced; the caller
// is trusted to have picked items summing near the payment amount. Items a
// concurrent payment settled first lose the conditional write and are
// skipped.
func (s *Service) allocateExplicit(ctx context.Context, tc tenant.Context, p *Payment, items []EarnedItem) (*AllocationResult, error) {
	result := &AllocationResult{
		Allocated:      []Allocation{},
		TotalAllocated: decimal.Zero,
	}

	now := time.Now()
	for _, item := range items {
		claimed, err := s.claimItem(ctx, item, p.ID, now)
		if err != nil {
			return nil, err
		}
		if !claimed {
			zap.L().Info("earned item already settled, skipping",
				zap.String("tenant_id", tc.TenantID),
				zap.String("item_id", item.ID),
				zap.String("kind", string(item.Kind)),
			)
			continue
		}

		result.Allocated = append(result.Allocated, Allocation{
			Kind:   item.Kind,
			ItemID: item.ID,
			Amount: item.Amount,
		})
		result.TotalAllocated = result.TotalAllocated.Add(item.Amount)
	}

	remaining := p.Amount.Sub(result.TotalAllocated)
	if remaining.IsPositive() {
		result.Remainder = remaining
	} else {
		result.Remainder = decimal.Zero
	}

	return result, nil
}

// resolveItems looks the selected ids up across both earned-item tables,
// scoped to the paying broker. An id that matches neither table is a
// validation error so the caller finds out before any state changes.
func (s *Service) resolveItems(ctx context.Context, tc tenant.Context, brokerID string, itemIDs []string) ([]EarnedItem, error) {
	items := make([]EarnedItem, 0, len(itemIDs))
	seen := map[string]bool{}
	for _, id := range itemIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		var record commission.CommissionRecord
		err := s.db.WithContext(ctx).
			Where("id = ? AND tenant_id = ? AND broker_id = ?", id, tc.TenantID, brokerID).
			First(&record).Error
		if err == nil {
			items = append(items, fromCommission(&record))
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		var earning incentive.IncentiveEarning
		err = s.db.WithContext(ctx).
			Where("id = ? AND tenant_id = ? AND broker_id = ?", id, tc.TenantID, brokerID).
			First(&earning).Error
		if err == nil {
			items = append(items, fromIncentive(&earning))
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		return nil, errutil.ValidationFailed("earned item " + id + " not found for broker")
	}

	return items, nil
}

// eligibleCommissions loads one broker's outstanding commission records as
// the FIFO sequence.
func (s *Service) eligibleCommissions(ctx context.Context, tc tenant.Context, brokerID, currency string) ([]EarnedItem, error) {
	var records []*commission.CommissionRecord
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND broker_id = ? AND currency = ? AND status = ?",
			tc.TenantID, brokerID, currency, commission.StatusEligible).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	items := make([]EarnedItem, 0, len(records))
	for _, r := range records {
		items = append(items, fromCommission(r))
	}

	sortFIFO(items)
	return items, nil
}

// claimItem flips one earned item eligible -> paid and sets its payment
// linkage in the same statement. Returns false when a concurrent writer got
// there first.
func (s *Service) claimItem(ctx context.Context, item EarnedItem, paymentID string, paidAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":     "paid",
		"payment_id": paymentID,
		"paid_at":    paidAt,
	}

	var res *gorm.DB
	switch item.Kind {
	case KindCommission:
		res = s.db.WithContext(ctx).Model(&commission.CommissionRecord{}).
			Where("id = ? AND status = ?", item.ID, commission.StatusEligible).
			Updates(updates)
	case KindIncentive:
		res = s.db.WithContext(ctx).Model(&incentive.IncentiveEarning{}).
			Where("id = ? AND status = ?", item.ID, incentive.StatusEligible).
			Updates(updates)
	default:
		return false, nil
	}

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
