package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is one disbursement to a broker. Payments are append-only: once
// written they are never updated, and the allocation they triggered lives on
// the earned items via their payment linkage.
type Payment struct {
	ID             string          `gorm:"column:id;primaryKey"`
	CreatedAt      time.Time       `gorm:"column:created_at;index"`
	TenantID       string          `gorm:"column:tenant_id;index;not null"`
	BrokerID       string          `gorm:"column:broker_id;index;not null"`
	Code           string          `gorm:"column:code;type:varchar(50);not null"`
	Amount         decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null"`
	Currency       string          `gorm:"column:currency;type:varchar(3);not null"`
	Method         string          `gorm:"column:method;type:varchar(50)"`
	Reference      string          `gorm:"column:reference;type:varchar(255)"`
	ImportID       string          `gorm:"column:import_id;index"`
	IdempotencyKey *string         `gorm:"column:idempotency_key;uniqueIndex"`
	Notes          string          `gorm:"column:notes;type:text"`
}

func (Payment) TableName() string { return "payments" }
