package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

type ModelType string

var (
	TypeFlat   ModelType = "flat"
	TypeTiered ModelType = "tiered"
)

func (t ModelType) String() string {
	switch t {
	case TypeFlat, TypeTiered:
		return string(t)
	default:
		return ""
	}
}

// Basis controls how a flat model's value is read: a rate applied to the
// sale amount, or a fixed payout per sale.
type Basis string

var (
	BasisRate  Basis = "rate"
	BasisFixed Basis = "fixed"
)

// TierMetric selects the cumulative broker metric a tiered model ranks by.
type TierMetric string

var (
	MetricWonCount  TierMetric = "count"
	MetricWonVolume TierMetric = "volume"
)

type ItemStatus string

var (
	StatusEligible ItemStatus = "eligible"
	StatusPaid     ItemStatus = "paid"
)

// CommissionModel is the tenant-scoped commission configuration. A model with
// a project scope takes precedence over a tenant-wide one.
type CommissionModel struct {
	ID           string          `gorm:"column:id;primaryKey"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
	TenantID     string          `gorm:"column:tenant_id;index;not null"`
	Name         string          `gorm:"column:name;type:varchar(255);not null"`
	Type         ModelType       `gorm:"column:type;type:varchar(20);not null;default:'flat'"`
	Basis        Basis           `gorm:"column:basis;type:varchar(20);not null;default:'rate'"`
	Value        decimal.Decimal `gorm:"column:value;type:decimal(18,6);not null"`
	Currency     string          `gorm:"column:currency;type:varchar(3);not null"`
	ProjectID    string          `gorm:"column:project_id;index"`
	PayableStage string          `gorm:"column:payable_stage;type:varchar(50);not null"`
	Metric       TierMetric      `gorm:"column:metric;type:varchar(20);default:'count'"`
	IsActive     bool            `gorm:"column:is_active;default:true"`

	Tiers []CommissionTier `gorm:"foreignKey:ModelID;references:ID"`
}

func (CommissionModel) TableName() string { return "commission_models" }

// CommissionTier is one threshold/rate step of a tiered model. Tiers are
// totally ordered by threshold; resolution picks the highest threshold the
// broker's cumulative metric meets or exceeds.
type CommissionTier struct {
	ID        string          `gorm:"column:id;primaryKey"`
	ModelID   string          `gorm:"column:model_id;index;not null"`
	Threshold decimal.Decimal `gorm:"column:threshold;type:decimal(18,2);not null"`
	Rate      decimal.Decimal `gorm:"column:rate;type:decimal(18,6);not null"`
}

func (CommissionTier) TableName() string { return "commission_tiers" }

// CommissionRecord is an earned item produced by the accrual writer. It is
// append-only: the only permitted mutation is the single eligible -> paid
// transition that also sets the payment linkage.
type CommissionRecord struct {
	ID        string          `gorm:"column:id;primaryKey"`
	CreatedAt time.Time       `gorm:"column:created_at;index"`
	TenantID  string          `gorm:"column:tenant_id;index;not null"`
	BrokerID  string          `gorm:"column:broker_id;index;not null"`
	SaleID    string          `gorm:"column:sale_id;not null;uniqueIndex:idx_commission_records_sale_model"`
	ModelID   string          `gorm:"column:model_id;not null;uniqueIndex:idx_commission_records_sale_model"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null"`
	Currency  string          `gorm:"column:currency;type:varchar(3);not null"`
	Status    ItemStatus      `gorm:"column:status;type:varchar(20);not null;default:'eligible'"`
	PaymentID *string         `gorm:"column:payment_id;index"`
	PaidAt    *time.Time      `gorm:"column:paid_at"`
}

func (CommissionRecord) TableName() string { return "commission_records" }

// SaleEvent is the slice of a broker lead the accrual path needs. The sale
// workflow owns the lead tables; cumulative metrics arrive precomputed and
// already include the triggering sale.
type SaleEvent struct {
	SaleID    string
	BrokerID  string
	ProjectID string
	Status    string
	Amount    decimal.Decimal
	Currency  string
	WonCount  int64
	WonVolume decimal.Decimal
}
