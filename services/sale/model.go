package sale

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	// StatusWon is the terminal state a lead reaches when the contract is
	// signed. Commission models typically configure it as their payable stage.
	StatusWon = "won"
	// StatusLost is the terminal state for a dead lead.
	StatusLost = "lost"
)

// Sale is a broker lead moving through the pipeline. The pipeline itself is
// owned by the CRM workflow; this service persists the status changes and
// fans the events out to accrual and campaign evaluation.
type Sale struct {
	ID        string          `gorm:"column:id;primaryKey"`
	CreatedAt time.Time       `gorm:"column:created_at;index"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
	TenantID  string          `gorm:"column:tenant_id;index;not null"`
	BrokerID  string          `gorm:"column:broker_id;index;not null"`
	ProjectID string          `gorm:"column:project_id;index"`
	UnitRef   string          `gorm:"column:unit_ref;type:varchar(100)"`
	Customer  string          `gorm:"column:customer;type:varchar(255)"`
	Status    string          `gorm:"column:status;type:varchar(50);not null;default:'new'"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null"`
	Currency  string          `gorm:"column:currency;type:varchar(3);not null"`
}

func (Sale) TableName() string { return "sales" }

// Visit is a logged site visit brought in by a broker. Visits count toward
// visit-based incentive campaigns.
type Visit struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
	TenantID  string    `gorm:"column:tenant_id;index;not null"`
	BrokerID  string    `gorm:"column:broker_id;index;not null"`
	ProjectID string    `gorm:"column:project_id;index"`
	SaleID    string    `gorm:"column:sale_id;index"`
	Notes     string    `gorm:"column:notes;type:text"`
	VisitedAt time.Time `gorm:"column:visited_at"`
}

func (Visit) TableName() string { return "visits" }
