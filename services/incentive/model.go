package incentive

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CampaignType string

var (
	TypeUnitSales CampaignType = "unit_sales"
	TypeVolume    CampaignType = "volume"
	TypeVisits    CampaignType = "visits"
	TypeSpecial   CampaignType = "special"
)

func (t CampaignType) String() string {
	switch t {
	case TypeUnitSales, TypeVolume, TypeVisits, TypeSpecial:
		return string(t)
	default:
		return ""
	}
}

type ItemStatus string

var (
	StatusEligible ItemStatus = "eligible"
	StatusPaid     ItemStatus = "paid"
)

// IncentiveCampaign is a tenant-scoped bonus target. Campaigns with a target
// are awarded automatically by the evaluator; special campaigns have no
// target and are only awarded by an administrator.
type IncentiveCampaign struct {
	ID         string          `gorm:"column:id;primaryKey"`
	CreatedAt  time.Time       `gorm:"column:created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at"`
	TenantID   string          `gorm:"column:tenant_id;index;not null"`
	Name       string          `gorm:"column:name;type:varchar(255);not null"`
	Type       CampaignType    `gorm:"column:type;type:varchar(20);not null"`
	BonusValue decimal.Decimal `gorm:"column:bonus_value;type:decimal(18,2);not null"`
	Currency   string          `gorm:"column:currency;type:varchar(3);not null"`
	Target     decimal.Decimal `gorm:"column:target;type:decimal(18,2)"`
	ProjectID  string          `gorm:"column:project_id;index"`
	StartDate  *time.Time      `gorm:"column:start_date"`
	EndDate    *time.Time      `gorm:"column:end_date"`
	IsActive   bool            `gorm:"column:is_active;default:true"`
	Expression string          `gorm:"column:expression;type:text"`
	Metadata   datatypes.JSON  `gorm:"column:metadata"`
}

func (IncentiveCampaign) TableName() string { return "incentive_campaigns" }

// InWindow checks whether the campaign is currently active based on its
// time range and status flag.
func (c *IncentiveCampaign) InWindow(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return false
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return false
	}
	return true
}

// AutoTriggered reports whether the evaluator may award this campaign.
func (c *IncentiveCampaign) AutoTriggered() bool {
	return c.Type != TypeSpecial && c.Target.IsPositive()
}

// IncentiveEarning is the earned item emitted when a broker meets a campaign
// target. Same lifecycle as a commission record: append-only, one
// eligible -> paid transition that also sets the payment linkage.
type IncentiveEarning struct {
	ID         string          `gorm:"column:id;primaryKey"`
	CreatedAt  time.Time       `gorm:"column:created_at;index"`
	TenantID   string          `gorm:"column:tenant_id;index;not null;uniqueIndex:idx_incentive_earnings_campaign_broker"`
	CampaignID string          `gorm:"column:campaign_id;not null;uniqueIndex:idx_incentive_earnings_campaign_broker"`
	BrokerID   string          `gorm:"column:broker_id;index;not null;uniqueIndex:idx_incentive_earnings_campaign_broker"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null"`
	Currency   string          `gorm:"column:currency;type:varchar(3);not null"`
	Status     ItemStatus      `gorm:"column:status;type:varchar(20);not null;default:'eligible'"`
	PaymentID  *string         `gorm:"column:payment_id;index"`
	PaidAt     *time.Time      `gorm:"column:paid_at"`
}

func (IncentiveEarning) TableName() string { return "incentive_earnings" }
