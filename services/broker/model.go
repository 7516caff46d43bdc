package broker

import (
	"time"
)

// Level is the broker tier assigned from cumulative performance. It is
// maintained by the partner-management workflow and read-only here.
type Level string

var (
	LevelBronze   Level = "bronze"
	LevelSilver   Level = "silver"
	LevelGold     Level = "gold"
	LevelPlatinum Level = "platinum"
)

func (l Level) String() string {
	switch l {
	case LevelBronze, LevelSilver, LevelGold, LevelPlatinum:
		return string(l)
	default:
		return ""
	}
}

// Broker is an external sales partner who submits leads and earns
// commissions and incentives.
type Broker struct {
	ID        string    `gorm:"column:id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
	TenantID  string    `gorm:"column:tenant_id;index;not null;uniqueIndex:idx_brokers_tenant_email"`
	Name      string    `gorm:"column:name;type:varchar(255);not null"`
	Email     string    `gorm:"column:email;not null;uniqueIndex:idx_brokers_tenant_email"`
	Phone     string    `gorm:"column:phone;type:varchar(50)"`
	Level     Level     `gorm:"column:level;type:varchar(20);default:'bronze'"`
	IsActive  bool      `gorm:"column:is_active;default:true"`
}

func (Broker) TableName() string { return "brokers" }
