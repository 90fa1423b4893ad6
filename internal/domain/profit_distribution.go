package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfitDistribution records one payout to one investor within a
// distribution event. Immutable after creation.
type ProfitDistribution struct {
	DistributionID uuid.UUID  `gorm:"column:distribution_id;type:uuid;primaryKey" json:"distribution_id"`
	EventID        uuid.UUID  `gorm:"column:event_id;type:uuid;not null;index" json:"event_id"`
	SukukID        uuid.UUID  `gorm:"column:sukuk_id;type:uuid;not null;index" json:"sukuk_id"`
	InvestorID     uuid.UUID  `gorm:"column:investor_id;type:uuid;not null;index" json:"investor_id"`
	Amount         float64    `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	TxReference    string     `gorm:"column:tx_reference;type:varchar(128);not null" json:"tx_reference"`
	PeriodStart    *time.Time `gorm:"column:period_start" json:"period_start"`
	PeriodEnd      *time.Time `gorm:"column:period_end" json:"period_end"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (ProfitDistribution) TableName() string {
	return "profit_distributions"
}

func (p *ProfitDistribution) BeforeCreate(tx *gorm.DB) error {
	if p.DistributionID == uuid.Nil {
		p.DistributionID = uuid.New()
	}
	return nil
}
