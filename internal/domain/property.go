package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Property struct {
	PropertyID uuid.UUID `gorm:"column:property_id;type:uuid;primaryKey" json:"property_id"`
	OwnerID    uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Title      string    `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Address    string    `gorm:"column:address;type:varchar(500)" json:"address"`
	Valuation  float64   `gorm:"column:valuation;type:decimal(18,2);not null;default:0" json:"valuation"`
	Status     string    `gorm:"column:status;type:varchar(20);not null;default:'listed'" json:"status"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Property) TableName() string {
	return "properties"
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.PropertyID == uuid.Nil {
		p.PropertyID = uuid.New()
	}
	return nil
}
