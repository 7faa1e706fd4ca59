package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryLevel tracks on-hand stock per variant.
type InventoryLevel struct {
	VariantID         uuid.UUID `gorm:"column:variant_id;type:uuid;primaryKey" json:"variant_id"`
	AvailableQuantity int       `gorm:"column:available_quantity;not null;default:0" json:"available_quantity"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the default GORM table name.
func (InventoryLevel) TableName() string {
	return "inventory_levels"
}
