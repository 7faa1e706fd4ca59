package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/enums"
)

// Address is a saved billing/shipping address. Owned by a user or a guest
// session, never both. At most one default per (owner, type).
type Address struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID        `gorm:"column:user_id;type:uuid;index" json:"user_id,omitempty"`
	SessionID  *string           `gorm:"column:session_id;index" json:"session_id,omitempty"`
	Type       enums.AddressType `gorm:"column:type;not null" json:"type"`
	FullName   string            `gorm:"column:full_name;not null" json:"full_name"`
	Line1      string            `gorm:"column:line1;not null" json:"line1"`
	Line2      *string           `gorm:"column:line2" json:"line2,omitempty"`
	City       string            `gorm:"column:city;not null" json:"city"`
	Region     string            `gorm:"column:region;not null" json:"region"`
	PostalCode string            `gorm:"column:postal_code;not null" json:"postal_code"`
	Country    string            `gorm:"column:country;not null" json:"country"`
	Phone      *string           `gorm:"column:phone" json:"phone,omitempty"`
	IsDefault  bool              `gorm:"column:is_default;not null;default:false" json:"is_default"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName overrides the default GORM table name.
func (Address) TableName() string {
	return "addresses"
}
