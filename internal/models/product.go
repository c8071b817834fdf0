package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product is a catalog entry. Location uses the XX,XX,XX,XX slot format.
type Product struct {
	ID          string         `gorm:"primaryKey;type:uuid" json:"id"`
	SKU         string         `gorm:"uniqueIndex;not null" json:"sku"`
	Name        string         `gorm:"not null;index" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Location    string         `gorm:"index" json:"location"`
	Quantity    int            `gorm:"default:0" json:"quantity"`
	Unit        string         `gorm:"default:'pcs'" json:"unit"`
	Weight      float64        `json:"weight"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	Attributes  datatypes.JSON `gorm:"type:jsonb" json:"attributes,omitempty"` // Free-form parameters (diameter, material, ...)
	IsActive    bool           `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
