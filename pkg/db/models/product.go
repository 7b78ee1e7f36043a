package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the catalog entry owned by a single seller.
type Product struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SellerID  uuid.UUID        `gorm:"column:seller_id;type:uuid;not null;index"`
	Name      string           `gorm:"column:name;not null"`
	PriceKrw  int64            `gorm:"column:price_krw;not null"`
	IsActive  bool             `gorm:"column:is_active;not null;default:true"`
	Variants  []ProductVariant `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt   `gorm:"column:deleted_at;index"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProductVariant is the inventory unit. Stock only changes through the
// conditional statements in internal/inventory.
type ProductVariant struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID          uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Color              *string   `gorm:"column:color"`
	Size               *string   `gorm:"column:size"`
	Stock              int       `gorm:"column:stock;not null;default:0"`
	AdditionalPriceKrw int64     `gorm:"column:additional_price_krw;not null;default:0"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// SellerShippingPolicy holds a seller's flat fee and free-shipping threshold.
type SellerShippingPolicy struct {
	SellerID                 uuid.UUID `gorm:"column:seller_id;type:uuid;primaryKey"`
	ShippingFeeKrw           int64     `gorm:"column:shipping_fee_krw;not null"`
	FreeShippingThresholdKrw int64     `gorm:"column:free_shipping_threshold_krw;not null;default:0"`
	UpdatedAt                time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
