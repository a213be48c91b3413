package catalog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product is the catalog row backing the vector index. IDs are opaque
// (typically retailer SKUs). Attributes are denormalized here so ranking
// can match candidates without joining against retailer APIs.
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProductID string    `gorm:"column:product_id;not null;uniqueIndex" json:"product_id"`

	Title    string `gorm:"column:title;not null" json:"title"`
	Brand    string `gorm:"column:brand;index" json:"brand,omitempty"`
	Category string `gorm:"column:category;index" json:"category,omitempty"`
	Color    string `gorm:"column:color" json:"color,omitempty"`
	Material string `gorm:"column:material" json:"material,omitempty"`

	Features datatypes.JSON `gorm:"type:jsonb;column:features" json:"features,omitempty"`

	Price    float64 `gorm:"column:price;not null;default:0" json:"price"`
	Currency string  `gorm:"column:currency;not null;default:USD" json:"currency"`

	ImageURL      string `gorm:"column:image_url" json:"image_url,omitempty"`
	AffiliateLink string `gorm:"column:affiliate_link" json:"affiliate_link,omitempty"`
	Retailer      string `gorm:"column:retailer;index" json:"retailer,omitempty"`
	InStock       bool   `gorm:"column:in_stock;not null;default:true" json:"in_stock"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Product) TableName() string { return "product" }

// FeatureList decodes the features JSON array, nil-safe.
func (p *Product) FeatureList() []string {
	if p == nil || len(p.Features) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(p.Features, &out); err != nil {
		return nil
	}
	return out
}
