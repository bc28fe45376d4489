package models

import "time"

// Product is the transient DTO produced by a data source. It is never
// persisted directly; CatalogService reconciles it into the catalog.
type Product struct {
	ID                 string    `json:"id,omitempty"`
	Name               string    `json:"name"`
	Brand              string    `json:"brand"`
	Colorway           string    `json:"colorway"`
	RetailPrice        float64   `json:"retailPrice"`
	CurrentPrice       float64   `json:"currentPrice"`
	DiscountPercentage float64   `json:"discountPercentage"`
	Size               string    `json:"size,omitempty"`
	SKU                string    `json:"sku,omitempty"`
	ImageURL           string    `json:"imageUrl,omitempty"`
	StockxURL          string    `json:"stockxUrl"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

// BelowRetail reports whether the current ask is strictly below retail.
func (p *Product) BelowRetail() bool {
	return p.CurrentPrice < p.RetailPrice
}

// CatalogEntry represents a persisted product row in the catalog.
// Fields are tagged for both DB scanning and JSON serialization.
// stockx_url is the natural key used during reconciliation.
type CatalogEntry struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Brand              string    `db:"brand" json:"brand"`
	Colorway           string    `db:"colorway" json:"colorway"`
	RetailPrice        float64   `db:"retail_price" json:"retailPrice"`
	CurrentPrice       float64   `db:"current_price" json:"currentPrice"`
	DiscountPercentage float64   `db:"discount_percentage" json:"discountPercentage"`
	Size               *string   `db:"size" json:"size,omitempty"`
	SKU                *string   `db:"sku" json:"sku,omitempty"`
	ImageURL           *string   `db:"image_url" json:"imageUrl,omitempty"`
	StockxURL          string    `db:"stockx_url" json:"stockxUrl"`
	CreatedAt          time.Time `db:"created_at" json:"-"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// BrandQuery holds the validated query parameters for a below-retail page.
type BrandQuery struct {
	MinDiscount *float64
	MaxPrice    *float64
	Size        string
	Cursor      string
	Limit       int
}

// PageInfo carries cursor pagination metadata for a product page.
type PageInfo struct {
	Cursor  string `json:"cursor,omitempty"`
	HasNext bool   `json:"hasNext"`
	Total   int    `json:"total"`
}

// ProductPage is one page of below-retail products.
type ProductPage struct {
	Data       []Product `json:"data"`
	Pagination PageInfo  `json:"pagination"`
}
