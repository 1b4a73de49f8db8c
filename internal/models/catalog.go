package models

import "github.com/shopspring/decimal"

// ProductFilter narrows a product listing. Nil bounds are open.
type ProductFilter struct {
	CategorySlug string
	PriceMin     *decimal.Decimal
	PriceMax     *decimal.Decimal
}

// ProductSort is a whitelisted listing order
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortOldest    ProductSort = "oldest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortNameAsc   ProductSort = "name_asc"
	SortNameDesc  ProductSort = "name_desc"
)

// PageMeta describes one page of a listing
type PageMeta struct {
	Total      int         `json:"total"`
	PerPage    int         `json:"perPage"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	HasPrev    bool        `json:"hasPrev"`
	HasNext    bool        `json:"hasNext"`
	Sort       ProductSort `json:"sort"`
}

// ProductCard is the listing projection of a product
type ProductCard struct {
	ID       int64            `json:"id"`
	Slug     string           `json:"slug"`
	Name     string           `json:"name"`
	Price    decimal.Decimal  `json:"price"`
	ImageURL *string          `json:"imageUrl"`
	Category *CategorySummary `json:"category"`
}

// CategorySummary is embedded in product cards
type CategorySummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
