package service

import (
	"context"
	"testing"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addMice pads the mouse category up to n products in total
func addMice(f *fixture, n int) {
	for i := 1; i < n; i++ {
		f.mem.AddProduct(models.Product{
			SKU:        sku(i),
			Price:      decimal.NewFromInt(int64(79 + (i%7)*20)),
			CategoryID: f.mice.ID,
			BrandID:    f.mouse.BrandID,
		})
	}
}

func TestListProductsPagination(t *testing.T) {
	f := newFixture(t)
	addMice(f, 20)
	ctx := context.Background()

	page, err := f.catalog.ListProducts(ctx, ProductQuery{CategorySlug: "mouse", PerPage: 9, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 20, page.Meta.Total)
	assert.Equal(t, 3, page.Meta.TotalPages)
	assert.Len(t, page.Items, 9)
	assert.False(t, page.Meta.HasPrev)
	assert.True(t, page.Meta.HasNext)

	last, err := f.catalog.ListProducts(ctx, ProductQuery{CategorySlug: "mouse", PerPage: 9, Page: 3})
	require.NoError(t, err)
	assert.Len(t, last.Items, 2)
	assert.True(t, last.Meta.HasPrev)
	assert.False(t, last.Meta.HasNext)

	past, err := f.catalog.ListProducts(ctx, ProductQuery{CategorySlug: "mouse", PerPage: 9, Page: 99})
	require.NoError(t, err)
	assert.Equal(t, 3, past.Meta.Page)
	assert.Equal(t, last.Items, past.Items)
}

func TestListProductsDefaultsAndClamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.catalog.ListProducts(ctx, ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Meta.PerPage)
	assert.Equal(t, 1, page.Meta.Page)
	assert.Equal(t, models.SortNewest, page.Meta.Sort)

	page, err = f.catalog.ListProducts(ctx, ProductQuery{PerPage: 1000, Page: -3})
	require.NoError(t, err)
	assert.Equal(t, 60, page.Meta.PerPage)
	assert.Equal(t, 1, page.Meta.Page)

	empty, err := f.catalog.ListProducts(ctx, ProductQuery{CategorySlug: "webcam"})
	require.NoError(t, err)
	assert.Zero(t, empty.Meta.Total)
	assert.Equal(t, 1, empty.Meta.TotalPages)
	assert.NotNil(t, empty.Items)
}

func TestListProductsPriceFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lo, hi := money("20"), money("30")
	page, err := f.catalog.ListProducts(ctx, ProductQuery{PriceMin: &lo, PriceMax: &hi})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, f.mouse.ID, page.Items[0].ID)
	require.NotNil(t, page.Items[0].Category)
	assert.Equal(t, "mouse", page.Items[0].Category.Slug)
	assert.Nil(t, page.Items[0].ImageURL)
}

func TestListProductsRejectsBadPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	neg, low, high := money("-1"), money("10"), money("50")

	tests := []struct {
		name string
		q    ProductQuery
	}{
		{"negative min", ProductQuery{PriceMin: &neg}},
		{"negative max", ProductQuery{PriceMax: &neg}},
		{"min above max", ProductQuery{PriceMin: &high, PriceMax: &low}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.catalog.ListProducts(ctx, tt.q)
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}
}

func TestListProductsSort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	asc, err := f.catalog.ListProducts(ctx, ProductQuery{Sort: "cheapest"})
	require.NoError(t, err)
	require.Len(t, asc.Items, 2)
	assert.Equal(t, f.mouse.ID, asc.Items[0].ID)
	assert.Equal(t, models.SortPriceAsc, asc.Meta.Sort)

	desc, err := f.catalog.ListProducts(ctx, ProductQuery{Sort: "price-desc"})
	require.NoError(t, err)
	assert.Equal(t, f.keyboard.ID, desc.Items[0].ID)

	newest, err := f.catalog.ListProducts(ctx, ProductQuery{Sort: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, f.keyboard.ID, newest.Items[0].ID, "keyboard was added last")
}

func TestParseSort(t *testing.T) {
	tests := map[string]models.ProductSort{
		"":           models.SortNewest,
		"newest":     models.SortNewest,
		"oldest":     models.SortOldest,
		"price_asc":  models.SortPriceAsc,
		"cheapest":   models.SortPriceAsc,
		"PRICE-DESC": models.SortPriceDesc,
		"expensive":  models.SortPriceDesc,
		"name_asc":   models.SortNameAsc,
		"name-desc":  models.SortNameDesc,
		"; drop":     models.SortNewest,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseSort(in), "input %q", in)
	}
}

func TestGetProductBySlug(t *testing.T) {
	f := newFixture(t)
	addMice(f, 15)
	f.mem.AddProductImage(f.mouse.ID, "/images/products/g502-2.png", 1)
	f.mem.AddProductImage(f.mouse.ID, "/images/products/g502-1.png", 0)
	ctx := context.Background()

	detail, err := f.catalog.GetProductBySlug(ctx, "logitech-g502")
	require.NoError(t, err)
	require.NotNil(t, detail.Product.Category)
	require.NotNil(t, detail.Product.Brand)
	assert.Equal(t, "Logitech", detail.Product.Brand.Name)
	require.Len(t, detail.Product.Images, 2)
	assert.Equal(t, 0, detail.Product.Images[0].Position)

	assert.Len(t, detail.Recommendations, 12)
	for _, rec := range detail.Recommendations {
		assert.NotEqual(t, f.mouse.ID, rec.ID)
		assert.Equal(t, "mouse", rec.Category.Slug)
	}

	_, err = f.catalog.GetProductBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetProductSurvivesRecommendationFailure(t *testing.T) {
	f := newFixture(t)
	f.mem.Fail("ListRecommendations", assert.AnError)

	detail, err := f.catalog.GetProductBySlug(context.Background(), "logitech-g213")
	require.NoError(t, err)
	assert.Empty(t, detail.Recommendations)
}

func TestReferenceLists(t *testing.T) {
	f := newFixture(t)
	f.mem.AddPaymentMethod(models.PaymentMethod{Slug: "paypal", Name: "PayPal", IsActive: true, SortOrder: 2})
	f.mem.AddPaymentMethod(models.PaymentMethod{Slug: "card", Name: "Card", IsActive: true, SortOrder: 1})
	f.mem.AddPaymentMethod(models.PaymentMethod{Slug: "cod", Name: "Cash", IsActive: false})
	ctx := context.Background()

	categories, err := f.catalog.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Keyboard", categories[0].Name)

	brands, err := f.catalog.ListBrands(ctx)
	require.NoError(t, err)
	assert.Len(t, brands, 1)

	methods, err := f.catalog.ListPaymentMethods(ctx)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "card", methods[0].Slug)
}
