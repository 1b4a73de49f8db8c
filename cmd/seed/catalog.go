package main

import (
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
)

const minProductsPerCategory = 5

var categories = []models.Category{
	{Name: "Mouse", Slug: "mouse", Description: "Computer mice for gaming and office", ImageURL: "/images/categories/mouse.png"},
	{Name: "Monitor", Slug: "monitor", Description: "FullHD, 2K, 4K and ultrawide monitors", ImageURL: "/images/categories/monitor.png"},
	{Name: "Headphone", Slug: "headphone", Description: "Wired and wireless headphones", ImageURL: "/images/categories/headphone.png"},
	{Name: "Keyboard", Slug: "keyboard", Description: "Mechanical and membrane keyboards", ImageURL: "/images/categories/keyboard.png"},
	{Name: "Webcam", Slug: "webcam", Description: "Webcams for streaming and video calls", ImageURL: "/images/categories/webcam.png"},
}

var brands = []models.Brand{
	{Name: "Rexus", Slug: "rexus", ImageURL: "/images/brands/rexus.png"},
	{Name: "Logitech", Slug: "logitech", ImageURL: "/images/brands/logitech.png"},
	{Name: "Razer", Slug: "razer", ImageURL: "/images/brands/razer.png"},
	{Name: "Sony", Slug: "sony", ImageURL: "/images/brands/sony.png"},
	{Name: "JBL", Slug: "jbl", ImageURL: "/images/brands/jbl.png"},
	{Name: "AOC", Slug: "aoc", ImageURL: "/images/brands/aoc.png"},
	{Name: "ASUS", Slug: "asus", ImageURL: "/images/brands/asus.png"},
}

type fixedProduct struct {
	sku, name, slug, price string
	stock                  int
	image                  string
	category, brand        string
	description            string
}

var fixedProducts = []fixedProduct{
	{"MOUSE-REXUS-X16", "Rexus Kierra X16", "rexus-kierra-x16", "25.99", 50, "/images/products/mouse-1.jpg", "mouse", "rexus", "Precision gaming mouse with an ergonomic shell."},
	{"MOUSE-LOGI-G502", "Logitech G502 Hero", "logitech-g502-hero", "34.99", 50, "/images/products/mouse-2.jpg", "mouse", "logitech", "High-performance gaming mouse with HERO sensor."},
	{"KEYB-LOGI-G213", "Logitech G213 Prodigy", "logitech-g213-prodigy", "49.99", 30, "/images/products/keyboard-1.jpg", "keyboard", "logitech", "Spill-resistant RGB gaming keyboard."},
	{"KEYB-RAZER-HUNTS", "Razer Huntsman Elite", "razer-huntsman-elite", "106.83", 20, "/images/products/keyboard-2.jpg", "keyboard", "razer", "Mechanical gaming keyboard with opto-mechanical switches."},
	{"HEAD-SONY-WHCH510", "Sony WH-CH510", "sony-wh-ch510", "59.99", 40, "/images/products/headphone-1.jpg", "headphone", "sony", "Wireless on-ear headphones with long battery life."},
	{"HEAD-JBL-TUNE500", "JBL Tune 500", "jbl-tune-500", "29.95", 40, "/images/products/headphone-2.jpg", "headphone", "jbl", "Lightweight on-ear headphones with JBL Pure Bass sound."},
	{"MON-AOC-24G2E", "AOC 24G2E", "aoc-24g2e", "209.99", 15, "/images/products/monitor-1.jpg", "monitor", "aoc", "24-inch gaming monitor with 144Hz refresh rate."},
	{"MON-ASUS-PG259QN", "ROG Swift PG259QN", "rog-swift-pg259qn", "299.99", 10, "/images/products/monitor-2.jpg", "monitor", "asus", "Fast 360Hz gaming monitor for esports."},
	{"WEBCAM-LOGI-C920", "Logitech C920", "logitech-c920", "79.99", 25, "/images/products/webcam-1.jpg", "webcam", "logitech", "HD Pro webcam with 1080p video."},
}

var paymentMethods = []models.PaymentMethod{
	{Slug: "card", Name: "Credit or debit card", IconURL: "/images/payments/card.png", IsActive: true, SortOrder: 1},
	{Slug: "paypal", Name: "PayPal", IconURL: "/images/payments/paypal.png", IsActive: true, SortOrder: 2},
	{Slug: "bank-transfer", Name: "Bank transfer", IconURL: "/images/payments/bank.png", IsActive: true, SortOrder: 3},
	{Slug: "cod", Name: "Cash on delivery", IconURL: "/images/payments/cod.png", IsActive: false, SortOrder: 4},
}

// buildCatalog returns the fixed products padded with generated ones so every
// category lists at least minProductsPerCategory items
func buildCatalog() store.SeedCatalog {
	catalog := store.SeedCatalog{
		Categories:     categories,
		Brands:         brands,
		PaymentMethods: paymentMethods,
	}

	perCategory := make(map[string]int)
	for _, p := range fixedProducts {
		catalog.Products = append(catalog.Products, store.SeedProduct{
			Product: models.Product{
				SKU:         p.sku,
				Name:        p.name,
				Slug:        p.slug,
				Description: p.description,
				Price:       decimal.RequireFromString(p.price),
				Stock:       p.stock,
				ImageURL:    p.image,
			},
			CategorySlug: p.category,
			BrandSlug:    p.brand,
		})
		perCategory[p.category]++
	}

	for _, c := range categories {
		existing := perCategory[c.Slug]
		for i := existing + 1; i <= minProductsPerCategory; i++ {
			b := brands[i%len(brands)]
			name := fmt.Sprintf("%s %s %d", b.Name, c.Name, i)
			catalog.Products = append(catalog.Products, store.SeedProduct{
				Product: models.Product{
					SKU:         fmt.Sprintf("%s-%s-%03d", strings.ToUpper(c.Slug), strings.ToUpper(b.Slug), i),
					Name:        name,
					Slug:        fmt.Sprintf("%s-%s-%d", b.Slug, c.Slug, i),
					Description: fmt.Sprintf("%s. Comfortable, stylish and durable.", name),
					Price:       decimal.NewFromInt(int64(79 + (i%7)*20)).Add(decimal.New(int64(i*7%30), 0)).Add(decimal.RequireFromString("0.99")),
					Stock:       10 + (i*3)%25,
					ImageURL:    fmt.Sprintf("/images/products/%s-%d.png", c.Slug, i%5+1),
				},
				CategorySlug: c.Slug,
				BrandSlug:    b.Slug,
			})
		}
	}

	return catalog
}
