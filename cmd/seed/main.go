package main

import (
	"context"
	"log"
	"time"

	"storefront/config"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	demoEmail    = "test@example.com"
	demoPassword = "Password123"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(util.LogOptions{Env: cfg.Server.Env, Level: cfg.Server.LogLevel}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	catalog := buildCatalog()
	if err := db.Seed(ctx, catalog); err != nil {
		logger.Fatal("Failed to seed catalog", zap.Error(err))
	}
	logger.Info("Catalog seeded",
		zap.Int("categories", len(catalog.Categories)),
		zap.Int("brands", len(catalog.Brands)),
		zap.Int("products", len(catalog.Products)),
		zap.Int("payment_methods", len(catalog.PaymentMethods)))

	if err := seedDemoUser(ctx, db, cfg.Auth.BcryptCost); err != nil {
		logger.Fatal("Failed to seed demo user", zap.Error(err))
	}
}

// seedDemoUser creates the demo account with one default address unless it exists
func seedDemoUser(ctx context.Context, db *store.Store, cost int) error {
	logger := util.Named("seed")

	existing, err := db.GetUserByEmail(ctx, demoEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Info("Demo user already present", zap.Int64("user_id", existing.ID))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), cost)
	if err != nil {
		return err
	}

	user := &models.User{
		Email:        demoEmail,
		PasswordHash: string(hash),
		FirstName:    "Test",
		LastName:     "User",
	}
	if err := db.CreateUser(ctx, user); err != nil {
		return err
	}

	address := &models.Address{
		UserID:     user.ID,
		Name:       "Test User",
		Line1:      "Tadeusza Konicza 7",
		City:       "Zielona Gora",
		PostalCode: "65-001",
		Country:    "PL",
		IsDefault:  true,
	}
	if err := db.CreateAddress(ctx, address); err != nil {
		return err
	}

	logger.Info("Demo user created", zap.Int64("user_id", user.ID), zap.String("email", demoEmail))
	return nil
}
