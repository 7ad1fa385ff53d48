package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vikasavnish/listinghub/internal/config"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
)

// Connect establishes a connection to the database
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return db, nil
}

// Migrate creates or updates the users, listings, listing_photos, user_favourites
// and listing_prices tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.ListingPhoto{},
		&models.Favorite{},
		&models.PriceHistoryEntry{},
	)
}

// ConnectRedis establishes a connection to Redis
func ConnectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	ctx := context.Background()

	// Test the connection
	_, err = client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// demoUsers mirror the accounts the client team tests against.
var demoUsers = []models.User{
	{Email: "agent@test.dev", FirstName: "Test", LastName: "Agent", Role: models.RoleAgent},
	{Email: "investor@test.dev", FirstName: "Test", LastName: "Investor", Role: models.RoleInvestor},
	{Email: "buyer@test.dev", FirstName: "Test", LastName: "Buyer", Role: models.RoleBuyer},
}

const demoPassword = "Test123!"

// Seed creates the default admin and, when enabled, the demo accounts. Existing emails are left alone.
func Seed(db *gorm.DB, cfg config.SeedConfig, log logging.Logger) error {
	if err := ensureUser(db, log, models.User{
		Email:     cfg.AdminEmail,
		FirstName: "Site",
		LastName:  "Admin",
		Role:      models.RoleAdmin,
	}, cfg.AdminPassword); err != nil {
		return err
	}

	if !cfg.DemoUsers {
		return nil
	}
	for _, u := range demoUsers {
		if err := ensureUser(db, log, u, demoPassword); err != nil {
			return err
		}
	}
	return nil
}

func ensureUser(db *gorm.DB, log logging.Logger, u models.User, password string) error {
	var existing models.User
	err := db.Where("email = ?", u.Email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.HashedPassword = string(hashedPassword)
	if err := db.Create(&u).Error; err != nil {
		return fmt.Errorf("seed %s: %w", u.Email, err)
	}
	log.Info(context.Background(), "seeded user", "role", u.Role, "email", u.Email)
	return nil
}
