package db

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vikasavnish/listinghub/internal/config"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:seed_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func TestSeed_CreatesAdminAndDemoUsersOnce(t *testing.T) {
	db := openSQLite(t)
	cfg := config.SeedConfig{AdminEmail: "root@example.com", AdminPassword: "s3cret", DemoUsers: true}

	var out bytes.Buffer
	log := logging.New(&out, "info")
	require.NoError(t, Seed(db, cfg, log))
	require.NoError(t, Seed(db, cfg, log))

	assert.Equal(t, 4, strings.Count(out.String(), `msg="seeded user"`), "second run creates nothing")
	assert.Contains(t, out.String(), "email=root@example.com")

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(4), count)

	var admin models.User
	require.NoError(t, db.Where("email = ?", "root@example.com").First(&admin).Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.HashedPassword), []byte("s3cret")))

	var buyer models.User
	require.NoError(t, db.Where("email = ?", "buyer@test.dev").First(&buyer).Error)
	assert.Equal(t, models.RoleBuyer, buyer.Role)
}
