package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/akovalyov/currex/internal/models"
)

func openCleanupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func seedUser(t *testing.T, db *gorm.DB, user models.User) models.User {
	t.Helper()
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestRunOncePrunesStaleUnverifiedAccounts(t *testing.T) {
	db := openCleanupTestDB(t)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	digest := "a3f5" // stand-in value, the cleaner never inspects it

	stale := seedUser(t, db, models.User{
		Email:             "stale@example.com",
		Username:          "stale",
		Password:          "hashed",
		VerificationToken: &digest,
		RegisteredAt:      now.Add(-8 * 24 * time.Hour),
		UpdatedAt:         now.Add(-8 * 24 * time.Hour),
	})
	fresh := seedUser(t, db, models.User{
		Email:        "fresh@example.com",
		Username:     "fresh",
		Password:     "hashed",
		RegisteredAt: now.Add(-10 * time.Minute),
		UpdatedAt:    now.Add(-10 * time.Minute),
	})
	verified := seedUser(t, db, models.User{
		Email:        "verified@example.com",
		Username:     "verified",
		Password:     "hashed",
		Verified:     true,
		RegisteredAt: now.Add(-30 * 24 * time.Hour),
		UpdatedAt:    now.Add(-30 * 24 * time.Hour),
	})

	cleaner := NewCleaner(db,
		WithNow(func() time.Time { return now }),
		WithPruneAfter(7*24*time.Hour),
		WithVerificationTTL(time.Hour),
	)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var remaining []models.User
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)

	ids := map[uint64]bool{}
	for _, u := range remaining {
		ids[u.ID] = true
	}
	require.False(t, ids[stale.ID])
	require.True(t, ids[fresh.ID])
	require.True(t, ids[verified.ID])
}

func TestRunOnceClearsExpiredTokenDigests(t *testing.T) {
	db := openCleanupTestDB(t)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	expiredDigest := "expired-digest"
	liveDigest := "live-digest"

	expired := seedUser(t, db, models.User{
		Email:             "expired@example.com",
		Username:          "expired",
		Password:          "hashed",
		VerificationToken: &expiredDigest,
		RegisteredAt:      now.Add(-3 * time.Hour),
		UpdatedAt:         now.Add(-3 * time.Hour),
	})
	live := seedUser(t, db, models.User{
		Email:             "live@example.com",
		Username:          "live",
		Password:          "hashed",
		VerificationToken: &liveDigest,
		RegisteredAt:      now.Add(-10 * time.Minute),
		UpdatedAt:         now.Add(-10 * time.Minute),
	})

	cleaner := NewCleaner(db,
		WithNow(func() time.Time { return now }),
		WithPruneAfter(7*24*time.Hour),
		WithVerificationTTL(time.Hour),
	)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", expired.ID).Error)
	require.Nil(t, stored.VerificationToken)

	var storedLive models.User
	require.NoError(t, db.First(&storedLive, "id = ?", live.ID).Error)
	require.NotNil(t, storedLive.VerificationToken)
	require.Equal(t, liveDigest, *storedLive.VerificationToken)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := openCleanupTestDB(t)

	cleaner := NewCleaner(db, WithSchedule("@every 1h"))
	require.NoError(t, cleaner.Start())

	stopCtx := cleaner.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("cron did not stop in time")
	}
}
