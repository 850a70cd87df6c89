// Package storagetest provides an in-memory database for tests of packages
// built on storage.Storage.
package storagetest

import (
	"chatview/backend/internal/models"
	"chatview/backend/internal/storage"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLite returns a migrated storage.Service backed by a private in-memory
// SQLite database that is closed when the test ends.
func NewSQLite(t *testing.T) *storage.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return storage.NewStorageService(db)
}

// SeedUsers inserts users with the given ids; username equals the id.
func SeedUsers(t *testing.T, s storage.Storage, ids ...string) []*models.User {
	t.Helper()

	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		u := &models.User{ID: id, Username: id}
		if err := s.SaveUser(context.Background(), u); err != nil {
			t.Fatalf("failed to seed user %s: %v", id, err)
		}
		users = append(users, u)
	}
	return users
}
