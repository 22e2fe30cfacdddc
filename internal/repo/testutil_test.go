package repo

import (
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

// openTestDB opens a fresh in-memory SQLite database, migrated with the full
// domain schema, for use by this package's tests.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func fetchConversationByID(db *gorm.DB, id string) (domain.Conversation, error) {
	var c domain.Conversation
	err := db.Where("id = ?", id).First(&c).Error
	return c, err
}
