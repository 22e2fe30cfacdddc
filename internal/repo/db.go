// Package repo implements the data persistence layer for the messaging
// gateway's domain entities, backed by GORM. This file contains database
// bootstrapping helpers: SQLite (pure Go driver, the dev/default path) and
// Postgres (the production path, opened when DATABASE_URL is a postgres://
// DSN), plus the attachment-schema-variant probe used by message
// persistence (§7).
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/domain"
)

// Open opens either a SQLite or Postgres database depending on dsn's
// scheme. An empty dsn is a programmer error -- callers must fall back to
// in-memory-only mode themselves (see cmd/server) rather than calling Open.
func Open(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return openPostgres(dsn)
	}
	return OpenSQLite(strings.TrimPrefix(dsn, "sqlite://"))
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		path = "file::memory:?cache=shared"
	}
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	tunePool(db)
	return db, nil
}

func openPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	tunePool(db)
	return db, nil
}

func tunePool(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// AutoMigrate creates/updates the gateway's schema. The server runs it at
// startup for every DSN, sqlite and Postgres alike; on Postgres it runs on
// top of any versioned migrations applied via github.com/pressly/goose/v3
// (see cmd/migrate).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Conversation{},
		&domain.MessageBody{},
		&domain.Message{},
		&domain.Attachment{},
		&domain.MessageAttachment{},
		&domain.InboundEvent{},
	)
}

// AttachmentSchemaVariant identifies which historical set of columns the
// attachment_urls table carries (§7).
type AttachmentSchemaVariant int

const (
	AttachmentVariantURLOnly AttachmentSchemaVariant = iota
	AttachmentVariantRawHash
	AttachmentVariantRawHashURL
)

// ProbeAttachmentSchema inspects attachment_urls' columns once at startup
// and returns the effective variant, used by message persistence to choose
// an insert strategy.
func ProbeAttachmentSchema(db *gorm.DB) (AttachmentSchemaVariant, error) {
	hasURL := db.Migrator().HasColumn(&domain.Attachment{}, "url")
	hasHash := db.Migrator().HasColumn(&domain.Attachment{}, "hash")
	hasRaw := db.Migrator().HasColumn(&domain.Attachment{}, "raw")

	switch {
	case hasRaw && hasHash && hasURL:
		return AttachmentVariantRawHashURL, nil
	case hasRaw && hasHash:
		return AttachmentVariantRawHash, nil
	default:
		return AttachmentVariantURLOnly, nil
	}
}
