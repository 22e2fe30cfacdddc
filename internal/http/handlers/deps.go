// Package handlers provides HTTP handler implementations for the public API.
package handlers

import (
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-backend/internal/idempotency"
	"github.com/tbourn/go-chat-backend/internal/memstore"
	"github.com/tbourn/go-chat-backend/internal/metrics"
	"github.com/tbourn/go-chat-backend/internal/outbound"
	"github.com/tbourn/go-chat-backend/internal/providers"
	"github.com/tbourn/go-chat-backend/internal/ratelimit"
	"github.com/tbourn/go-chat-backend/internal/repo"
	"github.com/tbourn/go-chat-backend/internal/snippet"
)

// App bundles every dependency the gateway's handlers need. A single
// instance is constructed at startup (cmd/server/main.go) and passed to
// RegisterRoutes; DB may be nil when the process degraded to in-memory-only
// mode (spec: database pool creation failure is non-fatal), in which case
// Mem backs the conversation/message read and write paths instead (§9).
type App struct {
	DB  *gorm.DB
	Mem *memstore.Store

	Dispatcher  *outbound.Dispatcher
	Providers   *providers.Registry
	Metrics     *metrics.Registry
	Idempotency *idempotency.Store
	SenderLimit *ratelimit.Limiter
	Snippet     snippet.Maker

	MaxAttachments  int
	SnippetMaxChars int
	AttachmentMode  repo.AttachmentSchemaVariant

	// Ready reports whether startup has completed (workers launched, DB
	// pinged if configured); used by readyz.
	Ready func() bool
}

// New constructs an App with the given dependencies.
func New(app App) *App {
	a := app
	return &a
}
