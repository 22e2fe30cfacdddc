// Package handlers provides HTTP handler implementations for the public API.
//
// This file implements the mock-provider test-harness endpoints (§6, §9):
// direct inbound injection bypassing real webhook shapes, and inspection/
// override/reset of the deterministic fault-injection config that drives
// internal/providers.MockProvider.
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/apierr"
	"github.com/tbourn/go-chat-backend/internal/providers"
)

type mockInboundRequest struct {
	Channel     string   `json:"channel"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Type        string   `json:"type"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
	Timestamp   string   `json:"timestamp"`
}

// PostProviderMockInbound handles POST /api/provider/mock/inbound: a
// channel-tagged inbound injection point used by tests and demos, bypassing
// the provider-specific webhook field shapes.
//
// @ID PostProviderMockInbound
// @Summary Inject a mock provider-originated inbound event
// @Tags provider-mock
// @Accept json
// @Produce json
// @Param request body mockInboundRequest true "tagged inbound event"
// @Success 202 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /api/provider/mock/inbound [post]
func (a *App) PostProviderMockInbound(c *gin.Context) {
	var req mockInboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailErr(c, apierr.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	channel := strings.ToLower(strings.TrimSpace(req.Channel))
	switch channel {
	case "sms", "mms", "email":
	default:
		FailErr(c, apierr.New(apierr.KindBadRequest, "'channel' must be 'sms', 'mms', or 'email'"))
		return
	}
	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
		FailErr(c, apierr.New(apierr.KindBadRequest, "'from' and 'to' are required"))
		return
	}

	a.acceptInboundEvent(c, channel, req.From, req.To, req.Body, req.Timestamp, nil, req)
}

type mockProviderConfig struct {
	TimeoutPct   int    `json:"timeout_pct"`
	ErrorPct     int    `json:"error_pct"`
	RateLimitPct int    `json:"ratelimit_pct"`
	Seed         *int64 `json:"seed,omitempty"`
}

func toFaultConfig(c mockProviderConfig) providers.FaultConfig {
	fc := providers.FaultConfig{
		TimeoutPct:   c.TimeoutPct,
		ErrorPct:     c.ErrorPct,
		RateLimitPct: c.RateLimitPct,
	}
	if c.Seed != nil {
		fc.Seed = *c.Seed
		fc.SeedSpecified = true
	}
	return fc
}

func fromFaultConfig(fc providers.FaultConfig) mockProviderConfig {
	c := mockProviderConfig{
		TimeoutPct:   fc.TimeoutPct,
		ErrorPct:     fc.ErrorPct,
		RateLimitPct: fc.RateLimitPct,
	}
	if fc.SeedSpecified {
		seed := fc.Seed
		c.Seed = &seed
	}
	return c
}

// mockLabel maps the optional ?provider= query param to the dispatcher's
// fault-config label, defaulting to "sms-mms" (matching the original
// implementation's single global config, applied here per-provider with
// "sms-mms" as the conventional default target).
func mockLabel(c *gin.Context) string {
	switch strings.ToLower(c.Query("provider")) {
	case "email":
		return "email"
	default:
		return "sms-mms"
	}
}

// GetProviderMockConfig handles GET /api/provider/mock/config.
//
// @ID GetProviderMockConfig
// @Summary Inspect the current fault-injection config for a mock provider
// @Tags provider-mock
// @Produce json
// @Param provider query string false "sms-mms (default) or email"
// @Success 200 {object} mockProviderConfig
// @Router /api/provider/mock/config [get]
func (a *App) GetProviderMockConfig(c *gin.Context) {
	ok(c, 200, fromFaultConfig(a.Dispatcher.FaultsFor(mockLabel(c))))
}

// PutProviderMockConfig handles PUT /api/provider/mock/config.
//
// @ID PutProviderMockConfig
// @Summary Override the fault-injection config for a mock provider
// @Tags provider-mock
// @Accept json
// @Produce json
// @Param provider query string false "sms-mms (default) or email"
// @Param request body mockProviderConfig true "fault-injection config"
// @Success 200 {object} mockProviderConfig
// @Failure 400 {object} ErrorResponse
// @Router /api/provider/mock/config [put]
func (a *App) PutProviderMockConfig(c *gin.Context) {
	var req mockProviderConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		FailErr(c, apierr.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	label := mockLabel(c)
	a.Dispatcher.SetFaultsFor(label, toFaultConfig(req))
	ok(c, 200, fromFaultConfig(a.Dispatcher.FaultsFor(label)))
}

// PostProviderMockReset handles POST /api/provider/mock/reset: reseeds every
// registered mock provider's LCG state back to its golden-ratio fallback, a
// convenience operation grounded on MockProvider.Reset (absent from
// spec.md's literal endpoint table but named in SPEC_FULL.md's supplement of
// the original implementation's reset() helper).
//
// @ID PostProviderMockReset
// @Summary Reseed every mock provider's deterministic RNG state
// @Tags provider-mock
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/provider/mock/reset [post]
func (a *App) PostProviderMockReset(c *gin.Context) {
	for _, channel := range []string{"sms", "mms", "email"} {
		if p, ok := a.Providers.Lookup(channel); ok {
			if mp, ok := p.(*providers.MockProvider); ok {
				mp.Reset()
			}
		}
	}
	ok(c, 200, gin.H{"status": "reset"})
}
