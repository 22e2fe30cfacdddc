// Package handlers provides HTTP handler implementations for the public API.
//
// This file implements the provider-inbound webhook endpoints (§6): POST
// /api/webhooks/sms and POST /api/webhooks/email. Accepted payloads are
// written to the durable inbound event store (§4.E) for the inbound worker
// to claim and process; when no database is configured there is no worker
// to claim anything, so the event is instead applied synchronously to the
// in-memory fallback store (§9) and the fallback counter is incremented.
package handlers

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-chat-backend/internal/apierr"
	"github.com/tbourn/go-chat-backend/internal/domain"
	"github.com/tbourn/go-chat-backend/internal/repo"
)

type webhookSMSRequest struct {
	From                string   `json:"from"`
	To                  string   `json:"to"`
	Type                string   `json:"type"`
	MessagingProviderID string   `json:"messaging_provider_id"`
	Body                string   `json:"body"`
	Attachments         []string `json:"attachments"`
	Timestamp           string   `json:"timestamp"`
}

type webhookEmailRequest struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	XillioID    string   `json:"xillio_id"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
	Timestamp   string   `json:"timestamp"`
}

// PostWebhooksSMS handles POST /api/webhooks/sms.
//
// @ID PostWebhooksSMS
// @Summary Receive a provider-originated inbound SMS/MMS callback
// @Tags webhooks
// @Accept json
// @Produce json
// @Param request body webhookSMSRequest true "inbound callback"
// @Success 202 {object} map[string]string
// @Failure 400,415,429,503 {object} ErrorResponse
// @Router /api/webhooks/sms [post]
func (a *App) PostWebhooksSMS(c *gin.Context) {
	var req webhookSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailErr(c, apierr.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
		FailErr(c, apierr.New(apierr.KindBadRequest, "'from' and 'to' are required"))
		return
	}
	if len(req.Attachments) > a.MaxAttachments {
		FailErr(c, apierr.New(apierr.KindBadRequest, "too many attachments"))
		return
	}

	channel := "sms"
	if strings.EqualFold(strings.TrimSpace(req.Type), "mms") {
		channel = "mms"
	}

	a.acceptInboundEvent(c, channel, req.From, req.To, req.Body, req.Timestamp, nonEmptyPtr(req.MessagingProviderID), req)
}

// PostWebhooksEmail handles POST /api/webhooks/email.
//
// @ID PostWebhooksEmail
// @Summary Receive a provider-originated inbound email callback
// @Tags webhooks
// @Accept json
// @Produce json
// @Param request body webhookEmailRequest true "inbound callback"
// @Success 202 {object} map[string]string
// @Failure 400,415,429,503 {object} ErrorResponse
// @Router /api/webhooks/email [post]
func (a *App) PostWebhooksEmail(c *gin.Context) {
	var req webhookEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailErr(c, apierr.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	if strings.TrimSpace(req.From) == "" || strings.TrimSpace(req.To) == "" {
		FailErr(c, apierr.New(apierr.KindBadRequest, "'from' and 'to' are required"))
		return
	}
	if len(req.Attachments) > a.MaxAttachments {
		FailErr(c, apierr.New(apierr.KindBadRequest, "too many attachments"))
		return
	}

	a.acceptInboundEvent(c, "email", req.From, req.To, req.Body, req.Timestamp, nonEmptyPtr(req.XillioID), req)
}

func nonEmptyPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// acceptInboundEvent persists the raw payload to the durable inbound event
// store and always responds 202 — the inbound worker, not this handler,
// owns retry/backoff. In in-memory-only mode there is no worker to hand the
// event to, so it is applied directly to the fallback store instead (§9)
// and counted via inbound_store_fallback.
func (a *App) acceptInboundEvent(c *gin.Context, channel, from, to, body, timestamp string, providerMessageID *string, payload any) {
	if a.DB == nil {
		a.Metrics.RecordInboundStoreFallback()
		sentAt := time.Now().UTC()
		if timestamp != "" {
			if parsed, perr := time.Parse(time.RFC3339, timestamp); perr == nil {
				sentAt = parsed
			}
		}
		receivedAt := time.Now().UTC()
		a.Mem.InsertMessage(channel, string(domain.DirectionInbound), from, to, body, sentAt, &receivedAt)
		log.Warn().Str("channel", channel).Msg("inbound webhook: no database configured, applied to in-memory fallback store")
		ok(c, 202, gin.H{"status": "accepted"})
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		FailErr(c, apierr.New(apierr.KindInternal, "failed to encode inbound payload"))
		return
	}

	if err := repo.InsertInboundEvent(c.Request.Context(), a.DB, channel, from, to, providerMessageID, string(raw)); err != nil {
		FailErr(c, apierr.New(apierr.KindInternal, "failed to persist inbound event"))
		return
	}

	ok(c, 202, gin.H{"status": "accepted"})
}
