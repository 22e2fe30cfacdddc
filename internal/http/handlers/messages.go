// Package handlers provides HTTP handler implementations for the public API.
//
// This file implements the outbound message endpoints (§6): POST
// /api/messages/sms and POST /api/messages/email. Both accept a send
// request, run the handler-level admission checks spec.md §4.L assigns past
// the outer middleware stack (sender rate limit, idempotency-key
// suppression, attachment-count/mms-attachment validation), and enqueue the
// accepted send onto the outbound dispatch worker.
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/apierr"
	"github.com/tbourn/go-chat-backend/internal/http/middleware"
	"github.com/tbourn/go-chat-backend/internal/outbound"
)

type outboundSMSRequest struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Type        string   `json:"type"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
	Timestamp   string   `json:"timestamp"`
}

type outboundEmailRequest struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
	Timestamp   string   `json:"timestamp"`
}

// PostMessagesSMS handles POST /api/messages/sms.
//
// @ID PostMessagesSMS
// @Summary Send an outbound SMS or MMS
// @Tags messages
// @Accept json
// @Produce json
// @Param request body outboundSMSRequest true "send request"
// @Success 202 {object} map[string]string
// @Failure 400,415,429,503 {object} ErrorResponse
// @Router /api/messages/sms [post]
func (a *App) PostMessagesSMS(c *gin.Context) {
	var req outboundSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailErr(c, apierr.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	typ := strings.ToLower(strings.TrimSpace(req.Type))
	if typ != "sms" && typ != "mms" {
		FailErr(c, apierr.New(apierr.KindBadRequest, "'type' must be 'sms' or 'mms'"))
		return
	}
	if !validateOutboundShape(c, req.From, req.To, req.Body, req.Attachments, typ == "mms", a.MaxAttachments) {
		return
	}
	if !a.admitSender(c, req.From) {
		return
	}

	a.enqueueOutbound(c, outbound.Item{
		EventName:      "api.messages.sms",
		Type:           typ,
		From:           req.From,
		To:             req.To,
		Body:           req.Body,
		Attachments:    req.Attachments,
		IdempotencyKey: idemKeyOrEmpty(c),
	})
}

// PostMessagesEmail handles POST /api/messages/email.
//
// @ID PostMessagesEmail
// @Summary Send an outbound email
// @Tags messages
// @Accept json
// @Produce json
// @Param request body outboundEmailRequest true "send request"
// @Success 202 {object} map[string]string
// @Failure 400,415,429,503 {object} ErrorResponse
// @Router /api/messages/email [post]
func (a *App) PostMessagesEmail(c *gin.Context) {
	var req outboundEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailErr(c, apierr.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	if !validateOutboundShape(c, req.From, req.To, req.Body, req.Attachments, false, a.MaxAttachments) {
		return
	}
	if !a.admitSender(c, req.From) {
		return
	}

	a.enqueueOutbound(c, outbound.Item{
		EventName:      "api.messages.email",
		From:           req.From,
		To:             req.To,
		Body:           req.Body,
		Attachments:    req.Attachments,
		IdempotencyKey: idemKeyOrEmpty(c),
	})
}

// validateOutboundShape applies the schema validation spec.md §4.L assigns
// to handlers: required from/to/body, attachment count ceiling, and (for
// mms) at least one attachment.
func validateOutboundShape(c *gin.Context, from, to, body string, attachments []string, requiresAttachment bool, maxAttachments int) bool {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		FailErr(c, apierr.New(apierr.KindBadRequest, "'from' and 'to' are required"))
		return false
	}
	if strings.TrimSpace(body) == "" {
		FailErr(c, apierr.New(apierr.KindBadRequest, "'body' is required"))
		return false
	}
	if len(attachments) > maxAttachments {
		FailErr(c, apierr.New(apierr.KindBadRequest, "too many attachments"))
		return false
	}
	if requiresAttachment && len(attachments) == 0 {
		FailErr(c, apierr.New(apierr.KindBadRequest, "mms requires at least one attachment"))
		return false
	}
	return true
}

// admitSender enforces the per-sender rate limit (§4.J) at the handler
// layer, past the outer IP-keyed admission middleware.
func (a *App) admitSender(c *gin.Context, from string) bool {
	if a.SenderLimit != nil && !a.SenderLimit.Allow(from) {
		FailErr(c, apierr.ErrRateLimited.WithRetryAfter(60))
		return false
	}
	return true
}

// idemKeyOrEmpty reads the idempotency key stashed by IdempotencyExtractor,
// if any.
func idemKeyOrEmpty(c *gin.Context) string {
	key, _ := middleware.GetIdempotencyKey(c)
	return key
}

// enqueueOutbound applies idempotency-key suppression (accepted-without-
// enqueue on replay) and then offers the item to the dispatcher.
func (a *App) enqueueOutbound(c *gin.Context, item outbound.Item) {
	if item.IdempotencyKey != "" && a.Idempotency != nil {
		if !a.Idempotency.SeenOrInsert(item.IdempotencyKey) {
			ok(c, 202, gin.H{"status": "accepted"})
			return
		}
	}
	a.Dispatcher.Enqueue(item)
	ok(c, 202, gin.H{"status": "accepted"})
}
