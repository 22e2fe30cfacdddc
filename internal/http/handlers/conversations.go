// Package handlers provides HTTP handler implementations for the public API.
//
// This file implements the conversation/message read API (§4.M, §6):
// GET /api/conversations and GET /api/conversations/{id}/messages.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-backend/internal/apierr"
	"github.com/tbourn/go-chat-backend/internal/repo"
	"github.com/tbourn/go-chat-backend/internal/utils"
)

type conversationDTO struct {
	ID             string `json:"id"`
	Channel        string `json:"channel"`
	ParticipantA   string `json:"participant_a"`
	ParticipantB   string `json:"participant_b"`
	Key            string `json:"key"`
	MessageCount   int64  `json:"message_count"`
	LastActivityAt string `json:"last_activity_at"`
}

type pageMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// GetConversations handles GET /api/conversations.
//
// @ID GetConversations
// @Summary List conversations, most recently active first
// @Tags conversations
// @Produce json
// @Param page query int false "1-based page number"
// @Param pageSize query int false "page size (0 = default)"
// @Success 200 {object} map[string]any
// @Failure 406 {object} ErrorResponse
// @Router /api/conversations [get]
func (a *App) GetConversations(c *gin.Context) {
	page := utils.AtoiDefault(c.Query("page"), 1)
	pageSize := utils.AtoiDefault(c.Query("pageSize"), 0)

	if a.DB == nil {
		memRows, total := a.Mem.ListConversationsPage(page, pageSize)
		items := make([]conversationDTO, 0, len(memRows))
		for _, row := range memRows {
			items = append(items, conversationDTO{
				ID:             row.ID,
				Channel:        row.Channel,
				ParticipantA:   row.ParticipantA,
				ParticipantB:   row.ParticipantB,
				Key:            row.Key,
				MessageCount:   row.MessageCount,
				LastActivityAt: row.LastActivityAt.UTC().Format(timeLayout),
			})
		}
		ok(c, 200, gin.H{"items": items, "meta": pageMeta{Page: resolvedPage(page), PageSize: resolvedPageSize(pageSize), Total: total}})
		return
	}

	rows, total, err := repo.ListConversationsPage(c.Request.Context(), a.DB, page, pageSize)
	if err != nil {
		FailErr(c, apierr.New(apierr.KindInternal, "failed to list conversations"))
		return
	}

	items := make([]conversationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, conversationDTO{
			ID:             row.ID,
			Channel:        row.Channel,
			ParticipantA:   row.ParticipantA,
			ParticipantB:   row.ParticipantB,
			Key:            row.Key,
			MessageCount:   row.MessageCount,
			LastActivityAt: row.LastActivityAt.UTC().Format(timeLayout),
		})
	}

	ok(c, 200, gin.H{"items": items, "meta": pageMeta{Page: resolvedPage(page), PageSize: resolvedPageSize(pageSize), Total: total}})
}

// GetConversationMessages handles GET /api/conversations/{id}/messages.
//
// @ID GetConversationMessages
// @Summary List messages within a conversation, newest activity first
// @Tags conversations
// @Produce json
// @Param id path string true "conversation id"
// @Param page query int false "1-based page number"
// @Param pageSize query int false "page size (0 = default)"
// @Success 200 {object} map[string]any
// @Failure 406 {object} ErrorResponse
// @Router /api/conversations/{id}/messages [get]
func (a *App) GetConversationMessages(c *gin.Context) {
	id := c.Param("id")
	page := utils.AtoiDefault(c.Query("page"), 1)
	pageSize := utils.AtoiDefault(c.Query("pageSize"), 0)

	if a.DB == nil {
		memViews, total, found := a.Mem.ListConversationMessagesPage(id, page, pageSize, a.SnippetMaxChars, a.Snippet)
		if !found {
			FailErr(c, apierr.New(apierr.KindNotFound, "conversation not found"))
			return
		}
		views := make([]repo.MessageView, 0, len(memViews))
		for _, v := range memViews {
			views = append(views, repo.MessageView{
				ID:        v.ID,
				From:      v.From,
				To:        v.To,
				Type:      v.Type,
				Snippet:   v.Snippet,
				Timestamp: v.Timestamp,
			})
		}
		ok(c, 200, gin.H{"items": views, "meta": pageMeta{Page: resolvedPage(page), PageSize: resolvedPageSize(pageSize), Total: total}})
		return
	}

	views, total, err := repo.ListConversationMessagesPage(c.Request.Context(), a.DB, id, page, pageSize, a.SnippetMaxChars, a.Snippet)
	if err != nil {
		FailErr(c, apierr.New(apierr.KindNotFound, "conversation not found"))
		return
	}

	ok(c, 200, gin.H{"items": views, "meta": pageMeta{Page: resolvedPage(page), PageSize: resolvedPageSize(pageSize), Total: total}})
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// resolvedPage and resolvedPageSize delegate to utils.ClampPage/ClampPageSize,
// the shared page/pageSize conventions for every paginated list endpoint.
func resolvedPage(page int) int {
	return utils.ClampPage(page)
}

func resolvedPageSize(pageSize int) int {
	return utils.ClampPageSize(pageSize)
}
