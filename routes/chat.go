package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat-platform/internal/chat"
	"docchat-platform/models"
	"docchat-platform/utils"
)

func SetupChatRoutes(api *gin.RouterGroup, svc *chat.Service) {
	messages := api.Group("/chat/messages")

	messages.POST("", HandleSendMessage(svc))
	messages.GET("", HandleListMessages(svc))
	messages.DELETE("", HandleClearMessages(svc))
}

func HandleSendMessage(svc *chat.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_input", "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		resp, err := svc.Send(ctx, req.Content, req.LanguageHint)
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			utils.RespondWithValidationError(c, "invalid_input", "Message content is empty")
			return
		case err != nil:
			c.Error(err)
			utils.RespondWithInternalError(c, "Failed to answer message", nil)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func HandleListMessages(svc *chat.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		msgs, err := svc.History(ctx)
		if err != nil {
			c.Error(err)
			utils.RespondWithInternalError(c, "Failed to load messages", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

func HandleClearMessages(svc *chat.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		if err := svc.Clear(ctx); err != nil {
			c.Error(err)
			utils.RespondWithInternalError(c, "Failed to clear messages", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared"})
	}
}
