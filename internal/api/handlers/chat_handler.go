package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/karpool/karpool-client/internal/api/dto"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
	"github.com/karpool/karpool-client/pkg/logger"
)

// currentUserID answers 401 when nobody is logged in
func (h *Handlers) currentUserID(c *gin.Context) (string, bool) {
	u, ok := h.Session.User()
	if !ok {
		h.respondError(c, apperrors.ErrNotLoggedIn)
		return "", false
	}
	return strconv.FormatInt(u.ID, 10), true
}

// ListChats handles GET /v1/chats
func (h *Handlers) ListChats(c *gin.Context) {
	me, ok := h.currentUserID(c)
	if !ok {
		return
	}

	chats, err := h.Chat.Chats(c.Request.Context(), me)
	if err != nil {
		h.Logger.Error("Failed to list chats", logger.Err(err))
		h.respondError(c, apperrors.ServiceUnavailable("Chats are unavailable", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// OpenChat handles POST /v1/chats
func (h *Handlers) OpenChat(c *gin.Context) {
	me, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req dto.OpenChatRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.With == me {
		h.respondError(c, apperrors.BadRequest("Cannot open a chat with yourself", nil))
		return
	}

	chatID, err := h.Chat.GetOrCreateChat(c.Request.Context(), me, req.With)
	if err != nil {
		h.Logger.Error("Failed to open chat", logger.Err(err))
		h.respondError(c, apperrors.ServiceUnavailable("Chats are unavailable", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatId": chatID, "topic": ChatTopicPrefix + chatID})
}

// GetMessages handles GET /v1/chats/:chatId/messages
func (h *Handlers) GetMessages(c *gin.Context) {
	if _, ok := h.currentUserID(c); !ok {
		return
	}

	msgs, err := h.Chat.Messages(c.Request.Context(), c.Param("chatId"))
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage handles POST /v1/chats/:chatId/messages. Blank text is
// accepted and ignored.
func (h *Handlers) SendMessage(c *gin.Context) {
	me, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req dto.ChatMessageRequest
	if !h.bindJSON(c, &req) {
		return
	}

	msg, err := h.Chat.SendMessage(c.Request.Context(), c.Param("chatId"), me, req.Text)
	if err != nil {
		h.respondChatError(c, err)
		return
	}
	if msg == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// DeleteChat handles DELETE /v1/chats/:chatId
func (h *Handlers) DeleteChat(c *gin.Context) {
	if _, ok := h.currentUserID(c); !ok {
		return
	}

	if err := h.Chat.DeleteChat(c.Request.Context(), c.Param("chatId")); err != nil {
		h.respondChatError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) respondChatError(c *gin.Context, err error) {
	if apperrors.IsAppError(err) {
		h.respondError(c, err)
		return
	}
	h.Logger.Error("Chat store failure", logger.Err(err), logger.String("chat_id", c.Param("chatId")))
	h.respondError(c, apperrors.ServiceUnavailable("Chats are unavailable", err))
}
