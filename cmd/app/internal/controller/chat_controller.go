package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mindtrack-backend/internal/service"
	"mindtrack-backend/utilities"
)

// ChatController handles the wellness companion endpoints
type ChatController struct {
	ChatService service.ChatService
}

func NewChatController(chatService service.ChatService) *ChatController {
	return &ChatController{ChatService: chatService}
}

// ChatRequest represents the incoming chat message request
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// StreamChatResponse represents a streaming response chunk
type StreamChatResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (cc *ChatController) SendMessage(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	reply, err := cc.ChatService.SendMessage(c.Request.Context(), userID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// StreamChat handles streaming chat responses
func (cc *ChatController) StreamChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	started := false
	send := func(chunk StreamChatResponse) error {
		if !started {
			// Set headers for Server-Sent Events
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Status(http.StatusOK)
			started = true
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	_, err := cc.ChatService.StreamMessage(c.Request.Context(), userID, req.Message, func(response string, done bool) error {
		return send(StreamChatResponse{Response: response, Done: done})
	})
	if err != nil {
		if !started {
			respondError(c, err)
			return
		}
		utilities.Warn("chat stream for user %s ended with error: %v", userID, err)
		_ = send(StreamChatResponse{Error: "Failed to generate response", Done: true})
	}

	// Send completion signal
	if _, err := fmt.Fprint(c.Writer, "data: [DONE]\n\n"); err != nil {
		return
	}
	c.Writer.Flush()
}

func (cc *ChatController) GetHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
			return
		}
		limit = n
	}
	history, err := cc.ChatService.GetHistory(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
