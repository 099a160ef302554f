package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fitcoach/api-server-go/internal/middleware"
	"github.com/fitcoach/api-server-go/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, decodeError())
		return
	}

	email := middleware.GetIdentity(r.Context())
	reply, err := h.chatService.Send(r.Context(), email, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}
