// Package http exposes the chat backend over REST and WebSocket.
// Handlers only translate between the wire and the service; every rule
// lives below them.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/errors"
	"chat-backend/observability"
)

var validate = validator.New()

type createChatRequest struct {
	Participants []string `json:"participants" validate:"required,min=1,unique,dive,required"`
}

type sendMessageRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Kind    string `json:"kind" validate:"required,oneof=text image audio"`
	Content string `json:"content"`
}

type updatePresenceRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Status string `json:"status" validate:"required,oneof=online offline typing"`
}

type markReadRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type createChatResponse struct {
	ChatID       string   `json:"chat_id"`
	Participants []string `json:"participants"`
}

type sendMessageResponse struct {
	Status string `json:"status"`
}

type updatePresenceResponse struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type readReceiptResponse struct {
	ChatID            string     `json:"chat_id"`
	UserID            string     `json:"user_id"`
	LastReadMessageID *uuid.UUID `json:"last_read_message_id"`
}

type readReceiptsResponse struct {
	ChatID       string                `json:"chat_id"`
	ReadReceipts map[string]*uuid.UUID `json:"read_receipts"`
}

// Handlers carries the dependencies shared by every endpoint.
type Handlers struct {
	log            *slog.Logger
	service        contract.IChatService
	metrics        *observability.Metrics
	upgrader       websocket.Upgrader
	sinkBufferSize int
}

// NewHandlers wires the endpoints. sinkBufferSize is the per-connection
// event buffer; a subscriber lagging behind that many frames is cut off.
func NewHandlers(log *slog.Logger, service contract.IChatService, metrics *observability.Metrics, sinkBufferSize int) *Handlers {
	return &Handlers{
		log:     log,
		service: service,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Demo backend: any origin may connect
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sinkBufferSize: sinkBufferSize,
	}
}

// Routes binds every endpoint on a fresh mux.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chats", h.createChat)
	mux.HandleFunc("GET /chats", h.listChats)
	mux.HandleFunc("GET /chats/{chat_id}/messages", h.getMessages)
	mux.HandleFunc("POST /chats/{chat_id}/messages", h.sendMessage)
	mux.HandleFunc("GET /chats/{chat_id}/presence", h.getPresence)
	mux.HandleFunc("POST /chats/{chat_id}/presence", h.updatePresence)
	mux.HandleFunc("GET /chats/{chat_id}/read", h.getReadReceipts)
	mux.HandleFunc("POST /chats/{chat_id}/read", h.markRead)
	mux.HandleFunc("GET /ws/{chat_id}", h.stream)
	return mux
}

func (h *Handlers) createChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if !h.decode(w, r, &req) {
		return
	}

	chat, err := h.service.CreateChat(r.Context(), req.Participants)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// The bot is an implementation detail: echo back the humans only
	h.writeJSON(w, http.StatusCreated, createChatResponse{
		ChatID:       chat.ID,
		Participants: chat.HumanParticipants(),
	})
}

func (h *Handlers) listChats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.ListChats(r.Context()))
}

func (h *Handlers) getMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.GetMessages(r.Context(), r.PathValue("chat_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messages)
}

func (h *Handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, err := h.service.SendMessage(r.Context(), r.PathValue("chat_id"),
		req.UserID, domain.MessageKind(req.Kind), req.Content)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// The canonical copy arrives on the event stream; the REST reply is
	// just an acknowledgment.
	h.writeJSON(w, http.StatusCreated, sendMessageResponse{Status: "message_sent"})
}

func (h *Handlers) updatePresence(w http.ResponseWriter, r *http.Request) {
	var req updatePresenceRequest
	if !h.decode(w, r, &req) {
		return
	}

	chatID := r.PathValue("chat_id")
	presence, err := h.service.UpdatePresence(r.Context(), chatID,
		req.UserID, domain.PresenceStatus(req.Status))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updatePresenceResponse{
		ChatID: chatID,
		UserID: req.UserID,
		Status: string(presence.Status),
	})
}

func (h *Handlers) getPresence(w http.ResponseWriter, r *http.Request) {
	presences, err := h.service.GetPresence(r.Context(), r.PathValue("chat_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, presences)
}

func (h *Handlers) markRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if !h.decode(w, r, &req) {
		return
	}

	chatID := r.PathValue("chat_id")
	lastRead, err := h.service.MarkRead(r.Context(), chatID, req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, readReceiptResponse{
		ChatID:            chatID,
		UserID:            req.UserID,
		LastReadMessageID: lastRead,
	})
}

func (h *Handlers) getReadReceipts(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chat_id")
	receipts, err := h.service.GetReadReceipts(r.Context(), chatID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, readReceiptsResponse{
		ChatID:       chatID,
		ReadReceipts: receipts,
	})
}

// decode unmarshals and validates the body, answering 400 on its own
// when something is off.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, errors.NewValidation("invalid request body: %v", err))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		h.writeError(w, err)
		return false
	}
	return true
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := errors.MapToHTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Failed to encode response", "error", err)
	}
}
