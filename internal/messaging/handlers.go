// internal/messaging/handlers.go

package messaging

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/collegecrush/crush-backend/internal/common/utils"
)

type Handler struct {
	messenger *Messenger
	store     Store
}

func NewHandler(messenger *Messenger, store Store) *Handler {
	return &Handler{
		messenger: messenger,
		store:     store,
	}
}

type SendMessageDTO struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Text           string `json:"text" validate:"required,min=1,max=2000"`
}

// SendMessage attempts delivery and reports queued-for-retry as 202 so the
// client can render the message as pending rather than failed
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var dto SendMessageDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	message, err := h.messenger.Send(r.Context(), dto.ConversationID, dto.Text, userID)
	if err != nil {
		var queued *QueuedError
		if errors.As(err, &queued) {
			utils.RespondWithJSON(w, http.StatusAccepted, map[string]string{
				"temp_id": queued.TempID,
				"status":  "queued",
			})
			return
		}
		if errors.Is(err, ErrEmptyMessage) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, message)
}

// GetPendingCount reports the retry queue depth
func (h *Handler) GetPendingCount(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]int{
		"pending": h.messenger.PendingCount(),
	})
}

// GetConversationMessages lists a conversation's messages, newest first
func (h *Handler) GetConversationMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conversationID := vars["id"]

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	messages, err := h.store.ListMessages(r.Context(), conversationID, limit, offset)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get messages")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, messages)
}
