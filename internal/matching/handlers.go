// internal/matching/handlers.go

package matching

import (
	"encoding/json"
	"net/http"

	"github.com/collegecrush/crush-backend/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type SwipeDTO struct {
	TargetID string `json:"target_id" validate:"required"`
	Action   string `json:"action" validate:"required,oneof=like pass"`
}

type PreferencesDTO struct {
	AgeMin              int      `json:"age_min" validate:"required,min=18,max=100"`
	AgeMax              int      `json:"age_max" validate:"required,min=18,max=100,gtefield=AgeMin"`
	MaxDistance         float64  `json:"max_distance" validate:"min=0,max=20000"`
	PreferredGenders    []string `json:"preferred_genders" validate:"dive,oneof=Male Female Other"`
	Interests           []string `json:"interests" validate:"max=50"`
	ActivityWeight      float64  `json:"activity_weight" validate:"min=0,max=1"`
	DiversityWeight     float64  `json:"diversity_weight" validate:"min=0,max=1"`
	CompatibilityWeight float64  `json:"compatibility_weight" validate:"min=0,max=1"`
}

// Discover returns the ranked candidate pool for the authenticated user
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	variant := Variant(r.URL.Query().Get("variant"))
	profiles, err := h.service.RankCandidates(r.Context(), userID, variant)
	if err != nil {
		if err == ErrProfileNotFound {
			utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to rank candidates")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, profiles)
}

// Swipe records a like/pass action
func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var dto SwipeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	liked := dto.Action == "like"
	if err := h.service.RecordSwipe(r.Context(), userID, dto.TargetID, liked); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to record swipe")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"target_id": dto.TargetID,
		"liked":     liked,
	})
}

// GetPreferences returns saved preferences or the defaults
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	prefs, err := h.service.GetPreferences(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get preferences")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences saves preferences and invalidates cached rankings
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var dto PreferencesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs := &Preferences{
		AgeRange:            AgeRange{Min: dto.AgeMin, Max: dto.AgeMax},
		MaxDistance:         dto.MaxDistance,
		PreferredGenders:    dto.PreferredGenders,
		Interests:           dto.Interests,
		ActivityWeight:      dto.ActivityWeight,
		DiversityWeight:     dto.DiversityWeight,
		CompatibilityWeight: dto.CompatibilityWeight,
	}

	if err := h.service.SavePreferences(r.Context(), userID, prefs); err != nil {
		if err == ErrInvalidPreferences {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save preferences")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, prefs)
}

// GetVariant reports the experiment bucket for the authenticated user
func (h *Handler) GetVariant(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"variant": string(h.service.AssignVariant(userID)),
	})
}
