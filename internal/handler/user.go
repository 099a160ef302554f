package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fitcoach/api-server-go/internal/middleware"
	"github.com/fitcoach/api-server-go/internal/model"
	"github.com/fitcoach/api-server-go/internal/service"
	"github.com/fitcoach/api-server-go/internal/util"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// POST /update-personal-details
func (h *UserHandler) UpdatePersonalDetails(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Height int    `json:"height"`
		Weight int    `json:"weight"`
		Age    int    `json:"age"`
		Gender string `json:"gender"`
		Goals  string `json:"goals"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, decodeError())
		return
	}
	if req.Gender != "" && !util.IsValidEnum(req.Gender, []string{"male", "female", "other"}) {
		writeError(w, decodeError())
		return
	}

	email := middleware.GetIdentity(r.Context())
	user, err := h.userService.UpdateProfile(r.Context(), email, model.UpdateProfileParams{
		Height: req.Height,
		Weight: req.Weight,
		Age:    req.Age,
		Gender: req.Gender,
		Goals:  req.Goals,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Personal details updated.",
		"user":    formatUser(user),
	})
}

// POST /save-workout
func (h *UserHandler) SaveWorkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, decodeError())
		return
	}

	email := middleware.GetIdentity(r.Context())
	saved, err := h.userService.SaveWorkout(r.Context(), email, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}

	workouts := make([]map[string]any, 0, len(saved))
	for _, workout := range saved {
		workouts = append(workouts, formatWorkout(workout))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Workout saved.",
		"workouts": workouts,
	})
}
