package handler

import (
	"net/http"
	"time"

	apperrors "github.com/fitcoach/api-server-go/internal/errors"
	"github.com/fitcoach/api-server-go/internal/httputil"
	"github.com/fitcoach/api-server-go/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func decodeError() *apperrors.AppError {
	return apperrors.ValidationError("Invalid request body")
}

func formatUser(user *model.User) map[string]any {
	return map[string]any{
		"email":     user.Email,
		"verified":  user.Verified,
		"height":    user.Height,
		"weight":    user.Weight,
		"age":       user.Age,
		"gender":    user.Gender,
		"goals":     user.Goals,
		"updatedAt": user.UpdatedAt.Format(time.RFC3339),
	}
}

func formatWorkout(w model.Workout) map[string]any {
	return map[string]any{
		"id":       w.ID,
		"date":     w.Date,
		"exercise": w.Exercise,
		"reps":     w.Reps,
		"duration": w.Duration,
		"details":  w.Details,
		"loggedAt": w.LoggedAt.Format(time.RFC3339),
	}
}
