package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/fitcoach/api-server-go/internal/completion"
	apperrors "github.com/fitcoach/api-server-go/internal/errors"
	"github.com/fitcoach/api-server-go/internal/model"
	"github.com/fitcoach/api-server-go/internal/repository"
)

const notesPrompt = "Transform the following workout notes into a JSON array of objects " +
	"with the keys: date, exercise, reps, duration, details. " +
	"Respond with JSON only.\n\nNotes:\n"

const notesSystemPrompt = "You are an assistant that transforms workout notes into JSON format."

type UserService struct {
	db          TxRunner
	userRepo    repository.UserRepository
	workoutRepo repository.WorkoutRepository
	completer   completion.Completer
}

func NewUserService(
	db TxRunner,
	userRepo repository.UserRepository,
	workoutRepo repository.WorkoutRepository,
	completer completion.Completer,
) *UserService {
	return &UserService{
		db:          db,
		userRepo:    userRepo,
		workoutRepo: workoutRepo,
		completer:   completer,
	}
}

func (s *UserService) UpdateProfile(ctx context.Context, email string, params model.UpdateProfileParams) (*model.User, error) {
	user, err := s.userRepo.UpdateProfile(ctx, email, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}

	log.Info().Str("email", email).Msg("profile updated")
	return user, nil
}

// workoutRow is the shape the completion service is asked to produce for
// each workout found in the notes.
type workoutRow struct {
	Date     *string         `json:"date"`
	Exercise string          `json:"exercise"`
	Reps     *int            `json:"reps"`
	Duration *int            `json:"duration"`
	Details  json.RawMessage `json:"details"`
}

// SaveWorkout sends free-form workout notes to the completion service for
// structuring and persists the resulting rows. The parsed rows are returned
// so the client can render what was stored.
func (s *UserService) SaveWorkout(ctx context.Context, email, notes string) ([]model.Workout, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, apperrors.MissingRequired("notes")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}

	raw, err := s.completer.Complete(ctx, []model.ChatMessage{
		{Role: model.RoleSystem, Content: notesSystemPrompt},
		{Role: model.RoleUser, Content: notesPrompt + notes},
	})
	if err != nil {
		return nil, apperrors.Completion(err)
	}

	rows, err := parseWorkoutRows(raw)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("completion returned unparseable workout JSON")
		return nil, apperrors.Completion(err)
	}

	var saved []model.Workout
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.workoutRepo.WithTx(tx)
		for _, row := range rows {
			workout, err := repo.Create(ctx, model.CreateWorkoutParams{
				UserID:   user.ID,
				Date:     row.Date,
				Exercise: row.Exercise,
				Reps:     row.Reps,
				Duration: row.Duration,
				Details:  row.Details,
			})
			if err != nil {
				return err
			}
			saved = append(saved, *workout)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("email", email).Int("workouts", len(saved)).Msg("workout notes saved")
	return saved, nil
}

// parseWorkoutRows tolerates the completion service wrapping its JSON in
// markdown fences or returning a single object instead of an array.
func parseWorkoutRows(raw string) ([]workoutRow, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var rows []workoutRow
	if err := json.Unmarshal([]byte(cleaned), &rows); err == nil {
		return rows, nil
	}

	var single workoutRow
	if err := json.Unmarshal([]byte(cleaned), &single); err != nil {
		return nil, fmt.Errorf("parse workout rows: %w", err)
	}
	return []workoutRow{single}, nil
}
