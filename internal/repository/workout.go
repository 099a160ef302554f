package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/fitcoach/api-server-go/internal/model"
)

type WorkoutRepository interface {
	FindByUserID(ctx context.Context, userID string) ([]model.Workout, error)
	Create(ctx context.Context, params model.CreateWorkoutParams) (*model.Workout, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) WorkoutRepository
}

type workoutRepo struct {
	db sqlxDB
}

func NewWorkoutRepository(db *sqlx.DB) WorkoutRepository {
	return &workoutRepo{db: db}
}

func (r *workoutRepo) WithTx(tx *sqlx.Tx) WorkoutRepository {
	return &workoutRepo{db: tx}
}

func (r *workoutRepo) FindByUserID(ctx context.Context, userID string) ([]model.Workout, error) {
	var workouts []model.Workout
	err := r.db.SelectContext(ctx, &workouts, `
		SELECT * FROM workouts
		WHERE user_id = $1
		ORDER BY logged_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	return workouts, nil
}

func (r *workoutRepo) Create(ctx context.Context, params model.CreateWorkoutParams) (*model.Workout, error) {
	var workout model.Workout
	err := r.db.GetContext(ctx, &workout, `
		INSERT INTO workouts (user_id, date, exercise, reps, duration, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.UserID, params.Date, params.Exercise, params.Reps, params.Duration, params.Details)
	if err != nil {
		return nil, err
	}
	return &workout, nil
}
