package model

import (
	"encoding/json"
	"time"
)

type Workout struct {
	ID       string          `db:"id" json:"id"`
	UserID   string          `db:"user_id" json:"userId"`
	Date     *string         `db:"date" json:"date,omitempty"`
	Exercise string          `db:"exercise" json:"exercise"`
	Reps     *int            `db:"reps" json:"reps,omitempty"`
	Duration *int            `db:"duration" json:"duration,omitempty"`
	Details  json.RawMessage `db:"details" json:"details,omitempty"`
	LoggedAt time.Time       `db:"logged_at" json:"loggedAt"`
}

type CreateWorkoutParams struct {
	UserID   string
	Date     *string
	Exercise string
	Reps     *int
	Duration *int
	Details  json.RawMessage
}
