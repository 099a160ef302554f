package model

import (
	"time"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Verified     bool      `db:"verified" json:"verified"`
	Height       *int      `db:"height" json:"height,omitempty"`
	Weight       *int      `db:"weight" json:"weight,omitempty"`
	Age          *int      `db:"age" json:"age,omitempty"`
	Gender       *string   `db:"gender" json:"gender,omitempty"`
	Goals        *string   `db:"goals" json:"goals,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
}

type UpdateProfileParams struct {
	Height int
	Weight int
	Age    int
	Gender string
	Goals  string
}
