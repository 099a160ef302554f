package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/api-server-go/internal/middleware"
	"github.com/fitcoach/api-server-go/internal/model"
	"github.com/fitcoach/api-server-go/internal/repository"
	"github.com/fitcoach/api-server-go/internal/service"
)

type memWorkoutRepo struct {
	workouts []model.Workout
}

func (m *memWorkoutRepo) FindByUserID(ctx context.Context, userID string) ([]model.Workout, error) {
	return nil, nil
}

func (m *memWorkoutRepo) Create(ctx context.Context, params model.CreateWorkoutParams) (*model.Workout, error) {
	w := model.Workout{
		ID:       fmt.Sprintf("workout-%d", len(m.workouts)+1),
		UserID:   params.UserID,
		Date:     params.Date,
		Exercise: params.Exercise,
		Reps:     params.Reps,
		Duration: params.Duration,
		Details:  params.Details,
		LoggedAt: time.Now(),
	}
	m.workouts = append(m.workouts, w)
	copied := w
	return &copied, nil
}

func (m *memWorkoutRepo) WithTx(tx *sqlx.Tx) repository.WorkoutRepository { return m }

type fixedCompleter struct {
	reply string
}

func (c fixedCompleter) Complete(ctx context.Context, messages []model.ChatMessage) (string, error) {
	return c.reply, nil
}

func newUserHandlerFixture(t *testing.T, reply string) (*UserHandler, *memUserRepo, *memWorkoutRepo) {
	t.Helper()

	users := newMemUserRepo()
	workouts := &memWorkoutRepo{}
	svc := service.NewUserService(memTxRunner{}, users, workouts, fixedCompleter{reply: reply})
	return NewUserHandler(svc), users, workouts
}

func authenticatedPost(t *testing.T, fn http.HandlerFunc, identity, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(context.WithValue(req.Context(), middleware.IdentityContextKey, identity))
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestUserHandler_UpdatePersonalDetails(t *testing.T) {
	t.Run("updates the authenticated user's profile", func(t *testing.T) {
		h, users, _ := newUserHandlerFixture(t, "")
		_, err := users.Create(context.Background(), model.CreateUserParams{Email: "user@example.com"})
		require.NoError(t, err)

		rec := authenticatedPost(t, h.UpdatePersonalDetails, "user@example.com",
			`{"height": 180, "weight": 75, "age": 30, "gender": "male", "goals": "get stronger"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 180, *users.users["user@example.com"].Height)
	})

	t.Run("rejects an unknown gender value", func(t *testing.T) {
		h, users, _ := newUserHandlerFixture(t, "")
		_, err := users.Create(context.Background(), model.CreateUserParams{Email: "user@example.com"})
		require.NoError(t, err)

		rec := authenticatedPost(t, h.UpdatePersonalDetails, "user@example.com",
			`{"gender": "robot"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserHandler_SaveWorkout(t *testing.T) {
	t.Run("persists workouts parsed from the notes", func(t *testing.T) {
		h, users, workouts := newUserHandlerFixture(t,
			`[{"exercise": "bench press", "reps": 24}]`)
		_, err := users.Create(context.Background(), model.CreateUserParams{Email: "user@example.com"})
		require.NoError(t, err)

		rec := authenticatedPost(t, h.SaveWorkout, "user@example.com",
			`{"notes": "bench pressed 3x8 today"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, workouts.workouts, 1)
		assert.Equal(t, "bench press", workouts.workouts[0].Exercise)
	})

	t.Run("unparseable completion output returns 502", func(t *testing.T) {
		h, users, workouts := newUserHandlerFixture(t, "no json here")
		_, err := users.Create(context.Background(), model.CreateUserParams{Email: "user@example.com"})
		require.NoError(t, err)

		rec := authenticatedPost(t, h.SaveWorkout, "user@example.com",
			`{"notes": "bench pressed 3x8 today"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Empty(t, workouts.workouts)
	})
}
