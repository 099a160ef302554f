package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/fitcoach/api-server-go/internal/errors"
	"github.com/fitcoach/api-server-go/internal/model"
	"github.com/fitcoach/api-server-go/internal/repository"
)

type fakeWorkoutRepo struct {
	workouts []model.Workout
}

func (f *fakeWorkoutRepo) FindByUserID(ctx context.Context, userID string) ([]model.Workout, error) {
	var out []model.Workout
	for _, w := range f.workouts {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWorkoutRepo) Create(ctx context.Context, params model.CreateWorkoutParams) (*model.Workout, error) {
	w := model.Workout{
		ID:       fmt.Sprintf("workout-%d", len(f.workouts)+1),
		UserID:   params.UserID,
		Date:     params.Date,
		Exercise: params.Exercise,
		Reps:     params.Reps,
		Duration: params.Duration,
		Details:  params.Details,
		LoggedAt: time.Now(),
	}
	f.workouts = append(f.workouts, w)
	copied := w
	return &copied, nil
}

func (f *fakeWorkoutRepo) WithTx(tx *sqlx.Tx) repository.WorkoutRepository { return f }

type stubCompleter struct {
	reply string
	err   error
	calls [][]model.ChatMessage
}

func (s *stubCompleter) Complete(ctx context.Context, messages []model.ChatMessage) (string, error) {
	s.calls = append(s.calls, messages)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newUserFixture(reply string, completeErr error) (*UserService, *fakeUserRepo, *fakeWorkoutRepo, *stubCompleter) {
	users := newFakeUserRepo()
	workouts := &fakeWorkoutRepo{}
	completer := &stubCompleter{reply: reply, err: completeErr}
	svc := NewUserService(fakeTxRunner{}, users, workouts, completer)
	return svc, users, workouts, completer
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("updates an existing user", func(t *testing.T) {
		svc, users, _, _ := newUserFixture("", nil)
		_, err := users.Create(ctx, model.CreateUserParams{Email: "user@example.com"})
		require.NoError(t, err)

		user, err := svc.UpdateProfile(ctx, "user@example.com", model.UpdateProfileParams{
			Height: 180,
			Weight: 75,
			Age:    30,
			Gender: "male",
			Goals:  "build muscle",
		})
		require.NoError(t, err)
		assert.Equal(t, 180, *user.Height)
		assert.Equal(t, "build muscle", *user.Goals)
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		svc, _, _, _ := newUserFixture("", nil)

		_, err := svc.UpdateProfile(ctx, "nobody@example.com", model.UpdateProfileParams{})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	})
}

func TestUserService_SaveWorkout(t *testing.T) {
	ctx := context.Background()

	const workoutJSON = `[
		{"date": "2026-08-30", "exercise": "bench press", "reps": 24, "duration": null, "details": {"sets": 3}},
		{"date": "2026-08-30", "exercise": "running", "reps": null, "duration": 30, "details": null}
	]`

	setup := func(t *testing.T, reply string, completeErr error) (*UserService, *fakeWorkoutRepo, *stubCompleter) {
		svc, users, workouts, completer := newUserFixture(reply, completeErr)
		_, err := users.Create(ctx, model.CreateUserParams{Email: "user@example.com"})
		require.NoError(t, err)
		return svc, workouts, completer
	}

	t.Run("persists the rows parsed from the completion", func(t *testing.T) {
		svc, workouts, completer := setup(t, workoutJSON, nil)

		saved, err := svc.SaveWorkout(ctx, "user@example.com", "bench pressed 3x8, then a 30 minute run")
		require.NoError(t, err)

		require.Len(t, saved, 2)
		assert.Equal(t, "bench press", saved[0].Exercise)
		assert.Equal(t, 24, *saved[0].Reps)
		assert.Equal(t, 30, *saved[1].Duration)
		assert.Len(t, workouts.workouts, 2)

		require.Len(t, completer.calls, 1)
		prompt := completer.calls[0]
		require.Len(t, prompt, 2)
		assert.Equal(t, model.RoleSystem, prompt[0].Role)
		assert.Contains(t, prompt[1].Content, "bench pressed 3x8")
	})

	t.Run("tolerates markdown fences around the JSON", func(t *testing.T) {
		svc, workouts, _ := setup(t, "```json\n"+workoutJSON+"\n```", nil)

		saved, err := svc.SaveWorkout(ctx, "user@example.com", "notes")
		require.NoError(t, err)
		assert.Len(t, saved, 2)
		assert.Len(t, workouts.workouts, 2)
	})

	t.Run("accepts a single object", func(t *testing.T) {
		svc, _, _ := setup(t, `{"exercise": "squats", "reps": 15}`, nil)

		saved, err := svc.SaveWorkout(ctx, "user@example.com", "notes")
		require.NoError(t, err)
		require.Len(t, saved, 1)
		assert.Equal(t, "squats", saved[0].Exercise)
	})

	t.Run("unparseable completion output saves nothing", func(t *testing.T) {
		svc, workouts, _ := setup(t, "sorry, I can't do that", nil)

		_, err := svc.SaveWorkout(ctx, "user@example.com", "notes")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCompletion))
		assert.Empty(t, workouts.workouts)
	})

	t.Run("completion failure saves nothing", func(t *testing.T) {
		svc, workouts, _ := setup(t, "", fmt.Errorf("upstream timeout"))

		_, err := svc.SaveWorkout(ctx, "user@example.com", "notes")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCompletion))
		assert.Empty(t, workouts.workouts)
	})

	t.Run("rejects empty notes without calling the completion service", func(t *testing.T) {
		svc, _, completer := setup(t, workoutJSON, nil)

		_, err := svc.SaveWorkout(ctx, "user@example.com", "   ")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingRequired))
		assert.Empty(t, completer.calls)
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		svc, _, _, _ := newUserFixture(workoutJSON, nil)

		_, err := svc.SaveWorkout(ctx, "nobody@example.com", "notes")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	})
}
