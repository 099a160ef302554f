package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fitcoach/api-server-go/internal/chat"
	apperrors "github.com/fitcoach/api-server-go/internal/errors"
	"github.com/fitcoach/api-server-go/internal/model"
	"github.com/fitcoach/api-server-go/internal/repository"
)

// ChatService resolves the user's profile and workout history into the
// initial context for a conversation and relays messages through the
// conversation store.
type ChatService struct {
	userRepo    repository.UserRepository
	workoutRepo repository.WorkoutRepository
	store       *chat.Store
}

func NewChatService(
	userRepo repository.UserRepository,
	workoutRepo repository.WorkoutRepository,
	store *chat.Store,
) *ChatService {
	return &ChatService{
		userRepo:    userRepo,
		workoutRepo: workoutRepo,
		store:       store,
	}
}

func (s *ChatService) Send(ctx context.Context, email, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", apperrors.MissingRequired("message")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", apperrors.Database(err)
	}
	if user == nil {
		return "", apperrors.NotFound("User")
	}

	initialContext, err := s.initialContext(ctx, user)
	if err != nil {
		return "", err
	}

	reply, err := s.store.Reply(ctx, email, initialContext, message)
	if err != nil {
		if errors.Is(err, chat.ErrSessionExpired) {
			log.Info().Str("email", email).Msg("conversation reached its lifetime, restarting")
			return "", apperrors.SessionExpired()
		}
		return "", apperrors.Completion(err)
	}
	return reply, nil
}

// initialContext renders the profile and workout history block sent to the
// completion service at the start of each conversation.
func (s *ChatService) initialContext(ctx context.Context, user *model.User) (string, error) {
	var b strings.Builder
	b.WriteString("Here is the user's profile:\n")
	if user.Height != nil {
		fmt.Fprintf(&b, "Height: %d cm\n", *user.Height)
	}
	if user.Weight != nil {
		fmt.Fprintf(&b, "Weight: %d kg\n", *user.Weight)
	}
	if user.Age != nil {
		fmt.Fprintf(&b, "Age: %d\n", *user.Age)
	}
	if user.Gender != nil {
		fmt.Fprintf(&b, "Gender: %s\n", *user.Gender)
	}
	if user.Goals != nil {
		fmt.Fprintf(&b, "Goals: %s\n", *user.Goals)
	}

	workouts, err := s.workoutRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return "", apperrors.Database(err)
	}
	b.WriteString("\nHere is the user's workout data:\n")
	for _, w := range workouts {
		date := "unknown date"
		if w.Date != nil {
			date = *w.Date
		}
		fmt.Fprintf(&b, "%s - %s", date, w.Exercise)
		if w.Reps != nil {
			fmt.Fprintf(&b, " for %d reps", *w.Reps)
		}
		if w.Duration != nil {
			fmt.Fprintf(&b, ", duration: %d mins", *w.Duration)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
