package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fitcoach/api-server-go/internal/chat"
	"github.com/fitcoach/api-server-go/internal/repository"
	"github.com/fitcoach/api-server-go/internal/session"
)

// CleanupJob periodically drops expired verification codes, idle session
// entries, and conversations past their lifetime.
type CleanupJob struct {
	codeRepo  repository.VerificationCodeRepository
	tracker   *session.Tracker
	chatStore *chat.Store
	interval  time.Duration
	done      chan struct{}
}

func NewCleanupJob(
	codeRepo repository.VerificationCodeRepository,
	tracker *session.Tracker,
	chatStore *chat.Store,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		codeRepo:  codeRepo,
		tracker:   tracker,
		chatStore: chatStore,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.codeRepo.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to cleanup verification codes")
	} else if count > 0 {
		log.Info().Int64("count", count).Msg("cleaned up verification codes")
	}

	if purged := j.tracker.PurgeIdle(); purged > 0 {
		log.Info().Int("count", purged).Msg("cleaned up idle sessions")
	}

	if purged := j.chatStore.PurgeExpired(); purged > 0 {
		log.Info().Int("count", purged).Msg("cleaned up expired conversations")
	}
}
