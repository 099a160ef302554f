package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/fitcoach/api-server-go/internal/chat"
	"github.com/fitcoach/api-server-go/internal/model"
	"github.com/fitcoach/api-server-go/internal/repository"
	"github.com/fitcoach/api-server-go/internal/session"
)

type mockCodeRepo struct {
	deleteExpiredCalls atomic.Int64
	deleteExpiredCount int64
}

func (m *mockCodeRepo) FindLatestByEmail(ctx context.Context, email string) (*model.VerificationCode, error) {
	return nil, nil
}

func (m *mockCodeRepo) Create(ctx context.Context, params model.CreateVerificationCodeParams) (*model.VerificationCode, error) {
	return nil, nil
}

func (m *mockCodeRepo) MarkConsumed(ctx context.Context, id string) error {
	return nil
}

func (m *mockCodeRepo) DeleteExpired(ctx context.Context) (int64, error) {
	m.deleteExpiredCalls.Add(1)
	return m.deleteExpiredCount, nil
}

func (m *mockCodeRepo) WithTx(tx *sqlx.Tx) repository.VerificationCodeRepository {
	return m
}

type noopCompleter struct{}

func (noopCompleter) Complete(ctx context.Context, prompt []model.ChatMessage) (string, error) {
	return "ok", nil
}

func TestCleanupJob(t *testing.T) {
	t.Run("runs cleanup immediately on start", func(t *testing.T) {
		codeRepo := &mockCodeRepo{deleteExpiredCount: 3}
		tracker := session.NewTracker(30 * time.Minute)
		store := chat.NewStore(noopCompleter{}, 24*time.Hour, 9000)

		job := NewCleanupJob(codeRepo, tracker, store, time.Hour)
		job.Start()
		defer job.Stop()

		assert.Eventually(t, func() bool {
			return codeRepo.deleteExpiredCalls.Load() >= 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("runs cleanup on each tick", func(t *testing.T) {
		codeRepo := &mockCodeRepo{}
		tracker := session.NewTracker(30 * time.Minute)
		store := chat.NewStore(noopCompleter{}, 24*time.Hour, 9000)

		job := NewCleanupJob(codeRepo, tracker, store, 20*time.Millisecond)
		job.Start()
		defer job.Stop()

		assert.Eventually(t, func() bool {
			return codeRepo.deleteExpiredCalls.Load() >= 3
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("stop halts further runs", func(t *testing.T) {
		codeRepo := &mockCodeRepo{}
		tracker := session.NewTracker(30 * time.Minute)
		store := chat.NewStore(noopCompleter{}, 24*time.Hour, 9000)

		job := NewCleanupJob(codeRepo, tracker, store, 20*time.Millisecond)
		job.Start()
		job.Stop()

		calls := codeRepo.deleteExpiredCalls.Load()
		time.Sleep(100 * time.Millisecond)
		assert.LessOrEqual(t, codeRepo.deleteExpiredCalls.Load(), calls+1)
	})
}
