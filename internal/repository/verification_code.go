package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fitcoach/api-server-go/internal/model"
)

type VerificationCodeRepository interface {
	// FindLatestByEmail returns the most recently issued unconsumed code for
	// the email, or nil when none exists.
	FindLatestByEmail(ctx context.Context, email string) (*model.VerificationCode, error)
	Create(ctx context.Context, params model.CreateVerificationCodeParams) (*model.VerificationCode, error)
	MarkConsumed(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) VerificationCodeRepository
}

type verificationCodeRepo struct {
	db sqlxDB
}

func NewVerificationCodeRepository(db *sqlx.DB) VerificationCodeRepository {
	return &verificationCodeRepo{db: db}
}

func (r *verificationCodeRepo) WithTx(tx *sqlx.Tx) VerificationCodeRepository {
	return &verificationCodeRepo{db: tx}
}

func (r *verificationCodeRepo) FindLatestByEmail(ctx context.Context, email string) (*model.VerificationCode, error) {
	var code model.VerificationCode
	err := r.db.GetContext(ctx, &code, `
		SELECT * FROM verification_codes
		WHERE email = $1 AND consumed_at IS NULL
		ORDER BY issued_at DESC
		LIMIT 1
	`, email)
	return HandleNotFound(&code, err)
}

func (r *verificationCodeRepo) Create(ctx context.Context, params model.CreateVerificationCodeParams) (*model.VerificationCode, error) {
	var code model.VerificationCode
	err := r.db.GetContext(ctx, &code, `
		INSERT INTO verification_codes (email, code, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.Email, params.Code, time.Now(), params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *verificationCodeRepo) MarkConsumed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE verification_codes SET consumed_at = $2 WHERE id = $1
	`, id, time.Now())
	return err
}

func (r *verificationCodeRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM verification_codes WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
