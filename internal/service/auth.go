package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/fitcoach/api-server-go/internal/database"
	apperrors "github.com/fitcoach/api-server-go/internal/errors"
	"github.com/fitcoach/api-server-go/internal/mailer"
	"github.com/fitcoach/api-server-go/internal/model"
	"github.com/fitcoach/api-server-go/internal/repository"
	"github.com/fitcoach/api-server-go/internal/token"
	"github.com/fitcoach/api-server-go/internal/util"
)

// TxRunner abstracts database.DB's transaction wrapper so services can be
// tested without a live database.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type AuthService struct {
	db       TxRunner
	userRepo repository.UserRepository
	codeRepo repository.VerificationCodeRepository
	mailer   mailer.Mailer
	issuer   *token.Issuer
	codeTTL  time.Duration
}

func NewAuthService(
	db TxRunner,
	userRepo repository.UserRepository,
	codeRepo repository.VerificationCodeRepository,
	m mailer.Mailer,
	issuer *token.Issuer,
	codeTTL time.Duration,
) *AuthService {
	return &AuthService{
		db:       db,
		userRepo: userRepo,
		codeRepo: codeRepo,
		mailer:   m,
		issuer:   issuer,
		codeTTL:  codeTTL,
	}
}

// Register creates an unverified credential record and emails a verification
// code. Email delivery failure is logged, never fatal: the code stays valid
// and can be re-sent.
func (s *AuthService) Register(ctx context.Context, email, password string) error {
	if !util.IsValidEmail(email) {
		return apperrors.InvalidInput("email", "not a valid address")
	}
	if password == "" {
		return apperrors.MissingRequired("password")
	}

	passwordHash, err := util.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	code, err := generateVerificationCode()
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.userRepo.WithTx(tx).Create(ctx, model.CreateUserParams{
			Email:        email,
			PasswordHash: passwordHash,
		}); err != nil {
			return err
		}

		_, err := s.codeRepo.WithTx(tx).Create(ctx, model.CreateVerificationCodeParams{
			Email:     email,
			Code:      code,
			ExpiresAt: time.Now().Add(s.codeTTL),
		})
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return apperrors.DuplicateIdentity()
		}
		return apperrors.Database(err)
	}

	log.Info().Str("email", email).Msg("user registered")

	s.deliverCode(ctx, email, code)
	return nil
}

// ResendCode issues a fresh verification code for a registered but
// unverified account. The new code supersedes any prior one.
func (s *AuthService) ResendCode(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return apperrors.Database(err)
	}
	if user == nil {
		return apperrors.NotFound("User")
	}
	if user.Verified {
		return apperrors.New(apperrors.ErrCodeConflict, "Email already verified")
	}

	code, err := generateVerificationCode()
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}

	if _, err := s.codeRepo.Create(ctx, model.CreateVerificationCodeParams{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(s.codeTTL),
	}); err != nil {
		return apperrors.Database(err)
	}

	s.deliverCode(ctx, email, code)
	return nil
}

// Verify redeems a verification code. Only the most recently issued
// unconsumed code counts, codes are single-use, and redemption and the
// verified flag flip happen in one transaction. On success the caller gets a
// bearer token so the client can proceed without a separate login.
func (s *AuthService) Verify(ctx context.Context, email, candidateCode string) (string, error) {
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		codeRepo := s.codeRepo.WithTx(tx)

		stored, err := codeRepo.FindLatestByEmail(ctx, email)
		if err != nil {
			return apperrors.Database(err)
		}
		if stored == nil || stored.Expired(time.Now()) {
			return apperrors.CodeInvalid()
		}
		if !util.ConstantTimeEqual(stored.Code, candidateCode) {
			return apperrors.CodeInvalid()
		}

		if err := codeRepo.MarkConsumed(ctx, stored.ID); err != nil {
			return apperrors.Database(err)
		}
		// Marking an already-verified user verified again is a no-op.
		if err := s.userRepo.WithTx(tx).MarkVerified(ctx, email); err != nil {
			return apperrors.Database(err)
		}
		return nil
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return "", appErr
		}
		return "", apperrors.Database(err)
	}

	log.Info().Str("email", email).Msg("email verified")

	tok, err := s.issuer.Issue(email, nil)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return tok, nil
}

// Login checks credentials and returns a bearer token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", apperrors.Database(err)
	}
	if user == nil || !util.CheckPasswordHash(password, user.PasswordHash) {
		return "", apperrors.CredentialsInvalid()
	}
	if !user.Verified {
		return "", apperrors.NotVerified()
	}

	tok, err := s.issuer.Issue(email, nil)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	log.Info().Str("email", email).Msg("login successful")
	return tok, nil
}

func (s *AuthService) deliverCode(ctx context.Context, email, code string) {
	if err := s.mailer.SendVerificationCode(ctx, email, code); err != nil {
		log.Error().Err(err).Str("email", email).Msg("verification email delivery failed")
	}
}

// generateVerificationCode returns a uniformly random 6-digit code,
// zero-padded ("000000" through "999999").
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
