package userservice

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	userdb "github.com/bmxtools/raceday/app/modules/user/infrastructure/repositories"
	"github.com/bmxtools/raceday/app/shared/operation"
	"github.com/bmxtools/raceday/app/shared/results"
	"github.com/bmxtools/raceday/internal/observability"
)

// UserInfo is the view of a user handed to callers.
type UserInfo struct {
	UUID  uuid.UUID
	Email string
}

// CreatedUser is returned from CreateUser; Password is only set when the
// service generated one.
type CreatedUser struct {
	UserInfo
	Password string
}

// UserService implements the Service interface.
type UserService struct {
	repo userdb.Repository
	deps operation.Deps
}

// NewUserService creates a new UserService.
func NewUserService(
	repo userdb.Repository,
	logger *slog.Logger,
	metrics observability.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo: repo,
		deps: operation.Deps{
			Logger:  logger,
			Metrics: metrics,
			Tracer:  tracer,
			DB:      db,
			Service: "UserService",
		},
	}
}

// Authenticate verifies the email/password pair and returns the user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*UserInfo, error) {
	result, err := operation.Run(ctx, s.deps, "Authenticate", email,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*UserInfo, error], error) {
			user, err := s.repo.GetByEmail(ctx, db, email)
			if err != nil {
				if errors.Is(err, userdb.ErrNotFound) {
					return results.FailureResult[*UserInfo, error](ErrInvalidCredentials), nil
				}
				return results.OperationResult[*UserInfo, error]{}, fmt.Errorf("failed to look up user: %w", err)
			}

			if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
				return results.FailureResult[*UserInfo, error](ErrInvalidCredentials), nil
			}

			return results.SuccessResult[*UserInfo, error](&UserInfo{
				UUID:  user.UUID,
				Email: user.Email,
			}), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*UserInfo, error) {
	result, err := operation.Run(ctx, s.deps, "GetByEmail", email,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*UserInfo, error], error) {
			user, err := s.repo.GetByEmail(ctx, db, email)
			if err != nil {
				if errors.Is(err, userdb.ErrNotFound) {
					return results.FailureResult[*UserInfo, error](userdb.ErrNotFound), nil
				}
				return results.OperationResult[*UserInfo, error]{}, fmt.Errorf("failed to get user: %w", err)
			}
			return results.SuccessResult[*UserInfo, error](&UserInfo{
				UUID:  user.UUID,
				Email: user.Email,
			}), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// CreateUser creates a user. When password is empty a random one is generated
// and returned so the admin can hand it over.
func (s *UserService) CreateUser(ctx context.Context, email, password string) (*CreatedUser, error) {
	result, err := operation.Run(ctx, s.deps, "CreateUser", email,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*CreatedUser, error], error) {
			generated := ""
			if password == "" {
				var err error
				generated, err = generatePassword()
				if err != nil {
					return results.OperationResult[*CreatedUser, error]{}, err
				}
				password = generated
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return results.OperationResult[*CreatedUser, error]{}, fmt.Errorf("failed to hash password: %w", err)
			}

			user := &userdb.User{
				UUID:         uuid.New(),
				Email:        strings.ToLower(strings.TrimSpace(email)),
				PasswordHash: string(hash),
			}
			if err := s.repo.Create(ctx, db, user); err != nil {
				if errors.Is(err, userdb.ErrDuplicateEmail) {
					return results.FailureResult[*CreatedUser, error](userdb.ErrDuplicateEmail), nil
				}
				return results.OperationResult[*CreatedUser, error]{}, fmt.Errorf("failed to create user: %w", err)
			}

			return results.SuccessResult[*CreatedUser, error](&CreatedUser{
				UserInfo: UserInfo{UUID: user.UUID, Email: user.Email},
				Password: generated,
			}), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// EnsureUser finds or creates the user holding email, inside the caller's
// transaction. The returned password is non-empty only when the user was
// freshly created with a generated credential.
func (s *UserService) EnsureUser(ctx context.Context, db bun.IDB, email string) (uuid.UUID, string, error) {
	user, err := s.repo.GetByEmail(ctx, db, email)
	if err == nil {
		return user.UUID, "", nil
	}
	if !errors.Is(err, userdb.ErrNotFound) {
		return uuid.Nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	password, err := generatePassword()
	if err != nil {
		return uuid.Nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	created := &userdb.User{
		UUID:         uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, db, created); err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to create user: %w", err)
	}
	return created.UUID, password, nil
}

// generatePassword returns a random 16-character hex password, matching the
// bootstrap credential length the admin panel has always handed out.
func generatePassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
