package transferservice

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"

	transferevents "github.com/bmxtools/raceday/app/events/transfer"
	transferdb "github.com/bmxtools/raceday/app/modules/transfer/infrastructure/repositories"
	"github.com/bmxtools/raceday/app/shared/operation"
	"github.com/bmxtools/raceday/app/shared/results"
	"github.com/bmxtools/raceday/internal/observability"
)

// tokenBytes is the entropy behind a transfer token; base64url encoding makes
// the token itself 43 characters.
const tokenBytes = 32

// maxTokenAttempts bounds regeneration on unique-constraint collisions. With
// 256 bits of entropy a second collision means something is deeply wrong.
const maxTokenAttempts = 5

// ClubRef is the slice of a club the transfer machine needs.
type ClubRef struct {
	UUID uuid.UUID
	Slug string
}

// ClubGateway resolves clubs and reassigns ownership.
type ClubGateway interface {
	ActiveClubBySlug(ctx context.Context, db bun.IDB, slug string) (*ClubRef, error)
	ClubByUUID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*ClubRef, error)
	SetOwner(ctx context.Context, db bun.IDB, clubUUID, ownerUUID uuid.UUID) error
}

// UserRef is the slice of a user the transfer machine needs.
type UserRef struct {
	UUID  uuid.UUID
	Email string
}

// UserGateway resolves users. Implementations return ErrTargetUserNotFound
// for missing emails.
type UserGateway interface {
	ByEmail(ctx context.Context, db bun.IDB, email string) (*UserRef, error)
	ByUUID(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (*UserRef, error)
}

// SuperAdminChecker answers the one access question cancellation needs.
type SuperAdminChecker interface {
	HasSuperAdmin(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (bool, error)
}

// Notifier carries transfer lifecycle events to the notification transport.
type Notifier interface {
	Publish(topic string, payload any)
}

// TransferInfo is the view of a transfer handed to callers.
type TransferInfo struct {
	UUID            uuid.UUID
	ClubUUID        uuid.UUID
	ClubSlug        string
	FromUserID      uuid.UUID
	ToUserEmail     string
	Token           string
	ExpiresAt       time.Time
	CompletedAt     *time.Time
	CancelledAt     *time.Time
	DaysUntilExpiry int
	Active          bool
}

// TransferService implements the Service interface.
type TransferService struct {
	repo     transferdb.Repository
	clubs    ClubGateway
	users    UserGateway
	access   SuperAdminChecker
	notifier Notifier
	deps     operation.Deps
}

// NewTransferService creates a new TransferService.
func NewTransferService(
	repo transferdb.Repository,
	clubs ClubGateway,
	users UserGateway,
	access SuperAdminChecker,
	notifier Notifier,
	logger *slog.Logger,
	metrics observability.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *TransferService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransferService{
		repo:     repo,
		clubs:    clubs,
		users:    users,
		access:   access,
		notifier: notifier,
		deps: operation.Deps{
			Logger:  logger,
			Metrics: metrics,
			Tracer:  tracer,
			DB:      db,
			Service: "TransferService",
		},
	}
}

type initiateOutcome struct {
	info      TransferInfo
	fromEmail string
}

// Initiate starts an ownership transfer. Any prior active transfer for the
// club is cancelled first, so at most one claimable transfer exists per club.
func (s *TransferService) Initiate(ctx context.Context, clubSlug string, fromUserID uuid.UUID, toEmail string) (*TransferInfo, error) {
	toEmail = strings.ToLower(strings.TrimSpace(toEmail))

	result, err := operation.Run(ctx, s.deps, "InitiateTransfer", clubSlug,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*initiateOutcome, error], error) {
			club, err := s.clubs.ActiveClubBySlug(ctx, db, clubSlug)
			if err != nil {
				if errors.Is(err, ErrClubNotFound) {
					return results.FailureResult[*initiateOutcome, error](ErrClubNotFound), nil
				}
				return results.OperationResult[*initiateOutcome, error]{}, fmt.Errorf("failed to resolve club: %w", err)
			}

			initiator, err := s.users.ByUUID(ctx, db, fromUserID)
			if err != nil {
				return results.OperationResult[*initiateOutcome, error]{}, fmt.Errorf("failed to resolve initiator: %w", err)
			}
			if strings.EqualFold(initiator.Email, toEmail) {
				return results.FailureResult[*initiateOutcome, error](ErrSelfTransfer), nil
			}

			if _, err := s.users.ByEmail(ctx, db, toEmail); err != nil {
				if errors.Is(err, ErrTargetUserNotFound) {
					return results.FailureResult[*initiateOutcome, error](ErrTargetUserNotFound), nil
				}
				return results.OperationResult[*initiateOutcome, error]{}, fmt.Errorf("failed to resolve target user: %w", err)
			}

			now := time.Now().UTC()
			if prior, err := s.repo.GetActiveForClub(ctx, db, club.UUID); err == nil {
				// ErrNotPending means a racing caller already closed the
				// prior transfer, which is the outcome we wanted anyway.
				if err := s.repo.MarkCancelled(ctx, db, prior.UUID, now); err != nil && !errors.Is(err, transferdb.ErrNotPending) {
					return results.OperationResult[*initiateOutcome, error]{}, fmt.Errorf("failed to cancel prior transfer: %w", err)
				}
			} else if !errors.Is(err, transferdb.ErrNotFound) {
				return results.OperationResult[*initiateOutcome, error]{}, fmt.Errorf("failed to check active transfer: %w", err)
			}

			transfer, err := s.createWithFreshToken(ctx, db, &transferdb.OwnershipTransfer{
				ClubUUID:    club.UUID,
				FromUserID:  fromUserID,
				ToUserEmail: toEmail,
				ExpiresAt:   now.Add(transferdb.TransferTTL),
				CreatedAt:   now,
			})
			if err != nil {
				return results.OperationResult[*initiateOutcome, error]{}, err
			}

			return results.SuccessResult[*initiateOutcome, error](&initiateOutcome{
				info:      toTransferInfo(transfer, club.Slug),
				fromEmail: initiator.Email,
			}), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}

	outcome := *result.Success
	if s.notifier != nil {
		s.notifier.Publish(transferevents.InitiatedV1, transferevents.InitiatedPayloadV1{
			ClubSlug:    outcome.info.ClubSlug,
			FromEmail:   outcome.fromEmail,
			ToUserEmail: outcome.info.ToUserEmail,
			Token:       outcome.info.Token,
			ExpiresAt:   outcome.info.ExpiresAt,
		})
	}
	return &outcome.info, nil
}

// Cancel withdraws a pending transfer. Only the initiator or a super admin
// may cancel.
func (s *TransferService) Cancel(ctx context.Context, token string, actingUserID uuid.UUID) error {
	result, err := operation.Run(ctx, s.deps, "CancelTransfer", actingUserID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransferInfo, error], error) {
			transfer, club, failure, err := s.loadClaimable(ctx, db, token)
			if err != nil {
				return results.OperationResult[*TransferInfo, error]{}, err
			}
			if failure != nil {
				return results.FailureResult[*TransferInfo, error](failure), nil
			}

			if transfer.FromUserID != actingUserID {
				super, err := s.access.HasSuperAdmin(ctx, db, actingUserID)
				if err != nil {
					return results.OperationResult[*TransferInfo, error]{}, fmt.Errorf("failed to check super admin: %w", err)
				}
				if !super {
					return results.FailureResult[*TransferInfo, error](ErrNotAuthorized), nil
				}
			}

			now := time.Now().UTC()
			if err := s.repo.MarkCancelled(ctx, db, transfer.UUID, now); err != nil {
				if errors.Is(err, transferdb.ErrNotPending) {
					return results.FailureResult[*TransferInfo, error](ErrNotPending), nil
				}
				return results.OperationResult[*TransferInfo, error]{}, fmt.Errorf("failed to cancel transfer: %w", err)
			}
			transfer.CancelledAt = &now

			info := toTransferInfo(transfer, club.Slug)
			return results.SuccessResult[*TransferInfo, error](&info), nil
		})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}

	info := *result.Success
	if s.notifier != nil {
		s.notifier.Publish(transferevents.CancelledV1, transferevents.CancelledPayloadV1{
			ClubSlug:    info.ClubSlug,
			ToUserEmail: info.ToUserEmail,
			CancelledAt: *info.CancelledAt,
		})
	}
	return nil
}

type completeOutcome struct {
	info     TransferInfo
	newOwner uuid.UUID
}

// Complete claims a transfer: ownership reassignment and the terminal mark
// happen in one transaction, so a crash can never hand the club over without
// closing the transfer.
func (s *TransferService) Complete(ctx context.Context, token string) (*TransferInfo, error) {
	result, err := operation.Run(ctx, s.deps, "CompleteTransfer", "token",
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*completeOutcome, error], error) {
			transfer, club, failure, err := s.loadClaimable(ctx, db, token)
			if err != nil {
				return results.OperationResult[*completeOutcome, error]{}, err
			}
			if failure != nil {
				return results.FailureResult[*completeOutcome, error](failure), nil
			}

			target, err := s.users.ByEmail(ctx, db, transfer.ToUserEmail)
			if err != nil {
				if errors.Is(err, ErrTargetUserNotFound) {
					return results.FailureResult[*completeOutcome, error](ErrTargetUserNotFound), nil
				}
				return results.OperationResult[*completeOutcome, error]{}, fmt.Errorf("failed to resolve target user: %w", err)
			}

			if err := s.clubs.SetOwner(ctx, db, transfer.ClubUUID, target.UUID); err != nil {
				return results.OperationResult[*completeOutcome, error]{}, fmt.Errorf("failed to reassign owner: %w", err)
			}

			now := time.Now().UTC()
			if err := s.repo.MarkCompleted(ctx, db, transfer.UUID, now); err != nil {
				if errors.Is(err, transferdb.ErrNotPending) {
					return results.FailureResult[*completeOutcome, error](ErrNotPending), nil
				}
				return results.OperationResult[*completeOutcome, error]{}, fmt.Errorf("failed to complete transfer: %w", err)
			}
			transfer.CompletedAt = &now

			return results.SuccessResult[*completeOutcome, error](&completeOutcome{
				info:     toTransferInfo(transfer, club.Slug),
				newOwner: target.UUID,
			}), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}

	outcome := *result.Success
	if s.notifier != nil {
		s.notifier.Publish(transferevents.CompletedV1, transferevents.CompletedPayloadV1{
			ClubSlug:    outcome.info.ClubSlug,
			NewOwnerID:  outcome.newOwner.String(),
			CompletedAt: *outcome.info.CompletedAt,
		})
	}
	return &outcome.info, nil
}

// GetByToken returns the transfer for display on the claim page.
func (s *TransferService) GetByToken(ctx context.Context, token string) (*TransferInfo, error) {
	result, err := operation.Run(ctx, s.deps, "GetTransfer", "token",
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransferInfo, error], error) {
			transfer, err := s.repo.GetByToken(ctx, db, token)
			if err != nil {
				if errors.Is(err, transferdb.ErrNotFound) {
					return results.FailureResult[*TransferInfo, error](ErrTransferNotFound), nil
				}
				return results.OperationResult[*TransferInfo, error]{}, fmt.Errorf("failed to get transfer: %w", err)
			}
			club, err := s.clubs.ClubByUUID(ctx, db, transfer.ClubUUID)
			if err != nil {
				return results.OperationResult[*TransferInfo, error]{}, fmt.Errorf("failed to resolve club: %w", err)
			}
			info := toTransferInfo(transfer, club.Slug)
			return results.SuccessResult[*TransferInfo, error](&info), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// ActiveForClub returns the club's claimable transfer, if any.
func (s *TransferService) ActiveForClub(ctx context.Context, clubSlug string) (*TransferInfo, error) {
	result, err := operation.Run(ctx, s.deps, "ActiveTransferForClub", clubSlug,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*TransferInfo, error], error) {
			club, err := s.clubs.ActiveClubBySlug(ctx, db, clubSlug)
			if err != nil {
				if errors.Is(err, ErrClubNotFound) {
					return results.FailureResult[*TransferInfo, error](ErrClubNotFound), nil
				}
				return results.OperationResult[*TransferInfo, error]{}, fmt.Errorf("failed to resolve club: %w", err)
			}
			transfer, err := s.repo.GetActiveForClub(ctx, db, club.UUID)
			if err != nil {
				if errors.Is(err, transferdb.ErrNotFound) {
					return results.FailureResult[*TransferInfo, error](ErrTransferNotFound), nil
				}
				return results.OperationResult[*TransferInfo, error]{}, fmt.Errorf("failed to get active transfer: %w", err)
			}
			info := toTransferInfo(transfer, club.Slug)
			return results.SuccessResult[*TransferInfo, error](&info), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// loadClaimable fetches a transfer by token and screens the states every
// mutation rejects. A non-nil failure is a domain error for the caller to
// wrap; err is infrastructure.
func (s *TransferService) loadClaimable(ctx context.Context, db bun.IDB, token string) (*transferdb.OwnershipTransfer, *ClubRef, error, error) {
	transfer, err := s.repo.GetByToken(ctx, db, token)
	if err != nil {
		if errors.Is(err, transferdb.ErrNotFound) {
			return nil, nil, ErrTransferNotFound, nil
		}
		return nil, nil, nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	if !transfer.Pending() {
		return nil, nil, ErrNotPending, nil
	}
	if transfer.Expired() {
		return nil, nil, ErrExpired, nil
	}
	club, err := s.clubs.ClubByUUID(ctx, db, transfer.ClubUUID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve club: %w", err)
	}
	return transfer, club, nil, nil
}

// createWithFreshToken inserts the transfer, regenerating the token on
// unique-constraint collisions.
func (s *TransferService) createWithFreshToken(ctx context.Context, db bun.IDB, transfer *transferdb.OwnershipTransfer) (*transferdb.OwnershipTransfer, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := generateToken()
		if err != nil {
			return nil, err
		}
		transfer.UUID = uuid.New()
		transfer.Token = token

		err = s.repo.Create(ctx, db, transfer)
		if err == nil {
			return transfer, nil
		}
		if !errors.Is(err, transferdb.ErrDuplicateToken) {
			return nil, fmt.Errorf("failed to create transfer: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to create transfer after %d token collisions", maxTokenAttempts)
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func toTransferInfo(t *transferdb.OwnershipTransfer, clubSlug string) TransferInfo {
	return TransferInfo{
		UUID:            t.UUID,
		ClubUUID:        t.ClubUUID,
		ClubSlug:        clubSlug,
		FromUserID:      t.FromUserID,
		ToUserEmail:     t.ToUserEmail,
		Token:           t.Token,
		ExpiresAt:       t.ExpiresAt,
		CompletedAt:     t.CompletedAt,
		CancelledAt:     t.CancelledAt,
		DaysUntilExpiry: t.DaysUntilExpiry(),
		Active:          t.Active(),
	}
}
