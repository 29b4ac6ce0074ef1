package transferservice

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the transfer module's application surface.
type Service interface {
	// Initiate starts a transfer, displacing any active one for the club.
	Initiate(ctx context.Context, clubSlug string, fromUserID uuid.UUID, toEmail string) (*TransferInfo, error)

	// Cancel withdraws a pending transfer (initiator or super admin).
	Cancel(ctx context.Context, token string, actingUserID uuid.UUID) error

	// Complete claims a transfer, reassigning club ownership atomically.
	Complete(ctx context.Context, token string) (*TransferInfo, error)

	// GetByToken returns the transfer for the claim page.
	GetByToken(ctx context.Context, token string) (*TransferInfo, error)

	// ActiveForClub returns the club's claimable transfer, if any.
	ActiveForClub(ctx context.Context, clubSlug string) (*TransferInfo, error)
}

var _ Service = (*TransferService)(nil)
