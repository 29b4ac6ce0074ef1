package eventbus

import (
	"context"
	"fmt"
)

// Stream names used by the application. Club broadcast subjects and module
// request subjects live on separate streams so retention can differ.
const (
	BroadcastStream = "club-broadcast"
	RequestStream   = "raceday-requests"
)

// InitializeStreams creates the JetStream streams the application publishes to.
func InitializeStreams(ctx context.Context, eb EventBus) error {
	if err := eb.CreateStream(ctx, BroadcastStream, "club.>"); err != nil {
		return fmt.Errorf("failed to create broadcast stream: %w", err)
	}
	if err := eb.CreateStream(ctx, RequestStream, "race.>", "activity.>", "transfer.>"); err != nil {
		return fmt.Errorf("failed to create request stream: %w", err)
	}
	return nil
}
