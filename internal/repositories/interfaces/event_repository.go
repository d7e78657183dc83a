package interfaces

import (
	"context"

	"poolride/internal/models"
)

// EventRepository persists the domain-event ledger consumed by the stats
// projection.
type EventRepository interface {
	Insert(ctx context.Context, event *models.RideEvent) error
}
