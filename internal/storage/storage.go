package storage

import (
	"context"

	"automanKit/internal/model"
)

// EventSink receives decoded position events and the logs that failed to decode.
type EventSink interface {
	PutEvents(ctx context.Context, events []model.PositionEvent) error
	PutDecodeErrors(ctx context.Context, errs []model.DecodeError) error
}
