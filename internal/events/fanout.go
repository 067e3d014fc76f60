package events

import (
	"context"
	"errors"

	"linkup/backend/internal/relations"
)

// Fanout publishes every event to all of its publishers, even when one fails.
type Fanout []relations.EventPublisher

func (f Fanout) Publish(ctx context.Context, ev relations.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
