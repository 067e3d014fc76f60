package relations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"linkup/backend/internal/metrics"
)

// Executor runs the effects of a committed transition. Failures are logged
// and counted; they are never returned to the caller and never roll back
// the transition.
type Executor struct {
	follows   *FollowSynchronizer
	contacts  *ContactSynchronizer
	publisher EventPublisher
	cache     SuggestionCache
	log       *slog.Logger
	now       func() time.Time
}

// Run executes effects in order. It detaches from ctx's cancellation so a
// caller hanging up does not abort derived writes halfway.
func (x *Executor) Run(ctx context.Context, effects []Effect) {
	ctx = context.WithoutCancel(ctx)
	for _, ef := range effects {
		if err := x.run(ctx, ef); err != nil {
			metrics.SyncFailures.WithLabelValues(string(ef.Kind)).Inc()
			x.log.Error("relationship side effect failed",
				"effect", ef.Kind,
				"connection_id", ef.Connection.ID,
				"a", ef.A.String(),
				"b", ef.B.String(),
				"error", err,
			)
		}
	}
}

func (x *Executor) run(ctx context.Context, ef Effect) error {
	var err error
	switch ef.Kind {
	case EffectEnsureFollow:
		err = x.follows.EnsureMutualFollow(ctx, ef.Connection)
	case EffectSyncContacts:
		err = x.contacts.SyncContactsForConnection(ctx, ef.Connection)
	case EffectTeardownContacts:
		err = x.contacts.TeardownContactsForPair(ctx, ef.A, ef.B)
	case EffectInvalidateSuggestions:
		if x.cache != nil {
			err = x.cache.Invalidate(ctx, ef.A, ef.B)
		}
	case EffectNotify:
		if x.publisher != nil {
			err = x.publisher.Publish(ctx, Event{
				ID:           uuid.NewString(),
				Type:         ef.Event,
				Actor:        ef.A,
				Subject:      ef.B,
				ConnectionID: ef.Connection.ID,
				OccurredAt:   x.now().UTC(),
			})
		}
	default:
		err = fmt.Errorf("unknown effect %q", ef.Kind)
	}
	if err != nil {
		return &Error{Op: string(ef.Kind), Kind: KindSync, Err: err}
	}
	return nil
}
