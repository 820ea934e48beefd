package syncer

import (
	"context"
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/storage"
	"go.uber.org/multierr"
)

// runSyncAttempt wraps collection sync work with sync_state bookkeeping.
// The work function returns the timestamp that should be recorded as success.
func runSyncAttempt(
	ctx context.Context,
	syncState *storage.SyncStateRepo,
	collection string,
	work func(context.Context) (time.Time, error),
) error {
	if err := syncState.RecordAttempt(ctx, collection, time.Now().UTC()); err != nil {
		return err
	}

	successAt, err := work(ctx)
	if err != nil {
		// The run context may already be cancelled; the failure is still recorded.
		recordErr := syncState.RecordError(context.WithoutCancel(ctx), collection, time.Now().UTC(), err)
		return multierr.Append(err, recordErr)
	}
	if successAt.IsZero() {
		successAt = time.Now().UTC()
	}
	return syncState.RecordSuccess(ctx, collection, successAt.UTC())
}
