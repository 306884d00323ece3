package bulk

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/luz-active/catalog-cli/pkg/shopify"
)

// API is the slice of the remote client the admission gate needs.
type API interface {
	CurrentBulkOperation(ctx context.Context) (*shopify.BulkOperation, error)
	RunBulkMutation(ctx context.Context, stagedUploadPath string) (*shopify.BulkOperation, error)
}

// Gate serializes bulk job submission against a remote platform that allows
// only one job in flight. It is a mutex over the wire: its whole job is to
// avoid submitting into a guaranteed-rejection state and to make the wait
// observable.
type Gate struct {
	api      API
	interval time.Duration
	log      *zap.Logger
}

// NewGate creates a Gate polling at the given interval while a job is active.
func NewGate(api API, interval time.Duration) *Gate {
	return &Gate{api: api, interval: interval, log: zap.L().Named("bulk")}
}

// AwaitSlot blocks until no bulk job is active: the remote reports no
// operation at all, or the current one has reached a terminal state. There
// is no retry cap; this is a long-running batch window, and context
// cancellation is the only other exit. Statuses the gate does not recognize
// are treated as active so a new submission is never raced against them.
func (g *Gate) AwaitSlot(ctx context.Context) error {
	for {
		op, err := g.api.CurrentBulkOperation(ctx)
		if err != nil {
			return eris.Wrap(err, "bulk: poll current operation")
		}

		if op == nil {
			g.log.Info("no bulk operation, slot free")
			return nil
		}
		if op.Status.Terminal() {
			g.log.Info("previous bulk operation finished, slot free",
				zap.String("id", op.ID), zap.String("status", string(op.Status)))
			return nil
		}

		g.log.Info("bulk operation active, waiting",
			zap.String("id", op.ID),
			zap.String("status", string(op.Status)),
			zap.String("objects", op.ObjectCount),
			zap.Duration("interval", g.interval))

		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "bulk: await slot")
		case <-time.After(g.interval):
		}
	}
}

// Submit starts the bulk mutation referencing the staged upload. Callers
// must hold the slot via AwaitSlot first. Remote validation errors are
// surfaced unchanged and never retried.
func (g *Gate) Submit(ctx context.Context, stagedUploadPath string) (*shopify.BulkOperation, error) {
	op, err := g.api.RunBulkMutation(ctx, stagedUploadPath)
	if err != nil {
		return nil, eris.Wrap(err, "bulk: submit")
	}
	g.log.Info("bulk operation submitted",
		zap.String("id", op.ID), zap.String("status", string(op.Status)))
	return op, nil
}
