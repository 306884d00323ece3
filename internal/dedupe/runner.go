package dedupe

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Deleter removes a single remote product. Request pacing lives in the
// client implementation, not here.
type Deleter interface {
	DeleteProduct(ctx context.Context, productID string) error
}

// Attempt records the outcome of one deletion attempt.
type Attempt struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Reason    string    `json:"reason"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DeletionLog is the persisted record of a deletion run. It is checkpointed
// to disk periodically so a crash preserves partial progress.
type DeletionLog struct {
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Total       int        `json:"total"`
	Successful  []Attempt  `json:"successful_deletions"`
	Failed      []Attempt  `json:"failed_deletions"`
}

// Runner deletes candidates sequentially and maintains the deletion log.
type Runner struct {
	deleter         Deleter
	logPath         string
	checkpointEvery int
	now             func() time.Time
	log             *zap.Logger
}

// NewRunner creates a Runner writing its deletion log to logPath and
// checkpointing every checkpointEvery attempts.
func NewRunner(deleter Deleter, logPath string, checkpointEvery int) *Runner {
	if checkpointEvery <= 0 {
		checkpointEvery = 50
	}
	return &Runner{
		deleter:         deleter,
		logPath:         logPath,
		checkpointEvery: checkpointEvery,
		now:             time.Now,
		log:             zap.L().Named("dedupe"),
	}
}

// Run deletes every candidate, recording each attempt. A failed delete is
// logged and counted, never fatal; an unwritable deletion log is.
func (r *Runner) Run(ctx context.Context, candidates []Candidate) (*DeletionLog, error) {
	dl := &DeletionLog{
		StartedAt:  r.now().UTC(),
		Total:      len(candidates),
		Successful: []Attempt{},
		Failed:     []Attempt{},
	}

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return dl, eris.Wrap(err, "dedupe: run cancelled")
		}

		attempt := Attempt{
			ID:        c.ID,
			Title:     c.Title,
			Reason:    c.Reason,
			Timestamp: r.now().UTC(),
		}
		if err := r.deleter.DeleteProduct(ctx, c.ID); err != nil {
			attempt.Outcome = "failed"
			attempt.Error = err.Error()
			dl.Failed = append(dl.Failed, attempt)
			r.log.Warn("deletion failed",
				zap.String("id", c.ID), zap.String("reason", c.Reason), zap.Error(err))
		} else {
			attempt.Outcome = "deleted"
			dl.Successful = append(dl.Successful, attempt)
			r.log.Info("deleted duplicate",
				zap.String("id", c.ID), zap.String("reason", c.Reason))
		}

		if (i+1)%r.checkpointEvery == 0 {
			if err := r.write(dl); err != nil {
				return dl, err
			}
			r.log.Info("deletion log checkpointed", zap.Int("processed", i+1))
		}
	}

	completed := r.now().UTC()
	dl.CompletedAt = &completed
	if err := r.write(dl); err != nil {
		return dl, err
	}
	return dl, nil
}

func (r *Runner) write(dl *DeletionLog) error {
	data, err := json.MarshalIndent(dl, "", "  ")
	if err != nil {
		return eris.Wrap(err, "dedupe: marshal deletion log")
	}
	if err := os.WriteFile(r.logPath, data, 0o644); err != nil {
		return eris.Wrapf(err, "dedupe: write deletion log %s", r.logPath)
	}
	return nil
}
