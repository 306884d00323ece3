// Package reconcile diffs a freshly scraped product set against the identity
// store and classifies every product into create, update, or
// delete-by-absence.
package reconcile

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/luz-active/catalog-cli/internal/identity"
	"github.com/luz-active/catalog-cli/internal/model"
	"github.com/luz-active/catalog-cli/pkg/shopify"
)

// Lookup resolves an external identifier to a remote product id.
// Absence is reported as shopify.ErrNotFound, not a transport failure.
type Lookup interface {
	FindProductIDBySKU(ctx context.Context, sku string) (string, error)
}

// Deleter removes a single remote product.
type Deleter interface {
	DeleteProduct(ctx context.Context, productID string) error
}

// Update pairs a scraped record with its resolved remote id.
type Update struct {
	Record   model.ProductRecord
	RemoteID string
}

// Plan is the outcome of classification: three disjoint sets keyed by
// external identifier.
type Plan struct {
	Creates []model.ProductRecord
	Updates []Update
	// Absent lists identifiers known to the identity store but missing from
	// the current scrape, sorted for deterministic processing order.
	Absent []string
}

// Stats counts per-item outcomes surfaced in the final run summary.
type Stats struct {
	Collisions         int
	LookupSkipped      int
	DeletesAlreadyGone int
	DeletesFailed      int
	DeletesSucceeded   int
}

// Reconciler classifies scraped records and applies deletions-by-absence.
type Reconciler struct {
	lookup  Lookup
	deleter Deleter
	log     *zap.Logger
}

// New creates a Reconciler.
func New(lookup Lookup, deleter Deleter) *Reconciler {
	return &Reconciler{lookup: lookup, deleter: deleter, log: zap.L().Named("reconcile")}
}

// Dedupe collapses records sharing an external identifier, first occurrence
// wins. Every collision is logged and counted.
func Dedupe(scraped []model.ProductRecord) ([]model.ProductRecord, int) {
	seen := make(map[string]struct{}, len(scraped))
	out := make([]model.ProductRecord, 0, len(scraped))
	collisions := 0
	for _, rec := range scraped {
		if _, ok := seen[rec.ExternalID]; ok {
			zap.L().Warn("duplicate external id in scrape, keeping first",
				zap.String("external_id", rec.ExternalID),
				zap.String("title", rec.Title))
			collisions++
			continue
		}
		seen[rec.ExternalID] = struct{}{}
		out = append(out, rec)
	}
	return out, collisions
}

// Classify builds the reconciliation plan for the scrape result. Records
// unknown to the identity store become creates unconditionally. Known
// records are resolved against the remote catalog: a hit becomes an update,
// a miss degrades to a create (the remote treats it as new), and a
// transport failure skips the item so the batch can proceed without it.
func (r *Reconciler) Classify(ctx context.Context, scraped []model.ProductRecord, previous *identity.Store) (*Plan, Stats) {
	var stats Stats
	deduped, collisions := Dedupe(scraped)
	stats.Collisions = collisions

	current := make(map[string]struct{}, len(deduped))
	plan := &Plan{}

	for _, rec := range deduped {
		current[rec.ExternalID] = struct{}{}

		if !previous.Has(rec.ExternalID) {
			plan.Creates = append(plan.Creates, rec)
			continue
		}

		remoteID, err := r.lookup.FindProductIDBySKU(ctx, rec.ExternalID)
		switch {
		case err == nil:
			plan.Updates = append(plan.Updates, Update{Record: rec, RemoteID: remoteID})
		case errors.Is(err, shopify.ErrNotFound):
			// Known locally but gone remotely: recreate from scratch.
			r.log.Info("known product missing from remote, creating",
				zap.String("external_id", rec.ExternalID))
			plan.Creates = append(plan.Creates, rec)
		default:
			r.log.Warn("remote lookup failed, skipping item",
				zap.String("external_id", rec.ExternalID), zap.Error(err))
			stats.LookupSkipped++
		}
	}

	for _, id := range previous.IDs() {
		if _, ok := current[id]; !ok {
			plan.Absent = append(plan.Absent, id)
		}
	}
	sort.Strings(plan.Absent)

	return plan, stats
}

// DeleteAbsent removes every absent identifier from the remote catalog via
// lookup-then-delete. A lookup miss means the product is already gone and is
// skipped; a delete failure is logged and counted, never fatal.
func (r *Reconciler) DeleteAbsent(ctx context.Context, absent []string, stats *Stats) {
	for _, externalID := range absent {
		remoteID, err := r.lookup.FindProductIDBySKU(ctx, externalID)
		if err != nil {
			if errors.Is(err, shopify.ErrNotFound) {
				r.log.Info("absent product already gone from remote",
					zap.String("external_id", externalID))
				stats.DeletesAlreadyGone++
			} else {
				r.log.Warn("lookup for deletion failed",
					zap.String("external_id", externalID), zap.Error(err))
				stats.DeletesFailed++
			}
			continue
		}

		if err := r.deleter.DeleteProduct(ctx, remoteID); err != nil {
			r.log.Warn("delete failed",
				zap.String("external_id", externalID),
				zap.String("remote_id", remoteID), zap.Error(err))
			stats.DeletesFailed++
			continue
		}

		r.log.Info("deleted absent product",
			zap.String("external_id", externalID), zap.String("remote_id", remoteID))
		stats.DeletesSucceeded++
	}
}

// IdentitySnapshot builds the replacement identity-store content for the
// scrape result: exactly the current identifiers, stamped with now.
func IdentitySnapshot(records []model.ProductRecord, now time.Time) map[string]identity.Record {
	snapshot := make(map[string]identity.Record, len(records))
	for _, rec := range records {
		if _, ok := snapshot[rec.ExternalID]; ok {
			continue
		}
		snapshot[rec.ExternalID] = identity.Record{
			DisplayName:     rec.Title,
			LastProcessedAt: now,
		}
	}
	return snapshot
}
