// Package dedupe finds catalog entities sharing an identifying sku tag and
// selects all but the most recently created member of each group for
// deletion. It operates on a previously fetched in-memory catalog snapshot;
// the grouping and selection logic performs no I/O.
package dedupe

import (
	"sort"
	"time"

	"github.com/luz-active/catalog-cli/pkg/shopify"
)

// Group is a set of products sharing one sku tag value.
type Group struct {
	SKU      string
	Products []shopify.Product
}

// Groups is the outcome of grouping a catalog snapshot.
type Groups struct {
	// Duplicates holds only groups with more than one member, keyed by sku.
	Duplicates map[string]Group
	// MissingTag lists products carrying no sku tag at all. They can never
	// be duplicate candidates.
	MissingTag []shopify.Product
}

// Candidate is one product designated for deletion.
type Candidate struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Group partitions the catalog snapshot by sku tag, preserving fetch order
// within each group.
func GroupBySKU(products []shopify.Product) Groups {
	bySKU := make(map[string][]shopify.Product)
	var missing []shopify.Product

	for _, p := range products {
		sku := p.SKUTag()
		if sku == "" {
			missing = append(missing, p)
			continue
		}
		bySKU[sku] = append(bySKU[sku], p)
	}

	dupes := make(map[string]Group)
	for sku, members := range bySKU {
		if len(members) > 1 {
			dupes[sku] = Group{SKU: sku, Products: members}
		}
	}
	return Groups{Duplicates: dupes, MissingTag: missing}
}

// SelectDeletionCandidates returns, for every duplicate group, all members
// except the most recently created one. Members are ordered by creation
// timestamp ascending; equal timestamps keep their original fetch order
// (stable sort), making selection deterministic. Output is ordered by sku
// so repeated runs produce identical candidate files.
func SelectDeletionCandidates(groups Groups) []Candidate {
	skus := make([]string, 0, len(groups.Duplicates))
	for sku := range groups.Duplicates {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	var candidates []Candidate
	for _, sku := range skus {
		members := append([]shopify.Product(nil), groups.Duplicates[sku].Products...)
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		})
		// Keep the last (newest); everything before it goes.
		for _, p := range members[:len(members)-1] {
			candidates = append(candidates, Candidate{
				ID:        p.ID,
				Title:     p.Title,
				Reason:    "Duplicate SKU tag: " + sku,
				CreatedAt: p.CreatedAt,
			})
		}
	}
	return candidates
}
