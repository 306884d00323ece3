package shopify

import (
	"strings"
	"time"
)

// SKUTagPrefix is the tag prefix carrying the source external identifier.
const SKUTagPrefix = "sku:"

// Product is a catalog entity as returned by the Admin API.
type Product struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
}

// SKUTag returns the external identifier embedded in the product's sku: tag,
// or "" when the product carries no such tag.
func (p Product) SKUTag() string {
	for _, tag := range p.Tags {
		if strings.HasPrefix(tag, SKUTagPrefix) {
			return strings.TrimPrefix(tag, SKUTagPrefix)
		}
	}
	return ""
}

// BulkStatus is the remote-side state of a bulk operation.
type BulkStatus string

const (
	BulkStatusCreated   BulkStatus = "CREATED"
	BulkStatusRunning   BulkStatus = "RUNNING"
	BulkStatusCompleted BulkStatus = "COMPLETED"
	BulkStatusFailed    BulkStatus = "FAILED"
	BulkStatusCanceled  BulkStatus = "CANCELED"
)

// Terminal reports whether no further transition can occur from s. Unknown
// statuses are not terminal, so callers keep waiting rather than submitting
// into a guaranteed rejection.
func (s BulkStatus) Terminal() bool {
	switch s {
	case BulkStatusCompleted, BulkStatusFailed, BulkStatusCanceled:
		return true
	}
	return false
}

// BulkOperation is a platform-side asynchronous batch mutation.
type BulkOperation struct {
	ID          string     `json:"id"`
	Status      BulkStatus `json:"status"`
	ErrorCode   string     `json:"errorCode"`
	CreatedAt   string     `json:"createdAt"`
	CompletedAt string     `json:"completedAt"`
	ObjectCount string     `json:"objectCount"`
	URL         string     `json:"url"`
}

// StagedParameter is one upload form parameter returned by stagedUploadsCreate.
type StagedParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StagedTarget is the upload destination for a batch file.
type StagedTarget struct {
	URL        string            `json:"url"`
	Parameters []StagedParameter `json:"parameters"`
}

// Param returns the value of the named upload parameter, or "".
func (t StagedTarget) Param(name string) string {
	for _, p := range t.Parameters {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// UserError is a user-level validation error returned inside a mutation payload.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}
