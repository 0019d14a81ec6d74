package alerting

import "context"

// SnapshotProvider gives read-only access to the current state of monitored
// entities. The persistence layer owns the data; the engine only reads the
// fields a condition declares.
type SnapshotProvider interface {
	// GetSnapshot returns the requested fields of one entity. A nil or
	// empty fields slice fetches the full snapshot. Unknown entities
	// return an error wrapping the store's not-found sentinel.
	GetSnapshot(ctx context.Context, entityType, entityID string, fields []string) (Snapshot, error)

	// ListEntityIDs returns the IDs of all entities of a type within a
	// rule's scope. Empty schoolIDs means all schools in the tenant.
	ListEntityIDs(ctx context.Context, entityType, tenantID string, schoolIDs []string) ([]string, error)
}
