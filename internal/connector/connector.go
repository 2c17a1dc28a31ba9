// Package connector defines the boundary to remote target systems. The sync
// engine only consumes this interface; transport and wire protocol belong to
// concrete connector implementations outside this repository.
package connector

import (
	"context"

	id "idsync/pkg/domain"
)

// Item is one remote record: its UID plus the attribute set read from the
// target system.
type Item struct {
	UID        string
	Attributes map[string]string
}

// Connector reads records from a remote target system.
type Connector interface {
	// Search streams all items on the system to fn in fetch order. Returning
	// an error from fn stops the iteration.
	Search(ctx context.Context, systemID id.SystemID, fn func(item Item) error) error

	// ReadItem reads a single item by UID; returns nil when the remote record
	// does not exist.
	ReadItem(ctx context.Context, systemID id.SystemID, uid string) (*Item, error)
}
