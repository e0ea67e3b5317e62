// Package registry defines the persistence contract for managed channel
// records. The registry is the only durable source of truth: a record
// exists if and only if the corresponding platform channel is under the
// bot's management.
package registry

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested channel record is missing.
var ErrNotFound = errors.New("channel record not found")

// ErrAlreadyExists indicates a channel record with the same id exists.
var ErrAlreadyExists = errors.New("channel record already exists")

// Channel stores one managed channel: its platform id, its owner, and the
// declared category it belongs to. Category is nil while the channel is
// unassigned; it is preserved across archiving so the channel can return
// to its category on unarchive.
type Channel struct {
	ID       uint64
	OwnerID  uint64
	Category *uint64
}

// ChannelStore persists managed channel records. All operations are atomic
// single-record operations.
type ChannelStore interface {
	// Insert adds a new record. Returns ErrAlreadyExists when the id is taken.
	Insert(ctx context.Context, channel Channel) error
	// Update replaces an existing record. Returns ErrNotFound when absent.
	Update(ctx context.Context, channel Channel) error
	// GetByID returns the record for a channel id.
	GetByID(ctx context.Context, id uint64) (Channel, error)
	// ListByOwner returns every record owned by the user, in no
	// particular order.
	ListByOwner(ctx context.Context, ownerID uint64) ([]Channel, error)
	// DeleteByID removes and returns the record for a channel id.
	DeleteByID(ctx context.Context, id uint64) (Channel, error)
}
