// Package datastore provides the redis and in-memory constraint stores used by the API
package datastore

import (
	"context"
	"errors"

	"github.com/chainbound/bolt-relay/common"
)

var ErrNilConstraints = errors.New("nil constraints")

// Auctioneer is the constraints side of the relay store. Each signed batch is saved
// independently; grouping and ordering of batches within a slot is store-defined.
// Implementations must be safe for concurrent use.
type Auctioneer interface {
	SaveConstraints(ctx context.Context, slot uint64, constraints *common.ConstraintsWithProofData) error
	GetConstraints(ctx context.Context, slot uint64) ([]*common.ConstraintsWithProofData, error)
}
