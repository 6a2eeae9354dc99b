package datastore

import (
	"context"
	"sync"

	"github.com/chainbound/bolt-relay/common"
	"github.com/chainbound/shardmap"
)

// MemoryAuctioneer keeps the constraints of the most recent slots in memory. Once
// maxSlots slots have been written the oldest slot is evicted.
type MemoryAuctioneer struct {
	// guards the read-modify-write of a slot's list
	mu          sync.Mutex
	constraints *shardmap.FIFOMap[uint64, []*common.ConstraintsWithProofData]
}

func NewMemoryAuctioneer(maxSlots int) *MemoryAuctioneer {
	return &MemoryAuctioneer{
		constraints: shardmap.NewFIFOMap[uint64, []*common.ConstraintsWithProofData](maxSlots, 16, shardmap.HashUint64),
	}
}

func (m *MemoryAuctioneer) SaveConstraints(_ context.Context, slot uint64, constraints *common.ConstraintsWithProofData) error {
	if constraints == nil {
		return ErrNilConstraints
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, _ := m.constraints.Get(slot)
	updated := make([]*common.ConstraintsWithProofData, 0, len(existing)+1)
	updated = append(updated, existing...)
	m.constraints.Put(slot, append(updated, constraints))
	return nil
}

func (m *MemoryAuctioneer) GetConstraints(_ context.Context, slot uint64) ([]*common.ConstraintsWithProofData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, _ := m.constraints.Get(slot)
	out := make([]*common.ConstraintsWithProofData, len(existing))
	copy(out, existing)
	return out, nil
}
