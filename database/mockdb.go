package database

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/chainbound/bolt-relay/common"
)

type delegationKey struct {
	validator phase0.BLSPubKey
	delegatee phase0.BLSPubKey
}

// MockDB records delegations and revocations in memory. Err, when set, is
// returned by every write. Like the postgres table it keeps one entry per
// validator and delegatee pair, so a later delegation reinstates a revoked one.
type MockDB struct {
	mu sync.Mutex

	Delegations []*common.SignedDelegation
	Revocations []*common.SignedRevocation
	Err         error

	entries []*ValidatorDelegationEntry
	byKey   map[delegationKey]*ValidatorDelegationEntry
}

func (db *MockDB) SaveValidatorDelegation(ctx context.Context, delegation *common.SignedDelegation) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return db.Err
	}
	if delegation == nil || delegation.Message == nil {
		return ErrNilMessage
	}
	if delegation.Message.ValidatorIndex > math.MaxInt64 {
		return ErrValidatorIndexOverflow
	}
	db.Delegations = append(db.Delegations, delegation)

	msg := delegation.Message
	key := delegationKey{validator: msg.ValidatorPubkey, delegatee: msg.DelegateePubkey}
	if db.byKey == nil {
		db.byKey = make(map[delegationKey]*ValidatorDelegationEntry)
	}
	entry, ok := db.byKey[key]
	if !ok {
		entry = &ValidatorDelegationEntry{
			ID:              int64(len(db.entries) + 1),
			InsertedAt:      time.Now().UTC(),
			ValidatorPubkey: msg.ValidatorPubkey.String(),
			DelegateePubkey: msg.DelegateePubkey.String(),
		}
		db.byKey[key] = entry
		db.entries = append(db.entries, entry)
	}
	entry.ValidatorIndex = int64(msg.ValidatorIndex)
	entry.Signature = delegation.Signature.String()
	entry.RevokedAt = nil
	entry.RevocationSignature = ""
	return nil
}

func (db *MockDB) RevokeValidatorDelegation(ctx context.Context, revocation *common.SignedRevocation) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.Err != nil {
		return db.Err
	}
	if revocation == nil || revocation.Message == nil {
		return ErrNilMessage
	}
	db.Revocations = append(db.Revocations, revocation)

	msg := revocation.Message
	entry, ok := db.byKey[delegationKey{validator: msg.ValidatorPubkey, delegatee: msg.DelegateePubkey}]
	if !ok || entry.RevokedAt != nil {
		return nil
	}
	revokedAt := time.Now().UTC()
	entry.RevokedAt = &revokedAt
	entry.RevocationSignature = revocation.Signature.String()
	return nil
}

func (db *MockDB) GetValidatorDelegations(ctx context.Context, validatorPubkey phase0.BLSPubKey) ([]*ValidatorDelegationEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	pubkey := validatorPubkey.String()
	entries := []*ValidatorDelegationEntry{}
	for _, e := range db.entries {
		if e.ValidatorPubkey != pubkey {
			continue
		}
		entry := *e
		entries = append(entries, &entry)
	}
	return entries, nil
}

// Snapshot returns the number of recorded delegations and revocations.
func (db *MockDB) Snapshot() (delegations, revocations int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.Delegations), len(db.Revocations)
}

func (db *MockDB) Close() {}
