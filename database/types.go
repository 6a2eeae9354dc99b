package database

import "time"

type ValidatorDelegationEntry struct {
	ID         int64     `db:"id"`
	InsertedAt time.Time `db:"inserted_at"`

	ValidatorPubkey string `db:"validator_pubkey"`
	ValidatorIndex  int64  `db:"validator_index"`
	DelegateePubkey string `db:"delegatee_pubkey"`
	Signature       string `db:"signature"`

	RevokedAt           *time.Time `db:"revoked_at"`
	RevocationSignature string     `db:"revocation_signature"`
}

// Active reports whether the delegation has not been revoked.
func (e *ValidatorDelegationEntry) Active() bool {
	return e.RevokedAt == nil
}
