package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/chainbound/bolt-relay/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNilMessage             = errors.New("signed message without a message")
	ErrValidatorIndexOverflow = errors.New("validator index does not fit in a bigint")
)

// IDatabaseService persists the delegation state of validators.
type IDatabaseService interface {
	SaveValidatorDelegation(ctx context.Context, delegation *common.SignedDelegation) error
	RevokeValidatorDelegation(ctx context.Context, revocation *common.SignedRevocation) error
	GetValidatorDelegations(ctx context.Context, validatorPubkey phase0.BLSPubKey) ([]*ValidatorDelegationEntry, error)
	Close()
}

type DatabaseService struct {
	pool *pgxpool.Pool
}

// NewDatabaseService connects to dsn and makes sure the schema exists.
func NewDatabaseService(ctx context.Context, dsn string) (*DatabaseService, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &DatabaseService{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *DatabaseService) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *DatabaseService) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveValidatorDelegation stores the delegation. Delegating again to a revoked
// delegatee reinstates it.
func (s *DatabaseService) SaveValidatorDelegation(ctx context.Context, delegation *common.SignedDelegation) error {
	if delegation == nil || delegation.Message == nil {
		return ErrNilMessage
	}
	msg := delegation.Message
	if msg.ValidatorIndex > math.MaxInt64 {
		return ErrValidatorIndexOverflow
	}

	query := `
INSERT INTO ` + tableValidatorDelegations + ` (validator_pubkey, validator_index, delegatee_pubkey, signature)
VALUES ($1, $2, $3, $4)
ON CONFLICT (validator_pubkey, delegatee_pubkey)
DO UPDATE SET validator_index = EXCLUDED.validator_index, signature = EXCLUDED.signature, revoked_at = NULL, revocation_signature = ''`
	_, err := s.pool.Exec(ctx, query,
		msg.ValidatorPubkey.String(),
		int64(msg.ValidatorIndex),
		msg.DelegateePubkey.String(),
		delegation.Signature.String(),
	)
	if err != nil {
		return fmt.Errorf("save delegation: %w", err)
	}
	return nil
}

// RevokeValidatorDelegation marks the delegation as revoked. Revoking a
// delegation that was never saved is not an error.
func (s *DatabaseService) RevokeValidatorDelegation(ctx context.Context, revocation *common.SignedRevocation) error {
	if revocation == nil || revocation.Message == nil {
		return ErrNilMessage
	}
	msg := revocation.Message

	query := `
UPDATE ` + tableValidatorDelegations + `
SET revoked_at = $3, revocation_signature = $4
WHERE validator_pubkey = $1 AND delegatee_pubkey = $2 AND revoked_at IS NULL`
	_, err := s.pool.Exec(ctx, query,
		msg.ValidatorPubkey.String(),
		msg.DelegateePubkey.String(),
		time.Now().UTC(),
		revocation.Signature.String(),
	)
	if err != nil {
		return fmt.Errorf("revoke delegation: %w", err)
	}
	return nil
}

// GetValidatorDelegations returns every delegation of the validator, revoked ones included.
func (s *DatabaseService) GetValidatorDelegations(ctx context.Context, validatorPubkey phase0.BLSPubKey) ([]*ValidatorDelegationEntry, error) {
	query := `
SELECT id, inserted_at, validator_pubkey, validator_index, delegatee_pubkey, signature, revoked_at, revocation_signature
FROM ` + tableValidatorDelegations + `
WHERE validator_pubkey = $1
ORDER BY id ASC`
	rows, err := s.pool.Query(ctx, query, validatorPubkey.String())
	if err != nil {
		return nil, fmt.Errorf("get delegations: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[ValidatorDelegationEntry])
	if err != nil {
		return nil, fmt.Errorf("get delegations: %w", err)
	}
	return entries, nil
}
