package database

var tableValidatorDelegations = "validator_delegations"

var schema = `
CREATE TABLE IF NOT EXISTS ` + tableValidatorDelegations + ` (
	id                   bigserial NOT NULL PRIMARY KEY,
	inserted_at          timestamptz NOT NULL DEFAULT current_timestamp,

	validator_pubkey     varchar(98) NOT NULL,
	validator_index      bigint NOT NULL,
	delegatee_pubkey     varchar(98) NOT NULL,
	signature            varchar(194) NOT NULL,

	revoked_at           timestamptz,
	revocation_signature varchar(194) NOT NULL DEFAULT '',

	UNIQUE (validator_pubkey, delegatee_pubkey)
);

CREATE INDEX IF NOT EXISTS ` + tableValidatorDelegations + `_validator_pubkey_idx ON ` + tableValidatorDelegations + `(validator_pubkey);
`
