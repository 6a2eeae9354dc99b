package common

import (
	"errors"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/flashbots/go-boost-utils/ssz"
	blst "github.com/supranational/blst/bindings/go"
)

var ErrInvalidSignature = errors.New("invalid signature")

type blsPublicKey = blst.P1Affine

// HashTreeRooter is any SSZ container that can be signed.
type HashTreeRooter interface {
	HashTreeRoot() ([32]byte, error)
}

// VerifySignature checks that signature is a valid BLS signature by pubkey over
// compute_signing_root(obj, domain). Every failure, including a malformed key or
// signature, is reported as ErrInvalidSignature.
func VerifySignature(obj HashTreeRooter, domain phase0.Domain, pubkey phase0.BLSPubKey, signature phase0.BLSSignature) error {
	if !IsValidPublicKey(pubkey) {
		return ErrInvalidSignature
	}

	ok, err := ssz.VerifySignature(obj, domain, pubkey[:], signature[:])
	if err != nil || !ok {
		return ErrInvalidSignature
	}
	return nil
}

// IsValidPublicKey reports whether pubkey is a compressed G1 point in the
// correct subgroup and not the point at infinity.
func IsValidPublicKey(pubkey phase0.BLSPubKey) bool {
	pk := new(blsPublicKey).Uncompress(pubkey[:])
	if pk == nil {
		return false
	}
	return pk.KeyValidate()
}

// VerifySignature checks the constraints were signed by the key in the message.
func (s *SignedConstraints) VerifySignature(domain phase0.Domain) error {
	if s.Message == nil {
		return ErrInvalidSignature
	}
	return VerifySignature(s.Message, domain, s.Message.Pubkey, s.Signature)
}

// VerifySignature checks the delegation was signed by the validator key in the message.
func (s *SignedDelegation) VerifySignature(domain phase0.Domain) error {
	if s.Message == nil {
		return ErrInvalidSignature
	}
	return VerifySignature(s.Message, domain, s.Message.ValidatorPubkey, s.Signature)
}

// VerifySignature checks the revocation was signed by the validator key in the message.
func (s *SignedRevocation) VerifySignature(domain phase0.Domain) error {
	if s.Message == nil {
		return ErrInvalidSignature
	}
	return VerifySignature(s.Message, domain, s.Message.ValidatorPubkey, s.Signature)
}
