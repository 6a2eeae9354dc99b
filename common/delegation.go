package common

import (
	"github.com/attestantio/go-eth2-client/spec/phase0"
	ssz "github.com/ferranbt/fastssz"
)

// Actions carried by the first byte of a delegation or revocation message. They keep
// a signed delegation from being replayed as a revocation and vice versa.
const (
	ActionDelegation uint8 = 0
	ActionRevocation uint8 = 1
)

const (
	delegationMessageSize = 1 + 8 + 48 + 48
	signedDelegationSize  = delegationMessageSize + 96
)

// DelegationMessage authorizes DelegateePubkey to submit constraints on behalf of
// the validator. It must be signed by ValidatorPubkey.
//
// Reference: https://chainbound.github.io/bolt-docs/api/builder#delegate
type DelegationMessage struct {
	Action          uint8            `json:"action"`
	ValidatorIndex  uint64           `json:"validator_index"`
	ValidatorPubkey phase0.BLSPubKey `json:"validator_pubkey" ssz-size:"48"`
	DelegateePubkey phase0.BLSPubKey `json:"delegatee_pubkey" ssz-size:"48"`
}

// RevocationMessage withdraws a delegation. It has the same shape as DelegationMessage.
//
// Reference: https://chainbound.github.io/bolt-docs/api/builder#revoke
type RevocationMessage DelegationMessage

type SignedDelegation struct {
	Message   *DelegationMessage  `json:"message"`
	Signature phase0.BLSSignature `json:"signature" ssz-size:"96"`
}

type SignedRevocation struct {
	Message   *RevocationMessage  `json:"message"`
	Signature phase0.BLSSignature `json:"signature" ssz-size:"96"`
}

func (d *DelegationMessage) String() string {
	return JSONStringify(d)
}

func (r *RevocationMessage) String() string {
	return JSONStringify(r)
}

// SizeSSZ returns the ssz encoded size in bytes for the DelegationMessage object
func (d *DelegationMessage) SizeSSZ() int {
	return delegationMessageSize
}

// MarshalSSZ ssz marshals the DelegationMessage object
func (d *DelegationMessage) MarshalSSZ() ([]byte, error) {
	return d.MarshalSSZTo(make([]byte, 0, delegationMessageSize))
}

// MarshalSSZTo ssz marshals the DelegationMessage object to a target array
func (d *DelegationMessage) MarshalSSZTo(buf []byte) ([]byte, error) {
	dst := buf
	dst = ssz.MarshalUint8(dst, d.Action)
	dst = ssz.MarshalUint64(dst, d.ValidatorIndex)
	dst = append(dst, d.ValidatorPubkey[:]...)
	dst = append(dst, d.DelegateePubkey[:]...)
	return dst, nil
}

// UnmarshalSSZ ssz unmarshals the DelegationMessage object
func (d *DelegationMessage) UnmarshalSSZ(buf []byte) error {
	if len(buf) != delegationMessageSize {
		return ssz.ErrSize
	}
	d.Action = ssz.UnmarshallUint8(buf[0:1])
	d.ValidatorIndex = ssz.UnmarshallUint64(buf[1:9])
	copy(d.ValidatorPubkey[:], buf[9:57])
	copy(d.DelegateePubkey[:], buf[57:105])
	return nil
}

// HashTreeRoot ssz hashes the DelegationMessage object
func (d *DelegationMessage) HashTreeRoot() ([32]byte, error) {
	hasher := ssz.NewHasher()
	if err := d.HashTreeRootWith(hasher); err != nil {
		return [32]byte{}, err
	}
	return hasher.HashRoot()
}

// HashTreeRootWith ssz hashes the DelegationMessage object with a hasher
func (d *DelegationMessage) HashTreeRootWith(hh ssz.HashWalker) error {
	indx := hh.Index()
	hh.PutUint8(d.Action)
	hh.PutUint64(d.ValidatorIndex)
	hh.PutBytes(d.ValidatorPubkey[:])
	hh.PutBytes(d.DelegateePubkey[:])
	hh.Merkleize(indx)
	return nil
}

func (r *RevocationMessage) SizeSSZ() int {
	return delegationMessageSize
}

func (r *RevocationMessage) MarshalSSZ() ([]byte, error) {
	return (*DelegationMessage)(r).MarshalSSZ()
}

func (r *RevocationMessage) MarshalSSZTo(buf []byte) ([]byte, error) {
	return (*DelegationMessage)(r).MarshalSSZTo(buf)
}

func (r *RevocationMessage) UnmarshalSSZ(buf []byte) error {
	return (*DelegationMessage)(r).UnmarshalSSZ(buf)
}

func (r *RevocationMessage) HashTreeRoot() ([32]byte, error) {
	return (*DelegationMessage)(r).HashTreeRoot()
}

func (r *RevocationMessage) HashTreeRootWith(hh ssz.HashWalker) error {
	return (*DelegationMessage)(r).HashTreeRootWith(hh)
}

// MarshalSSZ ssz marshals the SignedDelegation object
func (s *SignedDelegation) MarshalSSZ() ([]byte, error) {
	return marshalSignedAuthority(s.Message, s.Signature)
}

// UnmarshalSSZ ssz unmarshals the SignedDelegation object
func (s *SignedDelegation) UnmarshalSSZ(buf []byte) error {
	if len(buf) != signedDelegationSize {
		return ssz.ErrSize
	}
	s.Message = new(DelegationMessage)
	if err := s.Message.UnmarshalSSZ(buf[:delegationMessageSize]); err != nil {
		return err
	}
	copy(s.Signature[:], buf[delegationMessageSize:])
	return nil
}

// MarshalSSZ ssz marshals the SignedRevocation object
func (s *SignedRevocation) MarshalSSZ() ([]byte, error) {
	return marshalSignedAuthority((*DelegationMessage)(s.Message), s.Signature)
}

// UnmarshalSSZ ssz unmarshals the SignedRevocation object
func (s *SignedRevocation) UnmarshalSSZ(buf []byte) error {
	if len(buf) != signedDelegationSize {
		return ssz.ErrSize
	}
	s.Message = new(RevocationMessage)
	if err := s.Message.UnmarshalSSZ(buf[:delegationMessageSize]); err != nil {
		return err
	}
	copy(s.Signature[:], buf[delegationMessageSize:])
	return nil
}

func marshalSignedAuthority(message *DelegationMessage, signature phase0.BLSSignature) ([]byte, error) {
	if message == nil {
		message = new(DelegationMessage)
	}
	dst, err := message.MarshalSSZTo(make([]byte, 0, signedDelegationSize))
	if err != nil {
		return nil, err
	}
	return append(dst, signature[:]...), nil
}
