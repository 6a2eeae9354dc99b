package common

import (
	"fmt"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	ssz "github.com/ferranbt/fastssz"
)

// MaxConstraintsPerSlot is the SSZ limit on both the number of transactions in a
// ConstraintsMessage and the number of signed messages in a submission.
const MaxConstraintsPerSlot = 256

const (
	constraintsMessageFixedSize = 48 + 8 + 8 + 1 + 4
	signedConstraintsFixedSize  = 4 + 96
)

// ConstraintsMessage is the message signed by a proposer (or its delegatee)
// to commit to including Transactions in the block of Slot.
//
// Reference: https://chainbound.github.io/bolt-docs/api/builder#constraints
type ConstraintsMessage struct {
	// Pubkey is the BLS key that signed the message: the validator key or a delegatee.
	Pubkey         phase0.BLSPubKey `json:"pubkey" ssz-size:"48"`
	ValidatorIndex uint64           `json:"validator_index"`
	Slot           uint64           `json:"slot"`
	// Top requests the transactions to be placed at the top of the block, exclusively.
	Top          bool          `json:"top"`
	Transactions []Transaction `json:"transactions" ssz-max:"256,1073741824" ssz-size:"?,?"`
}

// SignedConstraints is a ConstraintsMessage with a BLS signature over its signing root.
type SignedConstraints struct {
	Message   *ConstraintsMessage `json:"message"`
	Signature phase0.BLSSignature `json:"signature" ssz-size:"96"`
}

// SignedConstraintsList is the body of a constraints submission.
type SignedConstraintsList []*SignedConstraints

func (c *ConstraintsMessage) String() string {
	return JSONStringify(c)
}

func (s *SignedConstraints) String() string {
	return JSONStringify(s)
}

// SizeSSZ returns the ssz encoded size in bytes for the ConstraintsMessage object
func (c *ConstraintsMessage) SizeSSZ() (size int) {
	size = constraintsMessageFixedSize
	for _, tx := range c.Transactions {
		size += 4 + len(tx)
	}
	return
}

// MarshalSSZ ssz marshals the ConstraintsMessage object
func (c *ConstraintsMessage) MarshalSSZ() ([]byte, error) {
	return c.MarshalSSZTo(make([]byte, 0, c.SizeSSZ()))
}

// MarshalSSZTo ssz marshals the ConstraintsMessage object to a target array
func (c *ConstraintsMessage) MarshalSSZTo(buf []byte) (dst []byte, err error) {
	dst = buf

	// Field (0) 'Pubkey'
	dst = append(dst, c.Pubkey[:]...)

	// Field (1) 'ValidatorIndex'
	dst = ssz.MarshalUint64(dst, c.ValidatorIndex)

	// Field (2) 'Slot'
	dst = ssz.MarshalUint64(dst, c.Slot)

	// Field (3) 'Top'
	dst = ssz.MarshalBool(dst, c.Top)

	// Offset (4) 'Transactions'
	dst = ssz.WriteOffset(dst, constraintsMessageFixedSize)

	// Field (4) 'Transactions'
	if size := len(c.Transactions); size > MaxConstraintsPerSlot {
		return nil, fmt.Errorf("%w: ConstraintsMessage.Transactions has %d items, max %d", ssz.ErrListTooBig, size, MaxConstraintsPerSlot)
	}
	offset := 4 * len(c.Transactions)
	for _, tx := range c.Transactions {
		dst = ssz.WriteOffset(dst, offset)
		offset += len(tx)
	}
	for _, tx := range c.Transactions {
		if uint64(len(tx)) > MaxBytesPerTransaction {
			return nil, ssz.ErrBytesLength
		}
		dst = append(dst, tx...)
	}

	return dst, nil
}

// UnmarshalSSZ ssz unmarshals the ConstraintsMessage object
func (c *ConstraintsMessage) UnmarshalSSZ(buf []byte) error {
	size := uint64(len(buf))
	if size < constraintsMessageFixedSize {
		return ssz.ErrSize
	}

	// Field (0) 'Pubkey'
	copy(c.Pubkey[:], buf[0:48])

	// Field (1) 'ValidatorIndex'
	c.ValidatorIndex = ssz.UnmarshallUint64(buf[48:56])

	// Field (2) 'Slot'
	c.Slot = ssz.UnmarshallUint64(buf[56:64])

	// Field (3) 'Top'
	top, err := unmarshalBool(buf[64])
	if err != nil {
		return err
	}
	c.Top = top

	// Offset (4) 'Transactions'
	o4 := ssz.ReadOffset(buf[65:69])
	if o4 != constraintsMessageFixedSize || o4 > size {
		return ssz.ErrOffset
	}

	// Field (4) 'Transactions'
	tail := buf[o4:]
	num, err := ssz.DecodeDynamicLength(tail, MaxConstraintsPerSlot)
	if err != nil {
		return err
	}
	c.Transactions = make([]Transaction, num)
	return ssz.UnmarshalDynamic(tail, num, func(indx int, buf []byte) error {
		if uint64(len(buf)) > MaxBytesPerTransaction {
			return ssz.ErrBytesLength
		}
		tx := make(Transaction, len(buf))
		copy(tx, buf)
		c.Transactions[indx] = tx
		return nil
	})
}

// HashTreeRoot ssz hashes the ConstraintsMessage object
func (c *ConstraintsMessage) HashTreeRoot() ([32]byte, error) {
	hasher := ssz.NewHasher()
	if err := c.HashTreeRootWith(hasher); err != nil {
		return [32]byte{}, err
	}
	return hasher.HashRoot()
}

// HashTreeRootWith ssz hashes the ConstraintsMessage object with a hasher
func (c *ConstraintsMessage) HashTreeRootWith(hh ssz.HashWalker) error {
	indx := hh.Index()

	// Field (0) 'Pubkey'
	hh.PutBytes(c.Pubkey[:])

	// Field (1) 'ValidatorIndex'
	hh.PutUint64(c.ValidatorIndex)

	// Field (2) 'Slot'
	hh.PutUint64(c.Slot)

	// Field (3) 'Top'
	hh.PutBool(c.Top)

	// Field (4) 'Transactions'
	{
		subIndx := hh.Index()
		num := uint64(len(c.Transactions))
		if num > MaxConstraintsPerSlot {
			return ssz.ErrIncorrectListSize
		}
		for i := range c.Transactions {
			if err := c.Transactions[i].HashTreeRootWith(hh); err != nil {
				return err
			}
		}
		hh.MerkleizeWithMixin(subIndx, num, MaxConstraintsPerSlot)
	}

	hh.Merkleize(indx)
	return nil
}

// SizeSSZ returns the ssz encoded size in bytes for the SignedConstraints object
func (s *SignedConstraints) SizeSSZ() int {
	size := signedConstraintsFixedSize
	if s.Message != nil {
		size += s.Message.SizeSSZ()
	} else {
		size += constraintsMessageFixedSize
	}
	return size
}

// MarshalSSZ ssz marshals the SignedConstraints object
func (s *SignedConstraints) MarshalSSZ() ([]byte, error) {
	return s.MarshalSSZTo(make([]byte, 0, s.SizeSSZ()))
}

// MarshalSSZTo ssz marshals the SignedConstraints object to a target array
func (s *SignedConstraints) MarshalSSZTo(buf []byte) (dst []byte, err error) {
	dst = buf

	message := s.Message
	if message == nil {
		message = new(ConstraintsMessage)
	}

	// Offset (0) 'Message'
	dst = ssz.WriteOffset(dst, signedConstraintsFixedSize)

	// Field (1) 'Signature'
	dst = append(dst, s.Signature[:]...)

	// Field (0) 'Message'
	return message.MarshalSSZTo(dst)
}

// UnmarshalSSZ ssz unmarshals the SignedConstraints object
func (s *SignedConstraints) UnmarshalSSZ(buf []byte) error {
	size := uint64(len(buf))
	if size < signedConstraintsFixedSize {
		return ssz.ErrSize
	}

	// Offset (0) 'Message'
	o0 := ssz.ReadOffset(buf[0:4])
	if o0 != signedConstraintsFixedSize || o0 > size {
		return ssz.ErrOffset
	}

	// Field (1) 'Signature'
	copy(s.Signature[:], buf[4:100])

	// Field (0) 'Message'
	s.Message = new(ConstraintsMessage)
	return s.Message.UnmarshalSSZ(buf[o0:])
}

// MarshalSSZ ssz marshals the list as List[SignedConstraints, MaxConstraintsPerSlot]
func (l SignedConstraintsList) MarshalSSZ() ([]byte, error) {
	if len(l) > MaxConstraintsPerSlot {
		return nil, fmt.Errorf("%w: %d signed constraints, max %d", ssz.ErrListTooBig, len(l), MaxConstraintsPerSlot)
	}

	size := 0
	for _, s := range l {
		size += 4 + s.SizeSSZ()
	}
	dst := make([]byte, 0, size)

	offset := 4 * len(l)
	for _, s := range l {
		dst = ssz.WriteOffset(dst, offset)
		offset += s.SizeSSZ()
	}

	var err error
	for _, s := range l {
		if dst, err = s.MarshalSSZTo(dst); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// UnmarshalSSZ ssz unmarshals a List[SignedConstraints, MaxConstraintsPerSlot]
func (l *SignedConstraintsList) UnmarshalSSZ(buf []byte) error {
	num, err := ssz.DecodeDynamicLength(buf, MaxConstraintsPerSlot)
	if err != nil {
		return err
	}
	list := make(SignedConstraintsList, num)
	err = ssz.UnmarshalDynamic(buf, num, func(indx int, buf []byte) error {
		list[indx] = new(SignedConstraints)
		return list[indx].UnmarshalSSZ(buf)
	})
	if err != nil {
		return err
	}
	*l = list
	return nil
}

func unmarshalBool(b byte) (bool, error) {
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid boolean byte %#x", ssz.ErrSize, b)
	}
}
