package common

import (
	"github.com/attestantio/go-eth2-client/spec/phase0"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	ssz "github.com/ferranbt/fastssz"
)

// MaxBytesPerTransaction is the maximum length in bytes of a raw RLP-encoded transaction
var MaxBytesPerTransaction uint64 = 1_073_741_824 // 2**30

// Transaction is a raw EIP-2718 encoded transaction that implements the ssz.HashRoot interface
type Transaction HexBytes

// HashTreeRoot calculates the hash tree root of the transaction, which
// is a list of basic types (byte).
//
// Reference: https://github.com/ethereum/consensus-specs/blob/dev/ssz/simple-serialize.md#merkleization
func (tx *Transaction) HashTreeRoot() ([32]byte, error) {
	hasher := ssz.NewHasher()
	if err := tx.HashTreeRootWith(hasher); err != nil {
		return [32]byte{}, err
	}
	return hasher.HashRoot()
}

func (tx *Transaction) HashTreeRootWith(hh ssz.HashWalker) error {
	indx := hh.Index()
	byteLen := uint64(len(*tx))

	if byteLen > MaxBytesPerTransaction {
		return ssz.ErrIncorrectListSize
	}

	// Load the bytes of the transaction into the hasher
	hh.AppendBytes32(*tx)
	// Perform `mix_in_length(merkleize(pack(value), limit=chunk_count(type)), len(value))`
	hh.MerkleizeWithMixin(indx, byteLen, (MaxBytesPerTransaction+31)/32)

	return nil
}

// Hash decodes the transaction envelope and returns its execution layer hash.
func (tx Transaction) Hash() (phase0.Hash32, error) {
	decoded := new(gethTypes.Transaction)
	if err := decoded.UnmarshalBinary(tx); err != nil {
		return phase0.Hash32{}, err
	}
	return phase0.Hash32(decoded.Hash()), nil
}

func (tx Transaction) MarshalJSON() ([]byte, error) {
	return HexBytes(tx).MarshalJSON()
}

func (tx *Transaction) UnmarshalJSON(buf []byte) error {
	return (*HexBytes)(tx).UnmarshalJSON(buf)
}

func (tx Transaction) String() string {
	return JSONStringify(tx)
}
