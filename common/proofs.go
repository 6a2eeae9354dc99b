package common

import (
	"errors"
	"fmt"
	"math"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	fastSsz "github.com/ferranbt/fastssz"
)

var (
	ErrLengthMismatch     = errors.New("leaves and indices length mismatch")
	ErrLeavesMismatch     = errors.New("mismatch in provided leaves and leaves to prove")
	ErrMissingHash        = errors.New("hash not found in constraints")
	ErrVerificationFailed = errors.New("proof verification failed")
)

// MissingHashError identifies the claimed transaction hash that has no matching
// constraint. It matches ErrMissingHash with errors.Is.
type MissingHashError struct {
	Hash phase0.Hash32
}

func (e *MissingHashError) Error() string {
	return fmt.Sprintf("%s: %#x", ErrMissingHash, e.Hash[:])
}

func (e *MissingHashError) Is(target error) bool {
	return target == ErrMissingHash
}

// InclusionProofs is a Merkle multiproof of inclusion of a set of TransactionHashes
// in the transactions tree of a block.
//   - `GeneralizedIndexes` are the positions of the transactions in the SSZ tree
//     created from the list of transactions, in the same order as TransactionHashes.
//   - `MerkleHashes` are the helper hashes needed to reconstruct the root.
//
// For reference, see https://github.com/ethereum/consensus-specs/blob/dev/ssz/merkle-proofs.md
type InclusionProofs struct {
	TransactionHashes  []phase0.Hash32 `json:"transaction_hashes"`
	GeneralizedIndexes []uint64        `json:"generalized_indexes"`
	MerkleHashes       []HexBytes      `json:"merkle_hashes"`
}

// TotalLeaves returns the number of leaves the proof claims to prove.
func (p *InclusionProofs) TotalLeaves() int {
	return len(p.TransactionHashes)
}

func (p *InclusionProofs) String() string {
	return JSONStringify(p)
}

// InclusionProofsFromMultiproof converts a fastssz.Multiproof into InclusionProofs
// for the given transaction hashes.
func InclusionProofsFromMultiproof(mp *fastSsz.Multiproof, hashes []phase0.Hash32) *InclusionProofs {
	merkleHashes := make([]HexBytes, len(mp.Hashes))
	for i, h := range mp.Hashes {
		merkleHashes[i] = h
	}
	generalizedIndexes := make([]uint64, len(mp.Indices))
	for i, idx := range mp.Indices {
		generalizedIndexes[i] = uint64(idx)
	}
	return &InclusionProofs{
		TransactionHashes:  hashes,
		GeneralizedIndexes: generalizedIndexes,
		MerkleHashes:       merkleHashes,
	}
}

// ProofDatum pairs a transaction hash with the hash tree root of the raw transaction,
// which is the leaf used in inclusion proofs.
type ProofDatum struct {
	TxHash       phase0.Hash32 `json:"tx_hash"`
	HashTreeRoot phase0.Root   `json:"hash_tree_root"`
}

// ConstraintsWithProofData is a verified ConstraintsMessage together with the data
// needed to check inclusion proofs against it. ProofData has the same length and
// order as Message.Transactions.
type ConstraintsWithProofData struct {
	Message   *ConstraintsMessage `json:"message"`
	ProofData []ProofDatum        `json:"proof_data"`
}

func (c *ConstraintsWithProofData) String() string {
	return JSONStringify(c)
}

// NewConstraintsWithProofData computes the transaction hash and hash tree root of
// every transaction in the message.
func NewConstraintsWithProofData(message *ConstraintsMessage) (*ConstraintsWithProofData, error) {
	proofData := make([]ProofDatum, len(message.Transactions))
	for i := range message.Transactions {
		tx := message.Transactions[i]

		txHash, err := tx.Hash()
		if err != nil {
			return nil, fmt.Errorf("could not decode transaction %d: %w", i, err)
		}
		root, err := tx.HashTreeRoot()
		if err != nil {
			return nil, fmt.Errorf("could not compute hash tree root of transaction %d: %w", i, err)
		}

		proofData[i] = ProofDatum{TxHash: txHash, HashTreeRoot: root}
	}

	return &ConstraintsWithProofData{Message: message, ProofData: proofData}, nil
}

// totalLeaves returns the number of leaves that need to be proven, i.e. all
// transactions of all constraints.
func totalLeaves(constraints []*ConstraintsWithProofData) int {
	total := 0
	for _, c := range constraints {
		total += len(c.ProofData)
	}
	return total
}

// findLeaf returns the hash tree root stored for txHash, scanning constraints in
// order and returning the first match.
func findLeaf(constraints []*ConstraintsWithProofData, txHash phase0.Hash32) (phase0.Root, bool) {
	for _, c := range constraints {
		for _, datum := range c.ProofData {
			if datum.TxHash == txHash {
				return datum.HashTreeRoot, true
			}
		}
	}
	return phase0.Root{}, false
}

// VerifyMultiproofs verifies the provided multiproof against the constraints and the
// transactions root. Relative ordering of transactions (bundles) is not verified.
func VerifyMultiproofs(constraints []*ConstraintsWithProofData, proofs *InclusionProofs, root phase0.Root) error {
	if len(proofs.TransactionHashes) != len(proofs.GeneralizedIndexes) {
		return ErrLengthMismatch
	}

	if totalLeaves(constraints) != proofs.TotalLeaves() {
		return ErrLeavesMismatch
	}

	leaves := make([][]byte, 0, proofs.TotalLeaves())
	for _, txHash := range proofs.TransactionHashes {
		leaf, ok := findLeaf(constraints, txHash)
		if !ok {
			return &MissingHashError{Hash: txHash}
		}
		leaves = append(leaves, leaf[:])
	}

	// the root (1) cannot be proven and 0 is not a node
	indices := make([]int, len(proofs.GeneralizedIndexes))
	for i, index := range proofs.GeneralizedIndexes {
		if index < 2 || index > math.MaxInt {
			return ErrVerificationFailed
		}
		indices[i] = int(index)
	}

	hashes := make([][]byte, len(proofs.MerkleHashes))
	for i, h := range proofs.MerkleHashes {
		hashes[i] = h
	}

	ok, err := verifyMultiproof(root[:], hashes, leaves, indices)
	if err != nil || !ok {
		return ErrVerificationFailed
	}
	return nil
}

// verifyMultiproof calls fastssz, turning a panic on malformed input into an error.
func verifyMultiproof(root []byte, hashes, leaves [][]byte, indices []int) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("multiproof verification panicked: %v", r)
		}
	}()
	return fastSsz.VerifyMultiproof(root, hashes, leaves, indices)
}
