package common

import (
	"fmt"

	"github.com/attestantio/go-eth2-client/spec/bellatrix"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	utilbellatrix "github.com/attestantio/go-eth2-client/util/bellatrix"
)

// transactionsBaseGeneralizedIndex is the generalized index of the first
// transaction in the tree of List[Transaction, 2^20]: the list root is 1, the
// data subtree 2, and its 2^20 leaves start at 2 * 2^20.
const transactionsBaseGeneralizedIndex = 1 << 21

// TransactionGeneralizedIndex returns the generalized index of the transaction at
// position in the transactions list of an execution payload.
func TransactionGeneralizedIndex(position int) uint64 {
	return transactionsBaseGeneralizedIndex + uint64(position)
}

// ProveTransactions computes a multiproof of the transactions at positions in
// the list of block transactions, and returns it with the transactions root.
func ProveTransactions(transactions []Transaction, positions []int) (*InclusionProofs, phase0.Root, error) {
	rawTxs := make([]bellatrix.Transaction, len(transactions))
	for i, tx := range transactions {
		rawTxs[i] = bellatrix.Transaction(tx)
	}

	payloadTxs := utilbellatrix.ExecutionPayloadTransactions{Transactions: rawTxs}
	rootNode, err := payloadTxs.GetTree()
	if err != nil {
		return nil, phase0.Root{}, fmt.Errorf("could not get tree from transactions: %w", err)
	}

	// populates the node values, ProveMulti reads them
	var root phase0.Root
	copy(root[:], rootNode.Hash())

	indices := make([]int, len(positions))
	hashes := make([]phase0.Hash32, len(positions))
	for i, position := range positions {
		if position < 0 || position >= len(transactions) {
			return nil, phase0.Root{}, fmt.Errorf("transaction position %d out of range", position)
		}
		txHash, err := transactions[position].Hash()
		if err != nil {
			return nil, phase0.Root{}, err
		}
		indices[i] = int(TransactionGeneralizedIndex(position))
		hashes[i] = txHash
	}

	multiproof, err := rootNode.ProveMulti(indices)
	if err != nil {
		return nil, phase0.Root{}, fmt.Errorf("could not calculate merkle multiproof: %w", err)
	}

	return InclusionProofsFromMultiproof(multiproof, hashes), root, nil
}
