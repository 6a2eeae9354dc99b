package common

import (
	"crypto/sha256"
	"testing"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/stretchr/testify/require"
)

// twoLeafFixture builds a constraint record with proof data [(H1,R1), (H2,R2)]
// and the root of the two-leaf tree over R1 and R2.
func twoLeafFixture() ([]*ConstraintsWithProofData, phase0.Hash32, phase0.Hash32, phase0.Root) {
	h1 := phase0.Hash32{0x11}
	h2 := phase0.Hash32{0x22}
	r1 := phase0.Root{0xa1}
	r2 := phase0.Root{0xa2}

	constraints := []*ConstraintsWithProofData{
		{
			Message: &ConstraintsMessage{Slot: 1},
			ProofData: []ProofDatum{
				{TxHash: h1, HashTreeRoot: r1},
				{TxHash: h2, HashTreeRoot: r2},
			},
		},
	}

	root := phase0.Root(sha256.Sum256(append(r1[:], r2[:]...)))
	return constraints, h1, h2, root
}

func TestVerifyMultiproofs_TwoLeafTree(t *testing.T) {
	constraints, h1, h2, root := twoLeafFixture()
	h3 := phase0.Hash32{0x33}

	type test struct {
		name    string
		proofs  *InclusionProofs
		root    phase0.Root
		wantErr error
	}

	tests := []test{
		{
			name: "valid",
			proofs: &InclusionProofs{
				TransactionHashes:  []phase0.Hash32{h1, h2},
				GeneralizedIndexes: []uint64{2, 3},
				MerkleHashes:       []HexBytes{},
			},
			root: root,
		},
		{
			name: "claims in reverse order",
			proofs: &InclusionProofs{
				TransactionHashes:  []phase0.Hash32{h2, h1},
				GeneralizedIndexes: []uint64{3, 2},
				MerkleHashes:       []HexBytes{},
			},
			root: root,
		},
		{
			name: "length mismatch",
			proofs: &InclusionProofs{
				TransactionHashes:  []phase0.Hash32{h1, h2},
				GeneralizedIndexes: []uint64{2},
			},
			root:    root,
			wantErr: ErrLengthMismatch,
		},
		{
			name: "leaves mismatch",
			proofs: &InclusionProofs{
				TransactionHashes:  []phase0.Hash32{h1},
				GeneralizedIndexes: []uint64{2},
			},
			root:    root,
			wantErr: ErrLeavesMismatch,
		},
		{
			name: "missing hash",
			proofs: &InclusionProofs{
				TransactionHashes:  []phase0.Hash32{h1, h3},
				GeneralizedIndexes: []uint64{2, 3},
			},
			root:    root,
			wantErr: ErrMissingHash,
		},
		{
			name: "swapped indexes",
			proofs: &InclusionProofs{
				TransactionHashes:  []phase0.Hash32{h1, h2},
				GeneralizedIndexes: []uint64{3, 2},
				MerkleHashes:       []HexBytes{},
			},
			root:    root,
			wantErr: ErrVerificationFailed,
		},
		{
			name: "wrong root",
			proofs: &InclusionProofs{
				TransactionHashes:  []phase0.Hash32{h1, h2},
				GeneralizedIndexes: []uint64{2, 3},
				MerkleHashes:       []HexBytes{},
			},
			root:    phase0.Root{0x01},
			wantErr: ErrVerificationFailed,
		},
		{
			name: "unexpected merkle hash",
			proofs: &InclusionProofs{
				TransactionHashes:  []phase0.Hash32{h1, h2},
				GeneralizedIndexes: []uint64{2, 3},
				MerkleHashes:       []HexBytes{make([]byte, 32)},
			},
			root:    root,
			wantErr: ErrVerificationFailed,
		},
		{
			name: "zero indexes",
			proofs: &InclusionProofs{
				TransactionHashes:  []phase0.Hash32{h1, h2},
				GeneralizedIndexes: []uint64{0, 0},
				MerkleHashes:       []HexBytes{},
			},
			root:    root,
			wantErr: ErrVerificationFailed,
		},
		{
			name: "root index",
			proofs: &InclusionProofs{
				TransactionHashes:  []phase0.Hash32{h1, h2},
				GeneralizedIndexes: []uint64{1, 3},
				MerkleHashes:       []HexBytes{},
			},
			root:    root,
			wantErr: ErrVerificationFailed,
		},
		{
			name: "index overflows int",
			proofs: &InclusionProofs{
				TransactionHashes:  []phase0.Hash32{h1, h2},
				GeneralizedIndexes: []uint64{1 << 63, 3},
				MerkleHashes:       []HexBytes{},
			},
			root:    root,
			wantErr: ErrVerificationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyMultiproofs(constraints, tt.proofs, tt.root)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestVerifyMultiproofRecoversPanic(t *testing.T) {
	// a zero index makes fastssz size a buffer from log2(0)
	ok, err := verifyMultiproof(make([]byte, 32), nil, [][]byte{make([]byte, 32), make([]byte, 32)}, []int{0, 0})
	require.Error(t, err)
	require.False(t, ok)
}

func TestVerifyMultiproofs_MissingHashCarriesHash(t *testing.T) {
	constraints, h1, _, root := twoLeafFixture()
	h3 := phase0.Hash32{0x33}

	err := VerifyMultiproofs(constraints, &InclusionProofs{
		TransactionHashes:  []phase0.Hash32{h1, h3},
		GeneralizedIndexes: []uint64{2, 3},
	}, root)

	var missing *MissingHashError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, h3, missing.Hash)
}

func TestVerifyMultiproofs_EmptyRequest(t *testing.T) {
	err := VerifyMultiproofs(nil, &InclusionProofs{}, phase0.Root{})
	require.ErrorIs(t, err, ErrVerificationFailed)
}

func TestVerifyMultiproofs_BlockTransactions(t *testing.T) {
	txs := testTransactions(t)

	// the block holds all transactions, two of them are constrained
	positions := []int{0, 2}
	proofs, root, err := ProveTransactions(txs, positions)
	require.NoError(t, err)
	require.Equal(t, []uint64{1<<21 + 0, 1<<21 + 2}, proofs.GeneralizedIndexes)
	require.Equal(t, testHash32(t, testTxHashes[0]), proofs.TransactionHashes[0])
	require.Equal(t, testHash32(t, testTxHashes[2]), proofs.TransactionHashes[1])

	constraints, err := NewConstraintsWithProofData(&ConstraintsMessage{
		Slot:         10,
		Transactions: []Transaction{txs[2], txs[0]},
	})
	require.NoError(t, err)
	stored := []*ConstraintsWithProofData{constraints}

	require.NoError(t, VerifyMultiproofs(stored, proofs, root))

	t.Run("flipped merkle hash", func(t *testing.T) {
		tampered := *proofs
		tampered.MerkleHashes = make([]HexBytes, len(proofs.MerkleHashes))
		for i, h := range proofs.MerkleHashes {
			tampered.MerkleHashes[i] = append(HexBytes{}, h...)
		}
		tampered.MerkleHashes[0][0] ^= 0xff
		require.ErrorIs(t, VerifyMultiproofs(stored, &tampered, root), ErrVerificationFailed)
	})

	t.Run("flipped generalized index", func(t *testing.T) {
		tampered := *proofs
		tampered.GeneralizedIndexes = []uint64{proofs.GeneralizedIndexes[0] + 1, proofs.GeneralizedIndexes[1]}
		require.ErrorIs(t, VerifyMultiproofs(stored, &tampered, root), ErrVerificationFailed)
	})

	t.Run("split across batches", func(t *testing.T) {
		first, err := NewConstraintsWithProofData(&ConstraintsMessage{Transactions: []Transaction{txs[0]}})
		require.NoError(t, err)
		second, err := NewConstraintsWithProofData(&ConstraintsMessage{Transactions: []Transaction{txs[2]}})
		require.NoError(t, err)
		require.NoError(t, VerifyMultiproofs([]*ConstraintsWithProofData{first, second}, proofs, root))
	})
}

func TestNewConstraintsWithProofData(t *testing.T) {
	txs := testTransactions(t)

	constraints, err := NewConstraintsWithProofData(&ConstraintsMessage{Transactions: txs})
	require.NoError(t, err)
	require.Len(t, constraints.ProofData, len(txs))

	for i, datum := range constraints.ProofData {
		require.Equal(t, testHash32(t, testTxHashes[i]), datum.TxHash)
		root, err := txs[i].HashTreeRoot()
		require.NoError(t, err)
		require.Equal(t, phase0.Root(root), datum.HashTreeRoot)
	}

	_, err = NewConstraintsWithProofData(&ConstraintsMessage{Transactions: []Transaction{{0x01, 0x02}}})
	require.Error(t, err)
}
