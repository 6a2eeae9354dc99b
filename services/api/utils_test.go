package api

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/chainbound/bolt-relay/common"
	"github.com/chainbound/bolt-relay/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/flashbots/go-boost-utils/bls"
	"github.com/flashbots/go-boost-utils/ssz"
	"github.com/stretchr/testify/require"
)

// https://etherscan.io/tx/0x138a5f8ba7950521d9dec66ee760b101e0c875039e695c9fcfb34f5ef02a881b
// https://etherscan.io/tx/0xfb0ee9de8941c8ad50e6a3d2999cd6ef7a541ec9cb1ba5711b76fcfd1662dfa9
var testRawTxs = []string{
	"0x02f873011a8405f5e10085037fcc60e182520894f7eaaf75cb6ec4d0e2b53964ce6733f54f7d3ffc880b6139a7cbd2000080c080a095a7a3cbb7383fc3e7d217054f861b890a935adc1adf4f05e3a2f23688cf2416a00875cdc45f4395257e44d709d04990349b105c22c11034a60d7af749ffea2765",
	"0xf8708305dc6885029332e35883019a2894500b0107e172e420561565c8177c28ac0f62017f8810ffb80e6cc327008025a0e9c0b380c68f040ae7affefd11979f5ed18ae82c00e46aa3238857c372a358eca06b26e179dd2f7a7f1601755249f4cff56690c4033553658f0d73e26c36fe7815",
}

type mockAuctioneer struct {
	mu    sync.Mutex
	saved []*common.ConstraintsWithProofData
	err   error
}

func (m *mockAuctioneer) SaveConstraints(_ context.Context, slot uint64, constraints *common.ConstraintsWithProofData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, constraints)
	return nil
}

func (m *mockAuctioneer) GetConstraints(_ context.Context, slot uint64) ([]*common.ConstraintsWithProofData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*common.ConstraintsWithProofData{}
	for _, c := range m.saved {
		if c.Message.Slot == slot {
			out = append(out, c)
		}
	}
	return out, nil
}

type testBackend struct {
	api        *ConstraintsAPI
	auctioneer *mockAuctioneer
	db         *database.MockDB
	network    *common.EthNetworkDetails

	sk     *bls.SecretKey
	pubkey phase0.BLSPubKey
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()

	network, err := common.NewEthNetworkDetails(common.EthNetworkHelder)
	require.NoError(t, err)

	auctioneer := &mockAuctioneer{}
	db := &database.MockDB{}
	api, err := NewConstraintsAPI(ConstraintsAPIOpts{
		Log:           common.LogSetup(false, "error"),
		Auctioneer:    auctioneer,
		DB:            db,
		EthNetDetails: *network,
	})
	require.NoError(t, err)

	skBytes, err := hex.DecodeString("51815cb2c5489f8d7dc4f9889b9771334a80ccc6a82ce9c2a1ef66dc270c9708")
	require.NoError(t, err)
	sk, err := bls.SecretKeyFromBytes(skBytes)
	require.NoError(t, err)
	pk, err := bls.PublicKeyFromSecretKey(sk)
	require.NoError(t, err)

	var pubkey phase0.BLSPubKey
	copy(pubkey[:], bls.PublicKeyToBytes(pk))

	return &testBackend{
		api:        api,
		auctioneer: auctioneer,
		db:         db,
		network:    network,
		sk:         sk,
		pubkey:     pubkey,
	}
}

func (b *testBackend) signedConstraints(t *testing.T, slot uint64, rawTxs ...string) *common.SignedConstraints {
	t.Helper()

	txs := make([]common.Transaction, len(rawTxs))
	for i, raw := range rawTxs {
		txs[i] = common.Transaction(hexutil.MustDecode(raw))
	}
	message := &common.ConstraintsMessage{
		Pubkey:         b.pubkey,
		ValidatorIndex: 5,
		Slot:           slot,
		Transactions:   txs,
	}
	signature, err := ssz.SignMessage(message, b.network.DomainBuilder, b.sk)
	require.NoError(t, err)
	return &common.SignedConstraints{Message: message, Signature: signature}
}

func (b *testBackend) signedDelegation(t *testing.T) *common.SignedDelegation {
	t.Helper()

	message := &common.DelegationMessage{
		Action:          common.ActionDelegation,
		ValidatorIndex:  5,
		ValidatorPubkey: b.pubkey,
		DelegateePubkey: phase0.BLSPubKey{0x01},
	}
	signature, err := ssz.SignMessage(message, b.network.DomainBuilder, b.sk)
	require.NoError(t, err)
	return &common.SignedDelegation{Message: message, Signature: signature}
}

func (b *testBackend) signedRevocation(t *testing.T) *common.SignedRevocation {
	t.Helper()

	message := &common.RevocationMessage{
		Action:          common.ActionRevocation,
		ValidatorIndex:  5,
		ValidatorPubkey: b.pubkey,
		DelegateePubkey: phase0.BLSPubKey{0x01},
	}
	signature, err := ssz.SignMessage(message, b.network.DomainBuilder, b.sk)
	require.NoError(t, err)
	return &common.SignedRevocation{Message: message, Signature: signature}
}

func (m *mockAuctioneer) numSaved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}
