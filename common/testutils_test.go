package common

import (
	"encoding/hex"
	"testing"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/flashbots/go-boost-utils/bls"
	"github.com/stretchr/testify/require"
)

// Mainnet transactions:
//   - https://etherscan.io/tx/0x138a5f8ba7950521d9dec66ee760b101e0c875039e695c9fcfb34f5ef02a881b
//   - https://etherscan.io/tx/0xfb0ee9de8941c8ad50e6a3d2999cd6ef7a541ec9cb1ba5711b76fcfd1662dfa9
//   - https://etherscan.io/tx/0x45e7ee9ba1a1d0145de29a764a33bb7fc5620486b686d68ec8cb3182d137bc90
//   - https://etherscan.io/tx/0x9d48b4a021898a605b7ae49bf93ad88fa6bd7050e9448f12dde064c10f22fe9c
var testRawTxs = []string{
	"0x02f873011a8405f5e10085037fcc60e182520894f7eaaf75cb6ec4d0e2b53964ce6733f54f7d3ffc880b6139a7cbd2000080c080a095a7a3cbb7383fc3e7d217054f861b890a935adc1adf4f05e3a2f23688cf2416a00875cdc45f4395257e44d709d04990349b105c22c11034a60d7af749ffea2765",
	"0xf8708305dc6885029332e35883019a2894500b0107e172e420561565c8177c28ac0f62017f8810ffb80e6cc327008025a0e9c0b380c68f040ae7affefd11979f5ed18ae82c00e46aa3238857c372a358eca06b26e179dd2f7a7f1601755249f4cff56690c4033553658f0d73e26c36fe7815",
	"0xf86c0785028fa6ae0082520894098d880c4753d0332ca737aa592332ed2522cd22880d2f09f6558750008026a0963e58027576b3a8930d7d9b4a49253b6e1a2060e259b2102e34a451d375ce87a063f802538d3efed17962c96fcea431388483bbe3860ea9bb3ef01d4781450fbf",
	"0x02f87601836384348477359400850517683ba883019a28943678fce4028b6745eb04fa010d9c8e4b36d6288c872b0f1366ad800080c080a0b6b7aba1954160d081b2c8612e039518b9c46cd7df838b405a03f927ad196158a071d2fb6813e5b5184def6bd90fb5f29e0c52671dea433a7decb289560a58416e",
}

var testTxHashes = []string{
	"0x138a5f8ba7950521d9dec66ee760b101e0c875039e695c9fcfb34f5ef02a881b",
	"0xfb0ee9de8941c8ad50e6a3d2999cd6ef7a541ec9cb1ba5711b76fcfd1662dfa9",
	"0x45e7ee9ba1a1d0145de29a764a33bb7fc5620486b686d68ec8cb3182d137bc90",
	"0x9d48b4a021898a605b7ae49bf93ad88fa6bd7050e9448f12dde064c10f22fe9c",
}

func testTransactions(t *testing.T) []Transaction {
	t.Helper()
	txs := make([]Transaction, len(testRawTxs))
	for i, raw := range testRawTxs {
		txs[i] = Transaction(hexutil.MustDecode(raw))
	}
	return txs
}

func testHash32(t *testing.T, s string) phase0.Hash32 {
	t.Helper()
	var h phase0.Hash32
	b := hexutil.MustDecode(s)
	require.Len(t, b, 32)
	copy(h[:], b)
	return h
}

func testSecretKey(t *testing.T) (*bls.SecretKey, phase0.BLSPubKey) {
	t.Helper()
	skBytes, err := hex.DecodeString("51815cb2c5489f8d7dc4f9889b9771334a80ccc6a82ce9c2a1ef66dc270c9708")
	require.NoError(t, err)
	sk, err := bls.SecretKeyFromBytes(skBytes)
	require.NoError(t, err)
	pk, err := bls.PublicKeyFromSecretKey(sk)
	require.NoError(t, err)

	var pubkey phase0.BLSPubKey
	copy(pubkey[:], bls.PublicKeyToBytes(pk))
	return sk, pubkey
}
