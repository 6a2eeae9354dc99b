package common

import (
	"encoding/json"
	"testing"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	ssz "github.com/ferranbt/fastssz"
	"github.com/stretchr/testify/require"
)

func testDelegation() *SignedDelegation {
	return &SignedDelegation{
		Message: &DelegationMessage{
			Action:          ActionDelegation,
			ValidatorIndex:  1234,
			ValidatorPubkey: phase0.BLSPubKey{0x01, 0x02},
			DelegateePubkey: phase0.BLSPubKey{0x03, 0x04},
		},
		Signature: phase0.BLSSignature{0x05},
	}
}

func TestSignedDelegation_SSZRoundTrip(t *testing.T) {
	delegation := testDelegation()

	encoded, err := delegation.MarshalSSZ()
	require.NoError(t, err)
	require.Len(t, encoded, signedDelegationSize)
	require.Equal(t, ActionDelegation, encoded[0])

	decoded := new(SignedDelegation)
	require.NoError(t, decoded.UnmarshalSSZ(encoded))
	require.Equal(t, delegation, decoded)

	require.ErrorIs(t, decoded.UnmarshalSSZ(encoded[1:]), ssz.ErrSize)
}

func TestSignedRevocation_SSZRoundTrip(t *testing.T) {
	revocation := &SignedRevocation{
		Message: &RevocationMessage{
			Action:          ActionRevocation,
			ValidatorIndex:  1234,
			ValidatorPubkey: phase0.BLSPubKey{0x01},
			DelegateePubkey: phase0.BLSPubKey{0x02},
		},
		Signature: phase0.BLSSignature{0x03},
	}

	encoded, err := revocation.MarshalSSZ()
	require.NoError(t, err)
	require.Equal(t, ActionRevocation, encoded[0])

	decoded := new(SignedRevocation)
	require.NoError(t, decoded.UnmarshalSSZ(encoded))
	require.Equal(t, revocation, decoded)
}

func TestSignedDelegation_JSONRoundTrip(t *testing.T) {
	delegation := testDelegation()

	encoded, err := json.Marshal(delegation)
	require.NoError(t, err)

	decoded := new(SignedDelegation)
	require.NoError(t, json.Unmarshal(encoded, decoded))
	require.Equal(t, delegation, decoded)
}

func TestDelegationMessage_ActionChangesRoot(t *testing.T) {
	delegation := testDelegation().Message
	revocation := RevocationMessage(*delegation)
	revocation.Action = ActionRevocation

	delegationRoot, err := delegation.HashTreeRoot()
	require.NoError(t, err)
	revocationRoot, err := revocation.HashTreeRoot()
	require.NoError(t, err)
	require.NotEqual(t, delegationRoot, revocationRoot)
}
