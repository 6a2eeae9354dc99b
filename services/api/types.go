package api

import (
	builderSpec "github.com/attestantio/go-builder-client/spec"
	"github.com/chainbound/bolt-relay/common"
)

var NilResponse = struct{}{}

type HTTPErrorResp struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type HTTPMessageResp struct {
	Message string `json:"message"`
}

// BidWithInclusionProofs is a builder bid with the proofs that the constrained
// transactions of its slot are in the block.
type BidWithInclusionProofs struct {
	Bid    *builderSpec.VersionedSignedBuilderBid `json:"bid"`
	Proofs *common.InclusionProofs                `json:"proofs"`
}

func (b *BidWithInclusionProofs) String() string {
	return common.JSONStringify(b)
}
