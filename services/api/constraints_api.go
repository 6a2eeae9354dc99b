package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	builderSpec "github.com/attestantio/go-builder-client/spec"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/chainbound/bolt-relay/common"
	"github.com/chainbound/bolt-relay/database"
	"github.com/chainbound/bolt-relay/datastore"
	"github.com/chainbound/bolt-relay/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	methodSubmitConstraints = "submitConstraints"
	methodDelegate          = "delegate"
	methodRevoke            = "revoke"
)

var ErrMissingStore = errors.New("auctioneer and database are required")

type ConstraintsAPIOpts struct {
	Log        *logrus.Entry
	Auctioneer datastore.Auctioneer
	DB         database.IDatabaseService

	EthNetDetails common.EthNetworkDetails

	// MaxConstraintsPerSlot caps the transactions of a single signed message.
	// Defaults to common.MaxConstraintsPerSlot.
	MaxConstraintsPerSlot int
}

// ConstraintsAPI authenticates constraint, delegation and revocation submissions
// and hands them to the stores. It also verifies inclusion proofs against the
// constraints it has stored.
type ConstraintsAPI struct {
	log        *logrus.Entry
	auctioneer datastore.Auctioneer
	db         database.IDatabaseService

	domain                phase0.Domain
	maxConstraintsPerSlot int

	now func() time.Time

	// detached delegation and revocation writes
	writes sync.WaitGroup
}

func NewConstraintsAPI(opts ConstraintsAPIOpts) (*ConstraintsAPI, error) {
	if opts.Auctioneer == nil || opts.DB == nil {
		return nil, ErrMissingStore
	}

	log := opts.Log
	if log == nil {
		log = common.NewBoltLogger("CONSTRAINTS")
	}

	maxConstraints := opts.MaxConstraintsPerSlot
	if maxConstraints <= 0 || maxConstraints > common.MaxConstraintsPerSlot {
		maxConstraints = common.MaxConstraintsPerSlot
	}

	return &ConstraintsAPI{
		log:                   log,
		auctioneer:            opts.Auctioneer,
		db:                    opts.DB,
		domain:                opts.EthNetDetails.DomainBuilder,
		maxConstraintsPerSlot: maxConstraints,
		now:                   time.Now,
	}, nil
}

// Wait blocks until every detached store write has returned.
func (api *ConstraintsAPI) Wait() {
	api.writes.Wait()
}

func (api *ConstraintsAPI) stamp(dst *uint64) error {
	ts, err := common.NanosTimestamp(api.now())
	if err != nil {
		return newAPIError(ErrInternal, err)
	}
	*dst = ts
	return nil
}

func (api *ConstraintsAPI) requestLog(method string, body []byte, contentType string) *logrus.Entry {
	return api.log.WithFields(logrus.Fields{
		"method":         method,
		"requestId":      uuid.New().String(),
		"contentLength":  len(body),
		"reqContentType": contentType,
	})
}

// finish logs the outcome of a request with the latency of each stage.
func (api *ConstraintsAPI) finish(method string, log *logrus.Entry, trace *common.ConstraintSubmissionTrace, err error) {
	if trace.DecodeFallback {
		metrics.DecodeFallbacks.Inc()
	}

	log = log.WithFields(logrus.Fields{
		"decodeFallback": trace.DecodeFallback,
		"decodeNs":       common.SaturatingSub(trace.Decode, trace.Receive),
		"verifyNs":       common.SaturatingSub(trace.VerifySignature, trace.Decode),
		"storeNs":        common.SaturatingSub(trace.AuctioneerUpdate, trace.VerifySignature),
		"totalNs":        common.SaturatingSub(trace.RequestFinish, trace.Receive),
	})

	if err != nil {
		metrics.Requests.WithLabelValues(method, "error").Inc()
		log.WithError(err).Warn("request failed")
		return
	}

	metrics.Requests.WithLabelValues(method, "success").Inc()
	metrics.ObserveStage(method, "decode", trace.Receive, trace.Decode)
	metrics.ObserveStage(method, "verify", trace.Decode, trace.VerifySignature)
	metrics.ObserveStage(method, "store", trace.VerifySignature, trace.AuctioneerUpdate)
	metrics.ObserveStage(method, "total", trace.Receive, trace.RequestFinish)
	log.WithField("trace", trace.String()).Info("request finished")
}

// SubmitConstraints decodes a list of signed constraints, verifies every
// signature and saves each message with its proof data. Nothing is saved unless
// every message is valid.
func (api *ConstraintsAPI) SubmitConstraints(ctx context.Context, body []byte, contentType string) error {
	log := api.requestLog(methodSubmitConstraints, body, contentType)
	trace := new(common.ConstraintSubmissionTrace)

	err := api.submitConstraints(ctx, log, body, contentType, trace)
	api.finish(methodSubmitConstraints, log, trace, err)
	return err
}

func (api *ConstraintsAPI) submitConstraints(ctx context.Context, log *logrus.Entry, body []byte, contentType string, trace *common.ConstraintSubmissionTrace) error {
	if err := api.stamp(&trace.Receive); err != nil {
		return err
	}

	list, err := decodePayload[common.SignedConstraintsList](log, body, contentType, trace)
	if err != nil {
		return newAPIError(ErrDecode, err)
	}
	if len(*list) == 0 {
		return newAPIError(ErrEmptyConstraints, nil)
	}
	if err := api.stamp(&trace.Decode); err != nil {
		return err
	}

	for i, signed := range *list {
		if signed == nil || signed.Message == nil {
			return newAPIError(ErrInvalidConstraints, fmt.Errorf("constraints %d have no message", i))
		}
		if n := len(signed.Message.Transactions); n > api.maxConstraintsPerSlot {
			return newAPIError(ErrInvalidConstraints, fmt.Errorf("constraints %d have %d transactions, max %d", i, n, api.maxConstraintsPerSlot))
		}
		if err := signed.VerifySignature(api.domain); err != nil {
			log.WithFields(logrus.Fields{
				"slot":   signed.Message.Slot,
				"pubkey": signed.Message.Pubkey.String(),
			}).Warn("invalid constraints signature")
			return newAPIError(ErrInvalidSignature, err)
		}
	}
	if err := api.stamp(&trace.VerifySignature); err != nil {
		return err
	}

	batches := make([]*common.ConstraintsWithProofData, len(*list))
	for i, signed := range *list {
		batch, err := common.NewConstraintsWithProofData(signed.Message)
		if err != nil {
			return newAPIError(ErrInvalidConstraints, err)
		}
		batches[i] = batch
	}

	for _, batch := range batches {
		if err := api.auctioneer.SaveConstraints(ctx, batch.Message.Slot, batch); err != nil {
			log.WithError(err).WithField("slot", batch.Message.Slot).Error("failed to save constraints")
			return newAPIError(ErrStore, err)
		}
		metrics.ConstraintsSaved.Inc()
	}
	if err := api.stamp(&trace.AuctioneerUpdate); err != nil {
		return err
	}

	log.WithField("numBatches", len(batches)).Info("constraints saved")
	return api.stamp(&trace.RequestFinish)
}

// Delegate verifies a signed delegation and stores it in the background. The
// result of the store write is only logged.
func (api *ConstraintsAPI) Delegate(ctx context.Context, body []byte, contentType string) error {
	log := api.requestLog(methodDelegate, body, contentType)
	trace := new(common.ConstraintSubmissionTrace)

	err := api.delegate(ctx, log, body, contentType, trace)
	api.finish(methodDelegate, log, trace, err)
	return err
}

func (api *ConstraintsAPI) delegate(ctx context.Context, log *logrus.Entry, body []byte, contentType string, trace *common.ConstraintSubmissionTrace) error {
	if err := api.stamp(&trace.Receive); err != nil {
		return err
	}

	delegation, err := decodePayload[common.SignedDelegation](log, body, contentType, trace)
	if err != nil {
		return newAPIError(ErrInvalidDelegation, err)
	}
	if delegation.Message == nil {
		return newAPIError(ErrInvalidDelegation, errors.New("missing message"))
	}
	if delegation.Message.Action != common.ActionDelegation {
		return newAPIError(ErrInvalidDelegation, fmt.Errorf("unexpected action %d", delegation.Message.Action))
	}
	if delegation.Message.ValidatorIndex > math.MaxInt64 {
		return newAPIError(ErrInvalidDelegation, fmt.Errorf("validator index %d out of range", delegation.Message.ValidatorIndex))
	}
	if err := api.stamp(&trace.Decode); err != nil {
		return err
	}

	if err := delegation.VerifySignature(api.domain); err != nil {
		return newAPIError(ErrInvalidSignature, err)
	}
	if err := api.stamp(&trace.VerifySignature); err != nil {
		return err
	}

	log = log.WithFields(logrus.Fields{
		"validatorPubkey": delegation.Message.ValidatorPubkey.String(),
		"delegateePubkey": delegation.Message.DelegateePubkey.String(),
	})
	api.detach(ctx, methodDelegate, log, func(ctx context.Context) error {
		return api.db.SaveValidatorDelegation(ctx, delegation)
	})
	if err := api.stamp(&trace.AuctioneerUpdate); err != nil {
		return err
	}
	return api.stamp(&trace.RequestFinish)
}

// Revoke verifies a signed revocation and stores it in the background. A
// revocation without a matching delegation is accepted.
func (api *ConstraintsAPI) Revoke(ctx context.Context, body []byte, contentType string) error {
	log := api.requestLog(methodRevoke, body, contentType)
	trace := new(common.ConstraintSubmissionTrace)

	err := api.revoke(ctx, log, body, contentType, trace)
	api.finish(methodRevoke, log, trace, err)
	return err
}

func (api *ConstraintsAPI) revoke(ctx context.Context, log *logrus.Entry, body []byte, contentType string, trace *common.ConstraintSubmissionTrace) error {
	if err := api.stamp(&trace.Receive); err != nil {
		return err
	}

	revocation, err := decodePayload[common.SignedRevocation](log, body, contentType, trace)
	if err != nil {
		return newAPIError(ErrInvalidRevocation, err)
	}
	if revocation.Message == nil {
		return newAPIError(ErrInvalidRevocation, errors.New("missing message"))
	}
	if revocation.Message.Action != common.ActionRevocation {
		return newAPIError(ErrInvalidRevocation, fmt.Errorf("unexpected action %d", revocation.Message.Action))
	}
	if revocation.Message.ValidatorIndex > math.MaxInt64 {
		return newAPIError(ErrInvalidRevocation, fmt.Errorf("validator index %d out of range", revocation.Message.ValidatorIndex))
	}
	if err := api.stamp(&trace.Decode); err != nil {
		return err
	}

	if err := revocation.VerifySignature(api.domain); err != nil {
		return newAPIError(ErrInvalidSignature, err)
	}
	if err := api.stamp(&trace.VerifySignature); err != nil {
		return err
	}

	log = log.WithFields(logrus.Fields{
		"validatorPubkey": revocation.Message.ValidatorPubkey.String(),
		"delegateePubkey": revocation.Message.DelegateePubkey.String(),
	})
	api.detach(ctx, methodRevoke, log, func(ctx context.Context) error {
		return api.db.RevokeValidatorDelegation(ctx, revocation)
	})
	if err := api.stamp(&trace.AuctioneerUpdate); err != nil {
		return err
	}
	return api.stamp(&trace.RequestFinish)
}

// detach runs write in its own goroutine. The request context's values are kept
// but its cancellation is not, so the write outlives the request.
func (api *ConstraintsAPI) detach(ctx context.Context, method string, log *logrus.Entry, write func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	api.writes.Add(1)
	go func() {
		defer api.writes.Done()
		if err := write(ctx); err != nil {
			metrics.BackgroundWriteFailures.WithLabelValues(method).Inc()
			log.WithError(err).Error("background store write failed")
			return
		}
		log.Debug("background store write done")
	}()
}

// GetConstraints returns the constraints stored for the slot.
func (api *ConstraintsAPI) GetConstraints(ctx context.Context, slot uint64) ([]*common.ConstraintsWithProofData, error) {
	constraints, err := api.auctioneer.GetConstraints(ctx, slot)
	if err != nil {
		return nil, newAPIError(ErrStore, err)
	}
	return constraints, nil
}

// VerifyInclusionProofs checks proofs against every constraint stored for the
// slot and the transactions root of a block.
func (api *ConstraintsAPI) VerifyInclusionProofs(ctx context.Context, slot uint64, transactionsRoot phase0.Root, proofs *common.InclusionProofs) error {
	if proofs == nil {
		return newAPIError(ErrProof, errors.New("missing proofs"))
	}

	constraints, err := api.auctioneer.GetConstraints(ctx, slot)
	if err != nil {
		return newAPIError(ErrStore, err)
	}

	log := api.log.WithFields(logrus.Fields{
		"method":           "verifyInclusionProofs",
		"slot":             slot,
		"transactionsRoot": transactionsRoot.String(),
		"numProofs":        proofs.TotalLeaves(),
		"numConstraints":   len(constraints),
	})

	start := time.Now()
	err = common.VerifyMultiproofs(constraints, proofs, transactionsRoot)
	metrics.ProofVerifications.WithLabelValues(proofResult(err)).Inc()
	if err != nil {
		log.WithError(err).Warn("inclusion proofs verification failed")
		return newAPIError(ErrProof, err)
	}

	log.WithField("elapsed", time.Since(start)).Info("inclusion proofs verified")
	return nil
}

// VerifyBidInclusionProofs checks proofs against the transactions root of a
// builder bid for the slot.
func (api *ConstraintsAPI) VerifyBidInclusionProofs(ctx context.Context, slot uint64, bid *builderSpec.VersionedSignedBuilderBid, proofs *common.InclusionProofs) error {
	if bid == nil {
		return newAPIError(ErrProof, errors.New("missing bid"))
	}
	transactionsRoot, err := bid.TransactionsRoot()
	if err != nil {
		return newAPIError(ErrProof, fmt.Errorf("failed getting tx root from bid: %w", err))
	}
	return api.VerifyInclusionProofs(ctx, slot, transactionsRoot, proofs)
}

func proofResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, common.ErrLeavesMismatch):
		return "leaves_mismatch"
	case errors.Is(err, common.ErrMissingHash):
		return "missing_hash"
	default:
		return "verification_failed"
	}
}
