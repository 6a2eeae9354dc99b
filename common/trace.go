package common

import (
	"errors"
	"time"
)

var ErrClockBeforeEpoch = errors.New("system clock is before the unix epoch")

// ConstraintSubmissionTrace holds the unix nanosecond timestamps of each stage of a
// submit, delegate or revoke request.
type ConstraintSubmissionTrace struct {
	Receive          uint64 `json:"receive"`
	Decode           uint64 `json:"decode"`
	VerifySignature  uint64 `json:"verify_signature"`
	AuctioneerUpdate uint64 `json:"auctioneer_update"`
	RequestFinish    uint64 `json:"request_finish"`

	// DecodeFallback is set when an SSZ body had to be decoded as JSON.
	DecodeFallback bool `json:"decode_fallback"`
}

func (t *ConstraintSubmissionTrace) String() string {
	return JSONStringify(t)
}

// NanosTimestamp converts t to unix nanoseconds.
func NanosTimestamp(t time.Time) (uint64, error) {
	nanos := t.UnixNano()
	if nanos < 0 {
		return 0, ErrClockBeforeEpoch
	}
	return uint64(nanos), nil
}

// SaturatingSub returns a - b, or 0 if b > a.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
