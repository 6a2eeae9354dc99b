package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"

	"github.com/chainbound/bolt-relay/common"
	"github.com/sirupsen/logrus"
)

// MaxRequestBodySize is the largest body accepted by the constraints API.
const MaxRequestBodySize = 1024 * 1024

const contentTypeSSZ = "application/octet-stream"

var ErrBodyTooLarge = fmt.Errorf("request body exceeds %d bytes", MaxRequestBodySize)

type sszUnmarshaler interface {
	UnmarshalSSZ(buf []byte) error
}

// isSSZ reports whether the content type announces an SSZ body.
func isSSZ(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == contentTypeSSZ
}

// decodePayload decodes body into a new T. SSZ bodies that fail to decode are
// retried as JSON, in which case trace.DecodeFallback is set.
func decodePayload[T any, PT interface {
	*T
	sszUnmarshaler
}](log *logrus.Entry, body []byte, contentType string, trace *common.ConstraintSubmissionTrace) (PT, error) {
	if len(body) > MaxRequestBodySize {
		return nil, ErrBodyTooLarge
	}

	if isSSZ(contentType) {
		payload := PT(new(T))
		err := payload.UnmarshalSSZ(body)
		if err == nil {
			return payload, nil
		}
		log.WithError(err).Warn("could not decode payload - SSZ, falling back to JSON")
		trace.DecodeFallback = true
	}

	payload := PT(new(T))
	if err := json.Unmarshal(body, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

var errEmptyBody = errors.New("empty body")

// decodeJSON decodes a body that is only accepted as JSON.
func decodeJSON(body []byte, dst any) error {
	if len(body) == 0 {
		return errEmptyBody
	}
	if len(body) > MaxRequestBodySize {
		return ErrBodyTooLarge
	}
	return json.Unmarshal(body, dst)
}
