package common

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	errHexInputMissing  = errors.New("input missing")
	errHexInvalidPrefix = errors.New("invalid prefix")
	errHexInvalidSuffix = errors.New("invalid suffix")
)

// HexBytes is a byte slice that is JSON encoded as a 0x-prefixed hex string.
type HexBytes []byte

func (h HexBytes) Equal(other HexBytes) bool {
	return bytes.Equal(h, other)
}

// MarshalJSON implements json.Marshaler.
func (h HexBytes) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%#x"`, []byte(h))), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *HexBytes) UnmarshalJSON(input []byte) error {
	if len(input) == 0 {
		return errHexInputMissing
	}

	if !bytes.HasPrefix(input, []byte{'"', '0', 'x'}) {
		return errHexInvalidPrefix
	}

	if !bytes.HasSuffix(input, []byte{'"'}) {
		return errHexInvalidSuffix
	}

	var data string
	if err := json.Unmarshal(input, &data); err != nil {
		return err
	}

	res, err := hex.DecodeString(strings.TrimPrefix(data, "0x"))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}

	*h = res

	return nil
}

func (h HexBytes) String() string {
	return JSONStringify(h)
}
