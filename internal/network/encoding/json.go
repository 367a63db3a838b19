// Package encoding holds the json helpers shared by the api clients.
package encoding

import (
	"encoding/json"
	"errors"
	"io"
)

// MaxBodySize caps how much of a response body is decoded.
const MaxBodySize = 8 << 20

var (
	ErrDecodeJSON = errors.New("failed to decode JSON")
	ErrBodyTooBig = errors.New("response body too large")
)

// UnmarshalJSON decodes a single json value from the reader, reading at most MaxBodySize bytes.
func UnmarshalJSON[T any](reader io.Reader) (T, error) {
	var value T

	limited := &io.LimitedReader{R: reader, N: MaxBodySize + 1}
	if err := json.NewDecoder(limited).Decode(&value); err != nil {
		if limited.N <= 0 {
			return value, errors.Join(err, ErrBodyTooBig, ErrDecodeJSON)
		}

		return value, errors.Join(err, ErrDecodeJSON)
	}

	return value, nil
}
