package ioutil

import (
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned when a body exceeds the read limit
var ErrTooLarge = errors.New("body too large")

// ReadLimited reads all of r as long as it fits in limit bytes. A longer body is
// an error rather than a silent truncation, so callers never decode half a document.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return body, nil
}
