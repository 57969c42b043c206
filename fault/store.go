package fault

import (
	"errors"
	"fmt"
)

// ErrStorage wraps every failure reported by the storage engine.
var ErrStorage = errors.New("storage error")

var (
	ErrEntityNotFound      = fmt.Errorf("%w: entity not found", ErrStorage)
	ErrAttributeNotFound   = fmt.Errorf("%w: attribute not found", ErrStorage)
	ErrValueMismatch       = fmt.Errorf("%w: value does not match attribute type", ErrStorage)
	ErrBucketCreateFailed  = fmt.Errorf("%w: bucket create failed", ErrStorage)
	ErrInvalidHandleFormat = fmt.Errorf("%w: invalid handle format", ErrStorage)
	ErrEngineClosed        = fmt.Errorf("%w: engine closed", ErrStorage)
	ErrReadOnly            = fmt.Errorf("%w: engine is read-only", ErrStorage)
)

var (
	ErrCannotReadResults = errors.New("cannot read results")
	ErrEncodeFailed      = errors.New("encode failed")
	ErrDecodeFailed      = errors.New("decode failed")
)

// Storage wraps err as an ErrStorage unless it already is one.
func Storage(err error) error {
	if err == nil || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
