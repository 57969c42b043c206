package fault

import (
	"errors"
	"fmt"
)

// ErrSchema is matched by every missing-field error, so callers can test for
// any schema failure with a single errors.Is.
var ErrSchema = errors.New("schema error")

// Required record fields. Validation reports the first one missing.
var (
	ErrMissingIdentifierField = fmt.Errorf("%w: identifier field not present", ErrSchema)
	ErrMissingPayloadField    = fmt.Errorf("%w: payload field not present", ErrSchema)
	ErrMissingTimestampField  = fmt.Errorf("%w: timestamp field not present", ErrSchema)
)
