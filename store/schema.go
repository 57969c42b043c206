package store

import (
	"fmt"

	"github.com/guyvdb/recstore/engine"
	"github.com/guyvdb/recstore/fault"
)

// ValidateEntity confirms that an entity can hold records. The identifier is
// checked first, then the payload, then the timestamp; the first missing
// field is reported.
func ValidateEntity(desc *engine.EntityDescription) error {
	if desc == nil {
		return fault.ErrMissingIdentifierField
	}

	attrs := desc.AttributesByName()
	if _, found := attrs[engine.IdentifierAttribute]; !found {
		return fmt.Errorf("%w: entity '%s'", fault.ErrMissingIdentifierField, desc.Name)
	}
	if _, found := attrs[engine.PayloadAttribute]; !found {
		return fmt.Errorf("%w: entity '%s'", fault.ErrMissingPayloadField, desc.Name)
	}
	if _, found := attrs[engine.CreatedAtAttribute]; !found {
		return fmt.Errorf("%w: entity '%s'", fault.ErrMissingTimestampField, desc.Name)
	}
	return nil
}

func validate(c engine.Context, entity string) error {
	desc, err := c.Entity(entity)
	if err != nil {
		return err
	}
	return ValidateEntity(desc)
}
