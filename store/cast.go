package store

import (
	"fmt"
	"log/slog"

	"github.com/guyvdb/recstore/codec"
	"github.com/guyvdb/recstore/fault"
)

// As decodes the payload of a record into a T. T may be a struct or a
// pointer to one (e.g. *model.Book).
//
// A nil record yields the zero value of T and no error, matching the nil
// returned by GetUnique and GetOne when nothing is found.
func As[T any](c codec.Codec, r *Record) (T, error) {
	var out T
	if r == nil {
		return out, nil
	}
	if r.Payload == nil {
		slog.Warn("store.As: record has no payload", "identifier", r.Identifier)
		return out, fmt.Errorf("%w: record %s has no payload", fault.ErrDecodeFailed, r.Identifier)
	}
	if err := c.Decode(r.Payload, &out); err != nil {
		return out, fmt.Errorf("store.As: record %s as %T: %w", r.Identifier, out, err)
	}
	return out, nil
}

// AllAs decodes every record, failing on the first one that cannot be
// decoded as T.
func AllAs[T any](c codec.Codec, records []Record) ([]T, error) {
	typed := make([]T, 0, len(records))
	for i := range records {
		item, err := As[T](c, &records[i])
		if err != nil {
			return nil, fmt.Errorf("store.AllAs: item at index %d: %w", i, err)
		}
		typed = append(typed, item)
	}
	return typed, nil
}

// GetAllAs reads every record of entity and decodes it as T.
func GetAllAs[T any](s *Store, entity string) ([]T, error) {
	records, err := s.GetResults(entity)
	if err != nil {
		return nil, fmt.Errorf("store.GetAllAs: failed to get records of entity '%s': %w", entity, err)
	}
	return AllAs[T](s.codec, records)
}
