package store

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"time"

	"github.com/guyvdb/recstore/codec"
	"github.com/guyvdb/recstore/engine"
	"github.com/guyvdb/recstore/fault"

	"github.com/google/uuid"
)

// Record is one persisted model: an identifier allocated by the store, the
// encoded model, and the creation time in seconds since the epoch.
type Record struct {
	Handle     engine.Handle
	Identifier string
	Payload    []byte
	CreatedAt  float64
}

func (r *Record) Time() time.Time {
	sec, frac := math.Modf(r.CreatedAt)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Store saves, queries and deletes arbitrary models as records of a caller
// chosen entity. It borrows the engine and never closes it.
type Store struct {
	engine  engine.Engine
	codec   codec.Codec
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Store)

func WithCodec(c codec.Codec) Option {
	return func(s *Store) { s.codec = c }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(e engine.Engine, opts ...Option) *Store {
	s := &Store{
		engine: e,
		codec:  codec.JSON{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Engine() engine.Engine {
	return s.engine
}

func (s *Store) Codec() codec.Codec {
	return s.codec
}

// Save stores model as a new record of entity.
func (s *Store) Save(model any, entity string) error {
	return s.observe("save", func() error {
		return s.engine.Update(func(c engine.Context) error {
			if err := validate(c, entity); err != nil {
				return err
			}
			_, err := s.insert(c, entity, model)
			return err
		})
	})
}

// SaveMany saves each model in its own unit of work. It stops at the first
// failure; models saved before it stay saved.
func (s *Store) SaveMany(models []any, entity string) error {
	for i, model := range models {
		if err := s.Save(model, entity); err != nil {
			return fmt.Errorf("save %d of %d: %w", i+1, len(models), err)
		}
	}
	return nil
}

// SaveUnique replaces every record of entity with a single record of model.
func (s *Store) SaveUnique(model any, entity string) error {
	return s.observe("save_unique", func() error {
		return s.engine.Update(func(c engine.Context) error {
			if err := validate(c, entity); err != nil {
				return err
			}

			handles, err := c.Fetch(entity)
			if err != nil {
				return err
			}
			for _, h := range handles {
				if err := c.Delete(h); err != nil {
					return err
				}
			}

			_, err = s.insert(c, entity, model)
			if err == nil {
				slog.Debug("Store.SaveUnique() - replaced records", "entity", entity, "removed", len(handles))
			}
			return err
		})
	})
}

// GetResults returns every record of entity. Rows whose stored values do not
// have the shape of a record yield a nil result rather than an error.
func (s *Store) GetResults(entity string) ([]Record, error) {
	var records []Record

	err := s.observe("get_results", func() error {
		return s.engine.View(func(c engine.Context) error {
			if err := validate(c, entity); err != nil {
				return err
			}

			handles, err := c.Fetch(entity)
			if err != nil {
				return err
			}

			records = make([]Record, 0, len(handles))
			for _, h := range handles {
				rec, err := readRecord(c, h)
				if err != nil {
					return err
				}
				records = append(records, rec)
			}
			return nil
		})
	})

	if errors.Is(err, fault.ErrValueMismatch) {
		slog.Warn("Store.GetResults() - stored rows do not match the record shape", "entity", entity, "err", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetUnique returns the first record of entity that has an identifier, or
// nil when there is none.
func (s *Store) GetUnique(entity string) (*Record, error) {
	var result *Record

	err := s.observe("get_unique", func() error {
		return s.engine.View(func(c engine.Context) error {
			if err := validate(c, entity); err != nil {
				return err
			}

			handles, err := c.Fetch(entity)
			if err != nil {
				return fmt.Errorf("%w: %w", fault.ErrCannotReadResults, err)
			}

			for _, h := range handles {
				id, found, err := c.Value(h, engine.IdentifierAttribute)
				if err != nil {
					return fmt.Errorf("%w: %w", fault.ErrCannotReadResults, err)
				}
				if !found {
					continue
				}
				identifier, ok := id.(string)
				if !ok {
					return fmt.Errorf("%w: %w", fault.ErrCannotReadResults, shapeError(h, engine.IdentifierAttribute, id))
				}
				if identifier == "" {
					continue
				}

				rec, err := readRecord(c, h)
				if err != nil {
					return fmt.Errorf("%w: %w", fault.ErrCannotReadResults, err)
				}
				result = &rec
				return nil
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetOne returns the first record of entity whose decoded model has the same
// keyField value as model, or nil.
func (s *Store) GetOne(model any, entity string, keyField string) (*Record, error) {
	return s.GetOneBy(model, entity, FieldKey(keyField))
}

func (s *Store) GetOneBy(model any, entity string, key KeyExtractor) (*Record, error) {
	var result *Record

	err := s.observe("get_one", func() error {
		return s.engine.View(func(c engine.Context) error {
			if err := validate(c, entity); err != nil {
				return err
			}
			matches, err := s.match(c, entity, model, key, true)
			if err != nil {
				return err
			}
			if len(matches) > 0 {
				result = &matches[0]
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Update deletes every record of entity whose key matches model and inserts
// a fresh record of model, in one unit of work.
func (s *Store) Update(model any, entity string, keyField string) error {
	return s.UpdateBy(model, entity, FieldKey(keyField))
}

func (s *Store) UpdateBy(model any, entity string, key KeyExtractor) error {
	return s.observe("update", func() error {
		return s.engine.Update(func(c engine.Context) error {
			if err := validate(c, entity); err != nil {
				return err
			}
			if _, err := s.deleteMatching(c, entity, model, key); err != nil {
				return err
			}
			_, err := s.insert(c, entity, model)
			return err
		})
	})
}

// Delete removes every record of entity whose key matches model. Deleting
// something that is not there is not an error.
func (s *Store) Delete(model any, entity string, keyField string) error {
	return s.DeleteBy(model, entity, FieldKey(keyField))
}

func (s *Store) DeleteBy(model any, entity string, key KeyExtractor) error {
	return s.observe("delete", func() error {
		return s.engine.Update(func(c engine.Context) error {
			if err := validate(c, entity); err != nil {
				return err
			}
			_, err := s.deleteMatching(c, entity, model, key)
			return err
		})
	})
}

// DeleteMany runs Delete once per model, each in its own unit of work.
func (s *Store) DeleteMany(models []any, entity string, keyField string) error {
	return s.DeleteManyBy(models, entity, FieldKey(keyField))
}

func (s *Store) DeleteManyBy(models []any, entity string, key KeyExtractor) error {
	for i, model := range models {
		if err := s.DeleteBy(model, entity, key); err != nil {
			return fmt.Errorf("delete %d of %d: %w", i+1, len(models), err)
		}
	}
	return nil
}

// DeleteAllData empties every entity known to the engine. Failures are
// logged and the remaining entities are still processed.
func (s *Store) DeleteAllData() {
	_ = s.observe("delete_all", func() error {
		var failed int
		for _, entity := range s.engine.Entities() {
			if err := s.engine.BulkDelete(entity); err != nil {
				failed++
				slog.Error("Store.DeleteAllData() - failed to delete entity", "entity", entity, "err", err)
				continue
			}
			slog.Debug("Store.DeleteAllData() - deleted entity", "entity", entity)
		}
		if failed > 0 {
			return fmt.Errorf("%d entities not deleted", failed)
		}
		return nil
	})
}

// Decode decodes the payload of r into v.
func (s *Store) Decode(r *Record, v any) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", fault.ErrDecodeFailed)
	}
	return s.codec.Decode(r.Payload, v)
}

func (s *Store) insert(c engine.Context, entity string, model any) (engine.Handle, error) {
	data, err := s.codec.Encode(model)
	if err != nil {
		return engine.Handle{}, err
	}

	h, err := c.Create(entity)
	if err != nil {
		return engine.Handle{}, err
	}

	identifier := uuid.NewString()
	createdAt := float64(s.now().UnixNano()) / 1e9

	if err := c.SetValue(h, engine.IdentifierAttribute, identifier); err != nil {
		return engine.Handle{}, err
	}
	if err := c.SetValue(h, engine.PayloadAttribute, data); err != nil {
		return engine.Handle{}, err
	}
	if err := c.SetValue(h, engine.CreatedAtAttribute, createdAt); err != nil {
		return engine.Handle{}, err
	}

	slog.Debug("Store.insert() - created record", "entity", entity, "handle", h.String(), "identifier", identifier)
	return h, nil
}

func (s *Store) deleteMatching(c engine.Context, entity string, model any, key KeyExtractor) (int, error) {
	matches, err := s.match(c, entity, model, key, false)
	if err != nil {
		return 0, err
	}
	for _, rec := range matches {
		if err := c.Delete(rec.Handle); err != nil {
			return 0, err
		}
	}
	slog.Debug("Store.deleteMatching() - deleted records", "entity", entity, "count", len(matches))
	return len(matches), nil
}

// match decodes every record of entity as the type of model and returns the
// ones whose key equals the key of model.
func (s *Store) match(c engine.Context, entity string, model any, key KeyExtractor, first bool) ([]Record, error) {
	target, ok := key(model)
	if !ok {
		slog.Debug("Store.match() - reference model has no key", "entity", entity, "type", fmt.Sprintf("%T", model))
		return nil, nil
	}

	handles, err := c.Fetch(entity)
	if err != nil {
		return nil, err
	}

	var matches []Record
	for _, h := range handles {
		rec, err := readRecord(c, h)
		if err != nil {
			return nil, err
		}
		if rec.Payload == nil {
			continue
		}

		decoded, err := s.decodeLike(model, rec.Payload)
		if err != nil {
			return nil, err
		}

		if current, ok := key(decoded); ok && current == target {
			matches = append(matches, rec)
			if first {
				break
			}
		}
	}
	return matches, nil
}

// decodeLike decodes payload into a new value of the dynamic type of model.
func (s *Store) decodeLike(model any, payload []byte) (any, error) {
	t := reflect.TypeOf(model)
	if t == nil {
		return nil, fmt.Errorf("%w: nil model", fault.ErrDecodeFailed)
	}

	if t.Kind() == reflect.Pointer {
		v := reflect.New(t.Elem())
		if err := s.codec.Decode(payload, v.Interface()); err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}

	v := reflect.New(t)
	if err := s.codec.Decode(payload, v.Interface()); err != nil {
		return nil, err
	}
	return v.Elem().Interface(), nil
}

func readRecord(c engine.Context, h engine.Handle) (Record, error) {
	rec := Record{Handle: h}

	id, found, err := c.Value(h, engine.IdentifierAttribute)
	if err != nil {
		return rec, err
	}
	if found {
		if rec.Identifier, found = id.(string); !found {
			return rec, shapeError(h, engine.IdentifierAttribute, id)
		}
	}

	payload, found, err := c.Value(h, engine.PayloadAttribute)
	if err != nil {
		return rec, err
	}
	if found {
		if rec.Payload, found = payload.([]byte); !found {
			return rec, shapeError(h, engine.PayloadAttribute, payload)
		}
	}

	createdAt, found, err := c.Value(h, engine.CreatedAtAttribute)
	if err != nil {
		return rec, err
	}
	if found {
		if rec.CreatedAt, found = createdAt.(float64); !found {
			return rec, shapeError(h, engine.CreatedAtAttribute, createdAt)
		}
	}

	return rec, nil
}

func shapeError(h engine.Handle, attribute string, value any) error {
	return fmt.Errorf("%w: %s.%s holds %T", fault.ErrValueMismatch, h, attribute, value)
}

func (s *Store) observe(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.observe(operation, time.Since(start), err)
	return err
}
