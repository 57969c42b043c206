package store

import (
	"time"
)

// Repository is the typed view of one entity holding models of type T.
type Repository[T any] struct {
	store  *Store
	entity string
	keyOf  func(T) string
}

// NewRepository binds T to entity. keyOf returns the key models are matched
// on; an empty key counts as no key. A nil keyOf matches on the "id" field.
func NewRepository[T any](s *Store, entity string, keyOf func(T) string) *Repository[T] {
	return &Repository[T]{
		store:  s,
		entity: entity,
		keyOf:  keyOf,
	}
}

func (r *Repository[T]) Entity() string {
	return r.entity
}

func (r *Repository[T]) Store() *Store {
	return r.store
}

func (r *Repository[T]) key() KeyExtractor {
	if r.keyOf == nil {
		return FieldKey(DefaultKeyField)
	}
	return func(model any) (string, bool) {
		m, ok := model.(T)
		if !ok {
			return "", false
		}
		k := r.keyOf(m)
		return k, k != ""
	}
}

// Get returns the model held by the unique record of the entity.
func (r *Repository[T]) Get() (T, bool, error) {
	rec, err := r.store.GetUnique(r.entity)
	if err != nil || rec == nil {
		var zero T
		return zero, false, err
	}
	m, err := As[T](r.store.codec, rec)
	return m, err == nil, err
}

func (r *Repository[T]) Save(model T) error {
	return r.store.Save(model, r.entity)
}

// SaveUnique makes model the only record of the entity.
func (r *Repository[T]) SaveUnique(model T) error {
	return r.store.SaveUnique(model, r.entity)
}

func (r *Repository[T]) SaveAll(models []T) error {
	return r.store.SaveMany(toAny(models), r.entity)
}

// Objects decodes every record of the entity.
func (r *Repository[T]) Objects() ([]T, error) {
	return GetAllAs[T](r.store, r.entity)
}

// Find returns the stored model with the same key as model.
func (r *Repository[T]) Find(model T) (T, bool, error) {
	rec, err := r.store.GetOneBy(model, r.entity, r.key())
	if err != nil || rec == nil {
		var zero T
		return zero, false, err
	}
	m, err := As[T](r.store.codec, rec)
	return m, err == nil, err
}

func (r *Repository[T]) Update(model T) error {
	return r.store.UpdateBy(model, r.entity, r.key())
}

func (r *Repository[T]) Delete(model T) error {
	return r.store.DeleteBy(model, r.entity, r.key())
}

func (r *Repository[T]) DeleteAll(models []T) error {
	return r.store.DeleteManyBy(toAny(models), r.entity, r.key())
}

// Expired reports whether the record for key is older than ttl. An empty key
// checks the unique record of the entity. A missing record is expired.
func (r *Repository[T]) Expired(ttl time.Duration, key string) (bool, error) {
	rec, err := r.record(key)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return true, nil
	}
	return !rec.Time().Add(ttl).After(r.store.now()), nil
}

func (r *Repository[T]) record(key string) (*Record, error) {
	if key == "" {
		return r.store.GetUnique(r.entity)
	}

	records, err := r.store.GetResults(r.entity)
	if err != nil {
		return nil, err
	}

	extract := r.key()
	for i := range records {
		m, err := As[T](r.store.codec, &records[i])
		if err != nil {
			return nil, err
		}
		if k, ok := extract(m); ok && k == key {
			return &records[i], nil
		}
	}
	return nil, nil
}

func toAny[T any](models []T) []any {
	out := make([]any, len(models))
	for i, m := range models {
		out[i] = m
	}
	return out
}
