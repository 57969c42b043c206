package engine

// Engine is the embedded transactional storage a record store runs against.
// Update and View each run fn inside one unit of work: Update commits when fn
// returns nil and discards every effect otherwise; View never writes.
type Engine interface {
	Update(fn func(Context) error) error
	View(fn func(Context) error) error

	// Entities lists every entity type known to the engine.
	Entities() []string
	Entity(name string) (*EntityDescription, error)

	// BulkDelete removes every row of an entity in its own unit of work.
	BulkDelete(entity string) error

	Close() error
}

// Context is the working context of a single unit of work. It must not be
// used after the function it was passed to has returned.
type Context interface {
	Entity(name string) (*EntityDescription, error)
	Create(entity string) (Handle, error)
	// Fetch returns the handles of every row of entity in creation order.
	Fetch(entity string) ([]Handle, error)
	Delete(h Handle) error
	SetValue(h Handle, attribute string, value any) error
	// Value returns false when the attribute has never been set on the row.
	Value(h Handle, attribute string) (any, bool, error)
}
