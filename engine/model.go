package engine

import (
	"log/slog"
	"sort"
	"sync"
)

type AttributeType int

const (
	StringAttribute AttributeType = iota
	BinaryAttribute
	DoubleAttribute
	Int64Attribute
	BoolAttribute
	DateTimeAttribute
)

// String returns the string representation of AttributeType.
func (at AttributeType) String() string {
	names := [...]string{"String", "Binary", "Double", "Int64", "Bool", "DateTime"}
	if at < 0 || int(at) >= len(names) {
		return "Unknown"
	}
	return names[at]
}

// Names of the attributes every record entity carries.
const (
	IdentifierAttribute = "identifier"
	PayloadAttribute    = "payload"
	CreatedAtAttribute  = "createdAt"
)

type AttributeDescription struct {
	Name     string        `json:"name"`
	Type     AttributeType `json:"type"`
	Optional bool          `json:"optional"`
}

// EntityDescription is the storage level shape of a row.
type EntityDescription struct {
	Name       string                  `json:"name"`
	Attributes []*AttributeDescription `json:"attributes"`
}

func NewEntityDescription(name string, attributes ...*AttributeDescription) *EntityDescription {
	return &EntityDescription{
		Name:       name,
		Attributes: attributes,
	}
}

// RecordEntity describes an entity holding identifier, payload and createdAt.
func RecordEntity(name string) *EntityDescription {
	return NewEntityDescription(name,
		&AttributeDescription{Name: IdentifierAttribute, Type: StringAttribute, Optional: true},
		&AttributeDescription{Name: PayloadAttribute, Type: BinaryAttribute, Optional: true},
		&AttributeDescription{Name: CreatedAtAttribute, Type: DoubleAttribute},
	)
}

func (ed *EntityDescription) Attribute(name string) (*AttributeDescription, bool) {
	for _, attr := range ed.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return nil, false
}

func (ed *EntityDescription) AttributesByName() map[string]*AttributeDescription {
	byName := make(map[string]*AttributeDescription, len(ed.Attributes))
	for _, attr := range ed.Attributes {
		byName[attr.Name] = attr
	}
	return byName
}

func (ed *EntityDescription) clone() *EntityDescription {
	c := &EntityDescription{
		Name:       ed.Name,
		Attributes: make([]*AttributeDescription, len(ed.Attributes)),
	}
	for i, attr := range ed.Attributes {
		a := *attr
		c.Attributes[i] = &a
	}
	return c
}

// Model is the set of entity descriptions an engine knows about.
type Model struct {
	mu       sync.RWMutex
	entities map[string]*EntityDescription
}

func NewModel(entities ...*EntityDescription) *Model {
	m := &Model{entities: make(map[string]*EntityDescription)}
	for _, e := range entities {
		m.Register(e)
	}
	return m
}

// Register adds or replaces an entity description.
func (m *Model) Register(entity *EntityDescription) {
	if entity == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.Debug("Model.Register() - register entity", "entity", entity.Name, "attributes", len(entity.Attributes))
	m.entities[entity.Name] = entity.clone()
}

// registerIfAbsent is used when merging persisted descriptions; declared
// descriptions win over persisted ones.
func (m *Model) registerIfAbsent(entity *EntityDescription) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, found := m.entities[entity.Name]; found {
		return false
	}
	m.entities[entity.Name] = entity.clone()
	return true
}

func (m *Model) Entity(name string) (*EntityDescription, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, found := m.entities[name]
	if !found {
		return nil, false
	}
	return e.clone(), true
}

// Entities returns the sorted names of all known entities.
func (m *Model) Entities() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.entities))
	for name := range m.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
