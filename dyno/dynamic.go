// Package dyno provides a domain model whose fields are only known at run
// time.
package dyno

// Object is a model made of named properties. The Type names what the
// object represents; it is not an entity name.
type Object struct {
	Type       string         `json:"type" yaml:"type"`
	Properties map[string]any `json:"properties" yaml:"properties"`
}

func New(typeName string) *Object {
	return &Object{
		Type:       typeName,
		Properties: make(map[string]any),
	}
}

// SetProperty sets a property and returns the object for chaining.
func (o *Object) SetProperty(name string, value any) *Object {
	if o.Properties == nil {
		o.Properties = make(map[string]any)
	}
	o.Properties[name] = value
	return o
}

func (o *Object) GetProperty(name string) any {
	return o.Properties[name]
}

// Field looks a property up by name, which lets the store match objects on
// any property.
func (o Object) Field(name string) (any, bool) {
	v, found := o.Properties[name]
	if !found || v == nil {
		return nil, false
	}
	return v, true
}
