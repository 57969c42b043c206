package store

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// DefaultKeyField is the field used for lookups when none is given.
const DefaultKeyField = "id"

// KeyExtractor maps a model to the key it is matched on. The bool is false
// when the model has no key; a model without a key never matches.
type KeyExtractor func(model any) (string, bool)

// Fielder is implemented by models that expose their fields by name rather
// than as struct fields.
type Fielder interface {
	Field(name string) (any, bool)
}

// FieldKey returns a KeyExtractor reading the named field with ExtractField.
func FieldKey(name string) KeyExtractor {
	if name == "" {
		name = DefaultKeyField
	}
	return func(model any) (string, bool) {
		return ExtractField(model, name)
	}
}

// ExtractField uses reflection to find the named field of a model and return
// its value as a string.
//
// Pointers are followed. For structs, exported fields (promoted ones
// included) are visited in declaration order and the first whose json name,
// Go name, or case-folded Go name equals name is used. Maps with string keys
// are indexed directly and Fielder implementations are asked. Nil values are
// reported as absent.
func ExtractField(model any, name string) (string, bool) {
	if f, ok := model.(Fielder); ok {
		value, found := f.Field(name)
		if !found {
			return "", false
		}
		return stringify(reflect.ValueOf(value))
	}

	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		field, found := structField(v, name)
		if !found {
			slog.Debug("ExtractField() - field not found", "type", v.Type().String(), "field", name)
			return "", false
		}
		return stringify(field)
	case reflect.Map:
		keyType := v.Type().Key()
		if keyType.Kind() != reflect.String {
			return "", false
		}
		value := v.MapIndex(reflect.ValueOf(name).Convert(keyType))
		if !value.IsValid() {
			return "", false
		}
		return stringify(value)
	case reflect.Invalid:
		return "", false
	}

	slog.Debug("ExtractField() - model has no fields", "kind", v.Kind().String(), "field", name)
	return "", false
}

func structField(v reflect.Value, name string) (reflect.Value, bool) {
	for _, sf := range reflect.VisibleFields(v.Type()) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		if jsonName(sf) != name && sf.Name != name && !strings.EqualFold(sf.Name, name) {
			continue
		}
		field, err := v.FieldByIndexErr(sf.Index)
		if err != nil {
			// promoted through a nil embedded pointer
			continue
		}
		return field, true
	}
	return reflect.Value{}, false
}

func jsonName(sf reflect.StructField) string {
	tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if tag == "-" {
		return ""
	}
	return tag
}

func stringify(v reflect.Value) (string, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	if !v.IsValid() || !v.CanInterface() {
		return "", false
	}

	// numbers print the same whether they come from a Go int or from a
	// float64 decoded out of JSON
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return formatFloat(v.Float(), v.Type().Bits()), true
	}
	return fmt.Sprint(v.Interface()), true
}

func formatFloat(f float64, bits int) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}
