// Package codec turns domain models into the opaque payload bytes a record
// carries, and back.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/guyvdb/recstore/fault"

	"gopkg.in/yaml.v3"
)

type Codec interface {
	Encode(v any) ([]byte, error)
	// Decode fills v, which must be a pointer.
	Decode(data []byte, v any) error
}

var (
	_ Codec = JSON{}
	_ Codec = YAML{}
)

// JSON is the default codec.
type JSON struct{}

func (JSON) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrEncodeFailed, err)
	}
	return data, nil
}

func (JSON) Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", fault.ErrDecodeFailed, err)
	}
	return nil
}

type YAML struct{}

func (YAML) Encode(v any) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrEncodeFailed, err)
	}
	return data, nil
}

func (YAML) Decode(data []byte, v any) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", fault.ErrDecodeFailed, err)
	}
	return nil
}
