package engine

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/guyvdb/recstore/fault"
)

// Stored values carry a one byte tag holding their AttributeType so that a
// row written under one description and read under another is detected.

func encodeValue(attrType AttributeType, value any) ([]byte, error) {
	var body []byte

	switch attrType {
	case StringAttribute:
		s, ok := value.(string)
		if !ok {
			return nil, mismatch(attrType, value)
		}
		body = []byte(s)
	case BinaryAttribute:
		b, ok := value.([]byte)
		if !ok {
			return nil, mismatch(attrType, value)
		}
		body = b
	case DoubleAttribute:
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		default:
			return nil, mismatch(attrType, value)
		}
		bits := math.Float64bits(f)
		// Flip so that the byte order matches numeric order.
		if bits&(1<<63) == 0 {
			bits |= 1 << 63
		} else {
			bits = ^bits
		}
		body = binary.BigEndian.AppendUint64(nil, bits)
	case Int64Attribute:
		var i int64
		switch v := value.(type) {
		case int64:
			i = v
		case int:
			i = int64(v)
		case int32:
			i = int64(v)
		default:
			return nil, mismatch(attrType, value)
		}
		body = binary.BigEndian.AppendUint64(nil, uint64(i)^(1<<63))
	case BoolAttribute:
		b, ok := value.(bool)
		if !ok {
			return nil, mismatch(attrType, value)
		}
		if b {
			body = []byte{1}
		} else {
			body = []byte{0}
		}
	case DateTimeAttribute:
		t, ok := value.(time.Time)
		if !ok {
			return nil, mismatch(attrType, value)
		}
		body = t.UTC().AppendFormat(make([]byte, 0, 35), time.RFC3339Nano)
	default:
		return nil, fmt.Errorf("%w: unsupported attribute type %d", fault.ErrValueMismatch, attrType)
	}

	data := make([]byte, 0, len(body)+1)
	data = append(data, byte(attrType))
	return append(data, body...), nil
}

// decodeValue copies out of data; bbolt memory is only valid inside the
// transaction.
func decodeValue(attrType AttributeType, data []byte) (any, error) {
	if len(data) == 0 || AttributeType(data[0]) != attrType {
		return nil, fmt.Errorf("%w: stored value is not %s", fault.ErrValueMismatch, attrType)
	}
	body := data[1:]

	switch attrType {
	case StringAttribute:
		return string(body), nil
	case BinaryAttribute:
		b := make([]byte, len(body))
		copy(b, body)
		return b, nil
	case DoubleAttribute:
		if len(body) != 8 {
			return nil, fmt.Errorf("%w: double needs 8 bytes, got %d", fault.ErrValueMismatch, len(body))
		}
		bits := binary.BigEndian.Uint64(body)
		if bits&(1<<63) != 0 {
			bits &^= 1 << 63
		} else {
			bits = ^bits
		}
		return math.Float64frombits(bits), nil
	case Int64Attribute:
		if len(body) != 8 {
			return nil, fmt.Errorf("%w: int64 needs 8 bytes, got %d", fault.ErrValueMismatch, len(body))
		}
		return int64(binary.BigEndian.Uint64(body) ^ (1 << 63)), nil
	case BoolAttribute:
		if len(body) != 1 {
			return nil, fmt.Errorf("%w: bool needs 1 byte, got %d", fault.ErrValueMismatch, len(body))
		}
		return body[0] == 1, nil
	case DateTimeAttribute:
		t, err := time.Parse(time.RFC3339Nano, string(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fault.ErrValueMismatch, err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: unsupported attribute type %d", fault.ErrValueMismatch, attrType)
}

func mismatch(attrType AttributeType, value any) error {
	return fmt.Errorf("%w: %T cannot be stored as %s", fault.ErrValueMismatch, value, attrType)
}
