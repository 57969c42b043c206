package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/guyvdb/recstore/fault"
)

// Handle references one stored row of an entity.
type Handle struct {
	Entity string `json:"entity"`
	Key    uint64 `json:"key"`
}

func NewHandle(entity string, key uint64) Handle {
	return Handle{
		Entity: entity,
		Key:    key,
	}
}

// HandleFromString parses the "<entity>-<hexkey>" form produced by String.
// Entity names may themselves contain dashes; the key is after the last one.
func HandleFromString(s string) (Handle, error) {
	i := strings.LastIndex(s, "-")
	if i <= 0 || i == len(s)-1 {
		return Handle{}, fmt.Errorf("%w: expected <entity>-<key>, got '%s'", fault.ErrInvalidHandleFormat, s)
	}

	keyStr := s[i+1:]
	key, err := strconv.ParseUint(keyStr, 16, 64)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: key '%s': %w", fault.ErrInvalidHandleFormat, keyStr, err)
	}

	return NewHandle(s[:i], key), nil
}

func (h Handle) String() string {
	return fmt.Sprintf("%s-%x", h.Entity, h.Key)
}

func (h Handle) IsZero() bool {
	return h.Entity == "" && h.Key == 0
}
