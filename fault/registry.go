package fault

import "errors"

var (
	ErrTypeNotFound     = errors.New("type not found")
	ErrInstanceCreation = errors.New("instance creation failed")
)
