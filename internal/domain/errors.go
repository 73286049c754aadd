package domain

import "errors"

var (
	ErrValidation         = errors.New("validation error")
	ErrUnsupportedChannel = errors.New("unsupported channel")
)
