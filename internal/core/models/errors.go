package models

import "errors"

var (
	ErrInvalidID  = errors.New("entity id must be non-zero")
	ErrNonFinite  = errors.New("vector component is not finite")
	ErrZeroNormal = errors.New("obstacle normal must be non-zero")
)
