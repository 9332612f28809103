package models

import "errors"

var (
	ErrMissingName   = errors.New("product name not found")
	ErrMissingURL    = errors.New("product url is empty")
	ErrNegativePrice = errors.New("product price is negative")
)
