package util

import "errors"

// Sentinel errors returned by record stores.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)
