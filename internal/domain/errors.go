package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrBeerNotFound     = errors.New("beer not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInsufficientData = errors.New("insufficient data")
	ErrStoreUnavailable = errors.New("ratings store unavailable")

	// ErrNoModel means nothing has been trained yet for a registry slot.
	ErrNoModel      = errors.New("no model trained yet")
	ErrCorruptModel = errors.New("stored model is corrupt")
)
