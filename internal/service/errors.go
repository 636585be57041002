package service

import "errors"

var (
	// ErrInvalidInput marks malformed destinations or short codes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCodeSpaceExhausted is returned when the allocator cannot find
	// a free code within its attempt budget. Persistent collisions at
	// sane alphabet/length sizes mean the code space is nearly full
	// and should surface rather than spin.
	ErrCodeSpaceExhausted = errors.New("failed to allocate unique code")
)
