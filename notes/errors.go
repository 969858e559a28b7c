package notes

import "errors"

var (
	// ErrShape reports posteriorgrams that do not line up.
	ErrShape = errors.New("notes: shape mismatch")
	// ErrOptions reports invalid decoding or export parameters.
	ErrOptions = errors.New("notes: invalid options")
)
