package transcribe

import "errors"

var (
	// ErrConfig reports an inconsistent configuration.
	ErrConfig = errors.New("transcribe: invalid config")
	// ErrEmptyAudio reports a call with no samples.
	ErrEmptyAudio = errors.New("transcribe: empty audio")
	// ErrState reports a call that is not allowed in the current state.
	ErrState = errors.New("transcribe: invalid state")
	// ErrShape reports sub-model outputs that cannot be combined or trimmed.
	ErrShape = errors.New("transcribe: shape mismatch")
)
