package nn

import "errors"

var (
	// ErrWeightLoad reports an unreadable or undecodable weight document.
	ErrWeightLoad = errors.New("nn: weight load failed")
	// ErrUnknownLayer reports a layer type the runner does not implement.
	ErrUnknownLayer = errors.New("nn: unknown layer type")
	// ErrUnknownActivation reports an activation name the runner does not implement.
	ErrUnknownActivation = errors.New("nn: unknown activation")
	// ErrShape reports inconsistent weights or a tensor that does not fit a layer.
	ErrShape = errors.New("nn: shape mismatch")
)
