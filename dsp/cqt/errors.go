package cqt

import "errors"

var (
	// ErrAssetLoad reports a missing, unreadable, or malformed kernel asset.
	ErrAssetLoad = errors.New("cqt: asset load failed")
	// ErrShape reports a matrix whose dimensions disagree with the transform geometry.
	ErrShape = errors.New("cqt: shape mismatch")
	// ErrRange reports a destination row range outside the output matrix.
	ErrRange = errors.New("cqt: row range out of bounds")
	// ErrInvalidInput reports empty audio, a non-positive hop, or bad design parameters.
	ErrInvalidInput = errors.New("cqt: invalid input")
)
