// Package nn is a small forward-only runner for the convolutional
// sub-models used in transcription.
//
// A [Graph] is an ordered list of layers from a closed set: [*Conv2D],
// [*BatchNorm] and [Activation]. Graphs are built in code with [New] or read
// from a JSON weight document with [Load] / [Parse]. Loading is strict:
// an unknown layer type or activation name fails with [ErrUnknownLayer] or
// [ErrUnknownActivation]. [WithLenientLayers] restores the older behavior of
// logging and skipping such entries.
//
// Tensors are channel-major; each channel is a rows x cols plane that can be
// viewed as a gonum matrix with [Tensor.Channel].
package nn
