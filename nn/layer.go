package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Layer is one step of a Graph. The set of implementations is closed.
type Layer interface {
	// Kind is the layer's type tag in weight documents.
	Kind() string

	layer()
}

// Padding selects the spatial padding rule of a convolution.
type Padding int

const (
	// PaddingValid uses no padding.
	PaddingValid Padding = iota
	// PaddingSame pads so that the output has ceil(in/stride) positions.
	PaddingSame
)

func (p Padding) String() string {
	if p == PaddingSame {
		return "same"
	}
	return "valid"
}

func parsePadding(s string) (Padding, error) {
	switch s {
	case "same":
		return PaddingSame, nil
	case "valid", "":
		return PaddingValid, nil
	default:
		return 0, fmt.Errorf("%w: padding %q", ErrShape, s)
	}
}

// Activation is an element-wise nonlinearity. It is used both fused into a
// Conv2D and as a standalone layer.
type Activation int

const (
	Linear Activation = iota
	ReLU
	Sigmoid
)

func (a Activation) Kind() string { return a.String() }
func (Activation) layer()         {}

func (a Activation) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Sigmoid:
		return "sigmoid"
	default:
		return "linear"
	}
}

// ParseActivation maps an activation name to its Activation.
func ParseActivation(name string) (Activation, error) {
	switch name {
	case "", "linear":
		return Linear, nil
	case "relu":
		return ReLU, nil
	case "sigmoid":
		return Sigmoid, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownActivation, name)
	}
}

func (a Activation) apply(x []float64) {
	switch a {
	case ReLU:
		for i, v := range x {
			if v < 0 {
				x[i] = 0
			}
		}
	case Sigmoid:
		for i, v := range x {
			x[i] = 1 / (1 + math.Exp(-v))
		}
	}
}

// BatchNorm applies a per-channel affine normalization
// (x - mean) * gamma / sqrt(variance + epsilon) + beta.
type BatchNorm struct {
	Gamma    []float64
	Beta     []float64
	Mean     []float64
	Variance []float64
	Epsilon  float64
}

func (*BatchNorm) Kind() string { return "batchnorm" }
func (*BatchNorm) layer()       {}

// Channels returns the channel count the layer expects.
func (b *BatchNorm) Channels() int { return len(b.Gamma) }

func (b *BatchNorm) validate() error {
	n := len(b.Gamma)
	if n == 0 || len(b.Beta) != n || len(b.Mean) != n || len(b.Variance) != n {
		return fmt.Errorf("%w: batchnorm parameter lengths %d/%d/%d/%d",
			ErrShape, len(b.Gamma), len(b.Beta), len(b.Mean), len(b.Variance))
	}
	return nil
}

func (b *BatchNorm) forward(in *Tensor) (*Tensor, error) {
	if in.Channels != b.Channels() {
		return nil, fmt.Errorf("%w: batchnorm over %d channels, input has %d", ErrShape, b.Channels(), in.Channels)
	}

	out := in.Clone()
	for c := range out.Channels {
		scale := b.Gamma[c] / math.Sqrt(b.Variance[c]+b.Epsilon)
		data := out.ChannelData(c)
		floats.AddConst(-b.Mean[c], data)
		floats.Scale(scale, data)
		floats.AddConst(b.Beta[c], data)
	}

	return out, nil
}
