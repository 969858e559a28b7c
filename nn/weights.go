package nn

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-pitch/logging"
)

// document is the on-disk weight format.
type document struct {
	Name   string      `json:"name"`
	Layers []layerSpec `json:"layers"`
}

type layerSpec struct {
	Type       string    `json:"type"`
	Shape      []int     `json:"shape,omitempty"`
	Weights    []float64 `json:"weights,omitempty"`
	Bias       []float64 `json:"bias,omitempty"`
	Strides    []int     `json:"strides,omitempty"`
	Padding    string    `json:"padding,omitempty"`
	Activation string    `json:"activation,omitempty"`

	Gamma    []float64 `json:"gamma,omitempty"`
	Beta     []float64 `json:"beta,omitempty"`
	Mean     []float64 `json:"mean,omitempty"`
	Variance []float64 `json:"variance,omitempty"`
	Epsilon  *float64  `json:"epsilon,omitempty"`
}

const defaultBatchNormEpsilon = 1e-3

// Load reads a weight document from path.
func Load(name, path string, opts ...Option) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWeightLoad, name, err)
	}
	defer f.Close()

	return Parse(name, f, opts...)
}

// Parse decodes a weight document and builds the graph.
func Parse(name string, r io.Reader, opts ...Option) (*Graph, error) {
	cfg := newConfig(opts)
	log := cfg.logger.WithFields(logging.Fields{"model": name})

	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWeightLoad, name, err)
	}

	layers := make([]Layer, 0, len(doc.Layers))
	for i, spec := range doc.Layers {
		built, err := spec.build()
		if err == nil {
			layers = append(layers, built...)
			continue
		}

		unknown := errors.Is(err, ErrUnknownLayer) || errors.Is(err, ErrUnknownActivation)
		if !cfg.lenient || !unknown {
			return nil, fmt.Errorf("%s: layer %d: %w", name, i, err)
		}

		// Lenient mode: a conv2d with a bad activation keeps its convolution.
		if conv, ok := spec.convolutionOnly(); ok {
			log.Warn("dropping unknown activation", logging.Fields{"layer": i, "activation": spec.Activation})
			layers = append(layers, conv)
			continue
		}
		log.Warn("skipping layer", logging.Fields{"layer": i, "type": spec.Type, "reason": err.Error()})
	}

	g, err := New(name, layers)
	if err != nil {
		return nil, err
	}

	log.Debug("model loaded", logging.Fields{"layers": g.Len()})

	return g, nil
}

func (s layerSpec) build() ([]Layer, error) {
	switch s.Type {
	case "conv2d":
		conv, err := s.conv()
		if err != nil {
			return nil, err
		}
		act, err := ParseActivation(s.Activation)
		if err != nil {
			return nil, err
		}
		conv.Activation = act
		return []Layer{conv}, nil
	case "batchnorm", "batch_normalization":
		eps := defaultBatchNormEpsilon
		if s.Epsilon != nil {
			eps = *s.Epsilon
		}
		return []Layer{&BatchNorm{Gamma: s.Gamma, Beta: s.Beta, Mean: s.Mean, Variance: s.Variance, Epsilon: eps}}, nil
	case "relu", "sigmoid", "linear":
		act, err := ParseActivation(s.Type)
		if err != nil {
			return nil, err
		}
		return []Layer{act}, nil
	case "activation":
		act, err := ParseActivation(s.Activation)
		if err != nil {
			return nil, err
		}
		return []Layer{act}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, s.Type)
	}
}

func (s layerSpec) conv() (*Conv2D, error) {
	if len(s.Shape) != 4 {
		return nil, fmt.Errorf("%w: conv2d shape %v, want [kh kw in out]", ErrShape, s.Shape)
	}

	padding, err := parsePadding(s.Padding)
	if err != nil {
		return nil, err
	}

	strideH, strideW := 1, 1
	switch len(s.Strides) {
	case 0:
	case 1:
		strideH, strideW = s.Strides[0], s.Strides[0]
	case 2:
		strideH, strideW = s.Strides[0], s.Strides[1]
	default:
		return nil, fmt.Errorf("%w: conv2d strides %v", ErrShape, s.Strides)
	}

	return &Conv2D{
		KernelH: s.Shape[0],
		KernelW: s.Shape[1],
		In:      s.Shape[2],
		Out:     s.Shape[3],
		Weights: s.Weights,
		Bias:    s.Bias,
		StrideH: strideH,
		StrideW: strideW,
		Padding: padding,
	}, nil
}

// convolutionOnly returns the convolution of a conv2d entry without its
// activation, when that is what failed.
func (s layerSpec) convolutionOnly() (*Conv2D, bool) {
	if s.Type != "conv2d" {
		return nil, false
	}
	if _, err := ParseActivation(s.Activation); err == nil {
		return nil, false
	}
	conv, err := s.conv()
	if err != nil {
		return nil, false
	}
	return conv, true
}

// Marshal encodes g as a weight document readable by Parse.
func Marshal(w io.Writer, g *Graph) error {
	doc := document{Name: g.name, Layers: make([]layerSpec, 0, len(g.layers))}

	for _, l := range g.layers {
		switch l := l.(type) {
		case *Conv2D:
			doc.Layers = append(doc.Layers, layerSpec{
				Type:       "conv2d",
				Shape:      []int{l.KernelH, l.KernelW, l.In, l.Out},
				Weights:    l.Weights,
				Bias:       l.Bias,
				Strides:    []int{l.StrideH, l.StrideW},
				Padding:    l.Padding.String(),
				Activation: l.Activation.String(),
			})
		case *BatchNorm:
			eps := l.Epsilon
			doc.Layers = append(doc.Layers, layerSpec{
				Type: "batchnorm", Gamma: l.Gamma, Beta: l.Beta, Mean: l.Mean, Variance: l.Variance, Epsilon: &eps,
			})
		case Activation:
			doc.Layers = append(doc.Layers, layerSpec{Type: l.String()})
		}
	}

	enc := json.NewEncoder(w)
	return enc.Encode(doc)
}
