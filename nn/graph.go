package nn

import (
	"fmt"

	"github.com/cwbudde/algo-pitch/logging"
)

type config struct {
	lenient bool
	logger  logging.Logger
}

// Option configures graph loading.
type Option func(*config)

// WithLenientLayers makes Parse and Load skip unknown layer types and drop
// unknown activations with a warning instead of failing.
func WithLenientLayers() Option {
	return func(c *config) { c.lenient = true }
}

// WithLogger sets the logger. Nil falls back to the global logger.
func WithLogger(l logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = logging.OrGlobal(c.logger)
	return c
}

// Graph is an immutable, ordered layer list. Forward has no side effects, so
// a Graph may be shared between goroutines.
type Graph struct {
	name   string
	layers []Layer
}

// New validates layers and the channel flow between them.
func New(name string, layers []Layer) (*Graph, error) {
	channels := -1 // unknown until the first layer that fixes it

	for i, l := range layers {
		switch l := l.(type) {
		case *Conv2D:
			if err := l.validate(); err != nil {
				return nil, fmt.Errorf("%s: layer %d: %w", name, i, err)
			}
			if channels >= 0 && channels != l.In {
				return nil, fmt.Errorf("%w: %s: layer %d expects %d channels, previous layer yields %d", ErrShape, name, i, l.In, channels)
			}
			channels = l.Out
		case *BatchNorm:
			if err := l.validate(); err != nil {
				return nil, fmt.Errorf("%s: layer %d: %w", name, i, err)
			}
			if channels >= 0 && channels != l.Channels() {
				return nil, fmt.Errorf("%w: %s: layer %d normalizes %d channels, previous layer yields %d", ErrShape, name, i, l.Channels(), channels)
			}
			channels = l.Channels()
		case Activation:
		default:
			return nil, fmt.Errorf("%w: %s: layer %d is %T", ErrUnknownLayer, name, i, l)
		}
	}

	return &Graph{name: name, layers: append([]Layer(nil), layers...)}, nil
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Len returns the number of layers.
func (g *Graph) Len() int { return len(g.layers) }

// Layers returns a copy of the layer list.
func (g *Graph) Layers() []Layer { return append([]Layer(nil), g.layers...) }

// Forward applies every layer in order. The input is not modified.
func (g *Graph) Forward(in *Tensor) (*Tensor, error) {
	x := in
	for i, l := range g.layers {
		var err error
		switch l := l.(type) {
		case *Conv2D:
			x, err = l.forward(x)
		case *BatchNorm:
			x, err = l.forward(x)
		case Activation:
			x = x.Clone()
			l.apply(x.Data)
		default:
			err = fmt.Errorf("%w: %T", ErrUnknownLayer, l)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: layer %d (%s): %w", g.name, i, l.Kind(), err)
		}
	}

	if x == in {
		x = in.Clone()
	}

	return x, nil
}
