package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a channels x rows x cols array stored channel by channel.
type Tensor struct {
	Channels int
	Rows     int
	Cols     int
	Data     []float64
}

// NewTensor allocates a zeroed tensor.
func NewTensor(channels, rows, cols int) *Tensor {
	return &Tensor{
		Channels: channels,
		Rows:     rows,
		Cols:     cols,
		Data:     make([]float64, channels*rows*cols),
	}
}

func (t *Tensor) plane() int { return t.Rows * t.Cols }

// At returns element (c, i, j).
func (t *Tensor) At(c, i, j int) float64 {
	return t.Data[c*t.plane()+i*t.Cols+j]
}

// Set assigns element (c, i, j).
func (t *Tensor) Set(c, i, j int, v float64) {
	t.Data[c*t.plane()+i*t.Cols+j] = v
}

// ChannelData returns the backing slice of channel c.
func (t *Tensor) ChannelData(c int) []float64 {
	p := t.plane()
	return t.Data[c*p : (c+1)*p]
}

// Channel returns channel c as a matrix sharing the tensor's storage.
func (t *Tensor) Channel(c int) *mat.Dense {
	return mat.NewDense(t.Rows, t.Cols, t.ChannelData(c))
}

// Stack copies equally sized matrices into the channels of a new tensor.
func Stack(ms ...*mat.Dense) (*Tensor, error) {
	if len(ms) == 0 {
		return nil, fmt.Errorf("%w: nothing to stack", ErrShape)
	}

	rows, cols := ms[0].Dims()
	t := NewTensor(len(ms), rows, cols)
	for c, m := range ms {
		if r, k := m.Dims(); r != rows || k != cols {
			return nil, fmt.Errorf("%w: channel %d is %dx%d, want %dx%d", ErrShape, c, r, k, rows, cols)
		}
		t.Channel(c).Copy(m)
	}

	return t, nil
}

// Concat joins tensors along the channel axis, in argument order.
func Concat(ts ...*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrShape)
	}

	rows, cols := ts[0].Rows, ts[0].Cols
	channels := 0
	for i, t := range ts {
		if t.Rows != rows || t.Cols != cols {
			return nil, fmt.Errorf("%w: tensor %d is %dx%d, want %dx%d", ErrShape, i, t.Rows, t.Cols, rows, cols)
		}
		channels += t.Channels
	}

	out := &Tensor{Channels: channels, Rows: rows, Cols: cols, Data: make([]float64, 0, channels*rows*cols)}
	for _, t := range ts {
		out.Data = append(out.Data, t.Data...)
	}

	return out, nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := *t
	c.Data = append([]float64(nil), t.Data...)
	return &c
}
