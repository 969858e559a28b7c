package nn

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-pitch/internal/testutil"
)

// referenceConv evaluates a Conv2D by the textbook sum.
func referenceConv(l *Conv2D, in *Tensor) *Tensor {
	outH, padH := outputGeometry(in.Rows, l.KernelH, l.StrideH, l.Padding)
	outW, padW := outputGeometry(in.Cols, l.KernelW, l.StrideW, l.Padding)
	out := NewTensor(l.Out, outH, outW)

	for oc := range l.Out {
		for oy := range outH {
			for ox := range outW {
				var acc float64
				if len(l.Bias) > 0 {
					acc = l.Bias[oc]
				}
				for ic := range l.In {
					for ky := range l.KernelH {
						for kx := range l.KernelW {
							iy, ix := oy*l.StrideH+ky-padH, ox*l.StrideW+kx-padW
							if iy >= 0 && iy < in.Rows && ix >= 0 && ix < in.Cols {
								acc += l.weight(ky, kx, ic, oc) * in.At(ic, iy, ix)
							}
						}
					}
				}
				switch l.Activation {
				case ReLU:
					acc = math.Max(acc, 0)
				case Sigmoid:
					acc = 1 / (1 + math.Exp(-acc))
				}
				out.Set(oc, oy, ox, acc)
			}
		}
	}
	return out
}

func randomConv(seed int64, kh, kw, in, out, sh, sw int, pad Padding, act Activation) *Conv2D {
	return &Conv2D{
		KernelH: kh, KernelW: kw, In: in, Out: out,
		Weights: testutil.DeterministicNoise(seed, 1, kh*kw*in*out),
		Bias:    testutil.DeterministicNoise(seed+1, 0.5, out),
		StrideH: sh, StrideW: sw,
		Padding:    pad,
		Activation: act,
	}
}

func randomTensor(seed int64, c, h, w int) *Tensor {
	return &Tensor{Channels: c, Rows: h, Cols: w, Data: testutil.DeterministicNoise(seed, 1, c*h*w)}
}

func TestConv2DMatchesReference(t *testing.T) {
	tests := []struct {
		name   string
		layer  *Conv2D
		in     *Tensor
		outDim [3]int
	}{
		{"same 3x3", randomConv(1, 3, 3, 2, 4, 1, 1, PaddingSame, Linear), randomTensor(2, 2, 7, 9), [3]int{4, 7, 9}},
		{"same 5x5 relu", randomConv(3, 5, 5, 1, 2, 1, 1, PaddingSame, ReLU), randomTensor(4, 1, 6, 11), [3]int{2, 6, 11}},
		{"valid 3x39", randomConv(5, 3, 39, 3, 1, 1, 1, PaddingValid, Sigmoid), randomTensor(6, 3, 5, 50), [3]int{1, 3, 12}},
		{"same stride 1x3", randomConv(7, 3, 3, 8, 3, 1, 3, PaddingSame, ReLU), randomTensor(8, 8, 10, 264), [3]int{3, 10, 88}},
		{"same even kernel", randomConv(9, 4, 4, 1, 1, 2, 2, PaddingSame, Linear), randomTensor(10, 1, 9, 9), [3]int{1, 5, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.layer.validate(); err != nil {
				t.Fatal(err)
			}
			got, err := tt.layer.forward(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if [3]int{got.Channels, got.Rows, got.Cols} != tt.outDim {
				t.Fatalf("shape %dx%dx%d, want %v", got.Channels, got.Rows, got.Cols, tt.outDim)
			}
			testutil.RequireSliceNearlyEqual(t, got.Data, referenceConv(tt.layer, tt.in).Data, 1e-12)
		})
	}
}

func TestConv2DBoxFilter(t *testing.T) {
	l := &Conv2D{
		KernelH: 3, KernelW: 3, In: 1, Out: 1,
		Weights: []float64{1, 1, 1, 1, 1, 1, 1, 1, 1},
		StrideH: 1, StrideW: 1,
		Padding: PaddingSame,
	}
	in := NewTensor(1, 3, 3)
	for i := range in.Data {
		in.Data[i] = 1
	}

	out, err := l.forward(in)
	if err != nil {
		t.Fatal(err)
	}
	testutil.RequireSliceNearlyEqual(t, out.Data, []float64{4, 6, 4, 6, 9, 6, 4, 6, 4}, 0)
}

func TestConv2DErrors(t *testing.T) {
	l := randomConv(1, 3, 3, 2, 1, 1, 1, PaddingValid, Linear)
	if _, err := l.forward(randomTensor(1, 3, 5, 5)); !errors.Is(err, ErrShape) {
		t.Errorf("channel mismatch: expected ErrShape, got %v", err)
	}
	if _, err := l.forward(randomTensor(1, 2, 2, 5)); !errors.Is(err, ErrShape) {
		t.Errorf("small input: expected ErrShape, got %v", err)
	}

	bad := *l
	bad.Weights = bad.Weights[1:]
	if err := bad.validate(); !errors.Is(err, ErrShape) {
		t.Errorf("weight count: expected ErrShape, got %v", err)
	}
	bad = *l
	bad.StrideW = 0
	if err := bad.validate(); !errors.Is(err, ErrShape) {
		t.Errorf("stride: expected ErrShape, got %v", err)
	}
}

func TestBatchNormLayer(t *testing.T) {
	b := &BatchNorm{
		Gamma:    []float64{2, 1},
		Beta:     []float64{0.5, -1},
		Mean:     []float64{1, 0},
		Variance: []float64{3, 0.999},
		Epsilon:  1,
	}
	in := &Tensor{Channels: 2, Rows: 1, Cols: 2, Data: []float64{1, 3, 0, 2}}

	out, err := b.forward(in)
	if err != nil {
		t.Fatal(err)
	}
	// channel 0: (x-1)*2/2+0.5; channel 1: x/sqrt(1.999)-1
	want := []float64{0.5, 2.5, -1, 2/math.Sqrt(1.999) - 1}
	testutil.RequireSliceNearlyEqual(t, out.Data, want, 1e-12)
	if in.Data[0] != 1 {
		t.Fatal("input modified")
	}

	if _, err := b.forward(NewTensor(3, 1, 1)); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
}

func TestActivations(t *testing.T) {
	x := []float64{-2, 0, 3}

	r := append([]float64(nil), x...)
	ReLU.apply(r)
	testutil.RequireSliceNearlyEqual(t, r, []float64{0, 0, 3}, 0)

	s := append([]float64(nil), x...)
	Sigmoid.apply(s)
	testutil.RequireSliceNearlyEqual(t, s, []float64{1 / (1 + math.Exp(2)), 0.5, 1 / (1 + math.Exp(-3))}, 1e-15)

	l := append([]float64(nil), x...)
	Linear.apply(l)
	testutil.RequireSliceNearlyEqual(t, l, x, 0)

	if _, err := ParseActivation("tanh"); !errors.Is(err, ErrUnknownActivation) {
		t.Fatalf("expected ErrUnknownActivation, got %v", err)
	}
}
