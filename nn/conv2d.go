package nn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Conv2D is a 2-D convolution (cross-correlation) over rows and columns.
// Weights use the Keras layout [KernelH][KernelW][In][Out], flattened.
type Conv2D struct {
	KernelH, KernelW int
	In, Out          int

	Weights []float64
	// Bias has Out entries, or is empty.
	Bias []float64

	StrideH, StrideW int
	Padding          Padding
	Activation       Activation
}

func (*Conv2D) Kind() string { return "conv2d" }
func (*Conv2D) layer()       {}

func (l *Conv2D) validate() error {
	if l.KernelH < 1 || l.KernelW < 1 || l.In < 1 || l.Out < 1 {
		return fmt.Errorf("%w: conv2d shape [%d %d %d %d]", ErrShape, l.KernelH, l.KernelW, l.In, l.Out)
	}
	if want := l.KernelH * l.KernelW * l.In * l.Out; len(l.Weights) != want {
		return fmt.Errorf("%w: conv2d has %d weights, want %d", ErrShape, len(l.Weights), want)
	}
	if len(l.Bias) != 0 && len(l.Bias) != l.Out {
		return fmt.Errorf("%w: conv2d has %d biases, want %d", ErrShape, len(l.Bias), l.Out)
	}
	if l.StrideH < 1 || l.StrideW < 1 {
		return fmt.Errorf("%w: conv2d strides %dx%d", ErrShape, l.StrideH, l.StrideW)
	}
	return nil
}

func (l *Conv2D) weight(ky, kx, ic, oc int) float64 {
	return l.Weights[((ky*l.KernelW+kx)*l.In+ic)*l.Out+oc]
}

// outputGeometry returns the output extent and the leading pad along one axis.
func outputGeometry(in, kernel, stride int, padding Padding) (out, pad int) {
	if padding == PaddingSame {
		out = (in + stride - 1) / stride
		total := max((out-1)*stride+kernel-in, 0)
		return out, total / 2
	}
	if in < kernel {
		return 0, 0
	}
	return (in-kernel)/stride + 1, 0
}

func (l *Conv2D) forward(in *Tensor) (*Tensor, error) {
	if in.Channels != l.In {
		return nil, fmt.Errorf("%w: conv2d expects %d channels, input has %d", ErrShape, l.In, in.Channels)
	}

	outH, padH := outputGeometry(in.Rows, l.KernelH, l.StrideH, l.Padding)
	outW, padW := outputGeometry(in.Cols, l.KernelW, l.StrideW, l.Padding)
	if outH == 0 || outW == 0 {
		return nil, fmt.Errorf("%w: %dx%d input smaller than %dx%d kernel", ErrShape, in.Rows, in.Cols, l.KernelH, l.KernelW)
	}

	out := NewTensor(l.Out, outH, outW)

	for oc := range l.Out {
		dst := out.ChannelData(oc)
		for ic := range l.In {
			src := in.ChannelData(ic)
			for ky := range l.KernelH {
				for kx := range l.KernelW {
					w := l.weight(ky, kx, ic, oc)
					if w == 0 {
						continue
					}
					l.accumulate(dst, src, in.Rows, in.Cols, outH, outW, padH, padW, ky, kx, w)
				}
			}
		}

		if len(l.Bias) > 0 {
			floats.AddConst(l.Bias[oc], dst)
		}
		l.Activation.apply(dst)
	}

	return out, nil
}

// accumulate adds w * input(oy*sh+ky-padH, ox*sw+kx-padW) into every output
// position whose tap falls inside the input.
func (l *Conv2D) accumulate(dst, src []float64, inH, inW, outH, outW, padH, padW, ky, kx int, w float64) {
	for oy := range outH {
		iy := oy*l.StrideH + ky - padH
		if iy < 0 || iy >= inH {
			continue
		}
		dstRow := dst[oy*outW : (oy+1)*outW]
		srcRow := src[iy*inW : (iy+1)*inW]

		if l.StrideW == 1 {
			lo := max(0, padW-kx)
			hi := min(outW, inW+padW-kx)
			if lo < hi {
				floats.AddScaled(dstRow[lo:hi], w, srcRow[lo+kx-padW:hi+kx-padW])
			}
			continue
		}

		for ox := range outW {
			ix := ox*l.StrideW + kx - padW
			if ix >= 0 && ix < inW {
				dstRow[ox] += w * srcRow[ix]
			}
		}
	}
}
