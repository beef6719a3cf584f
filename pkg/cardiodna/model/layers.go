package model

import "gonum.org/v1/gonum/floats"

// conv1d is a stride-1, zero-padded 1-D convolution.
// weight is [out][in][k] row-major.
type conv1d struct {
	out, in, k, pad int
	weight          []float64
	bias            []float64
}

func newConv1d(w, b Tensor) conv1d {
	k := w.Shape[2]
	return conv1d{
		out:    w.Shape[0],
		in:     w.Shape[1],
		k:      k,
		pad:    (k - 1) / 2,
		weight: w.Data,
		bias:   b.Data,
	}
}

func (c conv1d) kernel(o, i int) []float64 {
	off := (o*c.in + i) * c.k
	return c.weight[off : off+c.k]
}

// forward maps [in][L] to [out][L+2*pad-k+1].
func (c conv1d) forward(x [][]float64) [][]float64 {
	length := len(x[0])
	outLen := length + 2*c.pad - c.k + 1

	padded := make([][]float64, c.in)
	for i := range padded {
		p := make([]float64, length+2*c.pad)
		copy(p[c.pad:], x[i])
		padded[i] = p
	}

	y := make([][]float64, c.out)
	for o := 0; o < c.out; o++ {
		row := make([]float64, outLen)
		for t := 0; t < outLen; t++ {
			acc := c.bias[o]
			for i := 0; i < c.in; i++ {
				acc += floats.Dot(c.kernel(o, i), padded[i][t:t+c.k])
			}
			row[t] = acc
		}
		y[o] = row
	}
	return y
}

// linear is a fully connected layer; weight is [out][in] row-major.
type linear struct {
	out, in int
	weight  []float64
	bias    []float64
}

func newLinear(w, b Tensor) linear {
	return linear{out: w.Shape[0], in: w.Shape[1], weight: w.Data, bias: b.Data}
}

func (l linear) forward(x []float64) []float64 {
	y := make([]float64, l.out)
	for o := 0; o < l.out; o++ {
		y[o] = l.bias[o] + floats.Dot(l.weight[o*l.in:(o+1)*l.in], x)
	}
	return y
}

func relu(x []float64) {
	for i, v := range x {
		if v < 0 {
			x[i] = 0
		}
	}
}

func relu2d(x [][]float64) {
	for _, row := range x {
		relu(row)
	}
}

// globalAvgPool collapses each channel to its mean.
func globalAvgPool(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) > 0 {
			out[i] = floats.Sum(row) / float64(len(row))
		}
	}
	return out
}
