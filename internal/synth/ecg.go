// Package synth generates deterministic ECG-like traces: a slow baseline
// plus gaussian P, Q, R, S and T waves and a hash-based pseudo noise term.
// The output is not clinical data; it exercises the pipeline end to end.
package synth

import "math"

// Generator produces consecutive samples of a synthetic single-lead trace.
type Generator struct {
	fs        float64
	hrBPM     float64
	noise     float64
	amplitude float64
	phase     float64
}

// New returns a generator sampling at fs Hz with the given heart rate and
// noise level. The R wave peaks at amplitude (mV).
func New(fs, hrBPM, noise, amplitude float64) *Generator {
	return &Generator{fs: fs, hrBPM: hrBPM, noise: noise, amplitude: amplitude}
}

// WithPhase sets the position inside the cardiac cycle, in [0, 1).
func (g *Generator) WithPhase(phase float64) *Generator {
	g.phase = fract(phase)
	return g
}

// Next returns the next sample and advances time.
func (g *Generator) Next() float64 {
	t := g.phase

	baseline := 0.05 * math.Sin(2*math.Pi*0.33*t)

	p := 0.08 * gauss(t, 0.18, 0.03)
	q := -0.12 * gauss(t, 0.30, 0.01)
	r := 1.00 * gauss(t, 0.32, 0.012)
	s := -0.25 * gauss(t, 0.35, 0.012)
	tw := 0.25 * gauss(t, 0.60, 0.06)

	n := g.noise * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)

	g.phase += (g.hrBPM / 60.0) / g.fs
	if g.phase >= 1.0 {
		g.phase -= 1.0
	}

	return g.amplitude * (baseline + p + q + r + s + tw + n)
}

// Samples returns the next n samples.
func (g *Generator) Samples(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// Beat returns n samples at zero baseline with a single gaussian R wave of
// the given amplitude centred on peakIdx.
func Beat(n, peakIdx int, amplitude float64) []float64 {
	const sigma = 2.0 // samples
	out := make([]float64, n)
	for i := range out {
		v := amplitude * gauss(float64(i), float64(peakIdx), sigma)
		if math.Abs(v) < 1e-9 {
			v = 0
		}
		out[i] = v
	}
	return out
}

// Pulses returns n samples at zero baseline with a gaussian R wave at each
// of the given indices.
func Pulses(n int, amplitude float64, peaks ...int) []float64 {
	out := make([]float64, n)
	for _, p := range peaks {
		beat := Beat(n, p, amplitude)
		for i := range out {
			out[i] += beat[i]
		}
	}
	return out
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 { return x - math.Floor(x) }
