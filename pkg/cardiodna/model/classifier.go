package model

import (
	"fmt"
	"math"

	"github.com/himanishpuri/CardioDNA/pkg/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const zscoreEps = 1e-6

// Classifier is an immutable inference handle. It is safe to share across
// goroutines.
type Classifier struct {
	encoder []conv1d
	hidden  linear
	output  linear
	labels  []models.Diagnosis

	inputLength int
	digest      string
	path        string
}

// NewClassifier builds the network from a validated artifact.
func NewClassifier(a *Artifact) (*Classifier, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil artifact", ErrInvalidArtifact)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	c := &Classifier{
		labels:      append([]models.Diagnosis(nil), a.Labels...),
		inputLength: a.Architecture.InputLength,
		digest:      a.Digest,
		path:        a.Path,
	}
	for i := range a.Architecture.ConvChannels {
		name := fmt.Sprintf("encoder.%d", i*2)
		c.encoder = append(c.encoder, newConv1d(a.Tensors[name+".weight"], a.Tensors[name+".bias"]))
	}
	c.hidden = newLinear(a.Tensors["classifier.1.weight"], a.Tensors["classifier.1.bias"])
	c.output = newLinear(a.Tensors["classifier.3.weight"], a.Tensors["classifier.3.bias"])
	return c, nil
}

// Load reads an artifact from disk and builds a classifier from it.
func Load(path string) (*Classifier, error) {
	a, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return NewClassifier(a)
}

func (c *Classifier) Digest() string { return c.digest }

func (c *Classifier) Path() string { return c.path }

func (c *Classifier) Labels() []models.Diagnosis {
	return append([]models.Diagnosis(nil), c.labels...)
}

func (c *Classifier) InputLength() int { return c.inputLength }

// Logits runs the network on one window and returns the raw class scores.
func (c *Classifier) Logits(samples []float64) []float64 {
	x := [][]float64{zscore(samples)}
	for _, conv := range c.encoder {
		x = conv.forward(x)
		relu2d(x)
	}

	h := c.hidden.forward(globalAvgPool(x))
	relu(h)
	return c.output.forward(h)
}

// Predict returns the most likely label, its probability and the full
// distribution. Equal scores resolve to the first label.
func (c *Classifier) Predict(samples []float64) (models.Diagnosis, float64, map[models.Diagnosis]float64) {
	logits := c.Logits(samples)
	probs := softmax(logits)

	best := floats.MaxIdx(logits)
	dist := make(map[models.Diagnosis]float64, len(c.labels))
	for i, l := range c.labels {
		dist[l] = probs[i]
	}
	return c.labels[best], clamp01(probs[best]), dist
}

func zscore(x []float64) []float64 {
	mean, std := stat.PopMeanStdDev(x, nil)
	out := make([]float64, len(x))
	copy(out, x)
	floats.AddConst(-mean, out)
	floats.Scale(1/(std+zscoreEps), out)
	return out
}

func softmax(logits []float64) []float64 {
	lse := floats.LogSumExp(logits)
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = clamp01(math.Exp(v - lse))
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
