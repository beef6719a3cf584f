package model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/himanishpuri/CardioDNA/pkg/models"
)

// GenerateArtifact builds a He-initialised artifact from seed. The same seed
// always yields the same weights. Untrained weights carry no diagnostic
// value; they exist so the service can run without a trained file.
func GenerateArtifact(seed uint64) *Artifact {
	arch := DefaultArchitecture()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	a := &Artifact{
		Format:       Format,
		Architecture: arch,
		Labels:       append([]models.Diagnosis(nil), models.Diagnoses...),
		Tensors:      make(map[string]Tensor),
	}

	// Iterate in a fixed order so the random stream is reproducible.
	for _, name := range tensorOrder(arch) {
		shape := expectedShapes(arch)[name]
		t := Tensor{Shape: shape, Data: make([]float64, Tensor{Shape: shape}.size())}
		if len(shape) > 1 {
			fanIn := 1
			for _, d := range shape[1:] {
				fanIn *= d
			}
			std := math.Sqrt(2.0 / float64(fanIn))
			for i := range t.Data {
				t.Data[i] = r.NormFloat64() * std
			}
		}
		a.Tensors[name] = t
	}

	if data, err := a.Encode(); err == nil {
		a.Digest = digestOf(data)
	}
	return a
}

func tensorOrder(arch Architecture) []string {
	names := make([]string, 0, 2*len(arch.ConvChannels)+4)
	for i := range arch.ConvChannels {
		names = append(names, fmt.Sprintf("encoder.%d.weight", i*2), fmt.Sprintf("encoder.%d.bias", i*2))
	}
	return append(names,
		"classifier.1.weight", "classifier.1.bias",
		"classifier.3.weight", "classifier.3.bias",
	)
}
