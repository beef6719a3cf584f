// Package model loads the ECG classifier weights and runs inference on a
// single 130-sample window. The network is a small 1-D CNN encoder followed
// by a two-layer classifier head.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/himanishpuri/CardioDNA/pkg/models"
)

// Format identifies the artifact layout understood by this package.
const Format = "cardiodna-cnn/v1"

var ErrInvalidArtifact = errors.New("invalid model artifact")

// Architecture describes the fixed network topology. Artifacts carry it so
// a mismatched file fails at load time instead of producing garbage.
type Architecture struct {
	InputLength  int   `json:"input_length"`
	ConvChannels []int `json:"conv_channels"`
	KernelSizes  []int `json:"kernel_sizes"`
	Hidden       int   `json:"hidden"`
	Classes      int   `json:"classes"`
}

// DefaultArchitecture is the only topology the runtime executes.
func DefaultArchitecture() Architecture {
	return Architecture{
		InputLength:  130,
		ConvChannels: []int{16, 32, 64},
		KernelSizes:  []int{7, 5, 3},
		Hidden:       256,
		Classes:      2,
	}
}

func (a Architecture) equal(b Architecture) bool {
	return a.InputLength == b.InputLength &&
		slices.Equal(a.ConvChannels, b.ConvChannels) &&
		slices.Equal(a.KernelSizes, b.KernelSizes) &&
		a.Hidden == b.Hidden &&
		a.Classes == b.Classes
}

// Tensor is a dense row-major float tensor.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

func (t Tensor) size() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Artifact is the on-disk model document.
type Artifact struct {
	Format       string             `json:"format"`
	Architecture Architecture       `json:"architecture"`
	Labels       []models.Diagnosis `json:"labels"`
	Tensors      map[string]Tensor  `json:"tensors"`

	// Filled in on load, not serialized.
	Digest string `json:"-"`
	Path   string `json:"-"`
}

// expectedShapes lists every tensor the runtime needs, keyed by its
// state-dict name.
func expectedShapes(arch Architecture) map[string][]int {
	shapes := make(map[string][]int)
	in := 1
	for i, out := range arch.ConvChannels {
		name := fmt.Sprintf("encoder.%d", i*2)
		shapes[name+".weight"] = []int{out, in, arch.KernelSizes[i]}
		shapes[name+".bias"] = []int{out}
		in = out
	}
	shapes["classifier.1.weight"] = []int{arch.Hidden, in}
	shapes["classifier.1.bias"] = []int{arch.Hidden}
	shapes["classifier.3.weight"] = []int{arch.Classes, arch.Hidden}
	shapes["classifier.3.bias"] = []int{arch.Classes}
	return shapes
}

// LoadArtifact reads, checks and fingerprints a model file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model artifact: %w", err)
	}

	a, err := DecodeArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.Path = path
	return a, nil
}

// DecodeArtifact parses an artifact from memory.
func DecodeArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	a.Digest = digestOf(data)
	return &a, nil
}

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Validate checks the format tag, topology, labels and every tensor.
func (a *Artifact) Validate() error {
	if a.Format != Format {
		return fmt.Errorf("%w: unknown format %q", ErrInvalidArtifact, a.Format)
	}
	if !a.Architecture.equal(DefaultArchitecture()) {
		return fmt.Errorf("%w: unsupported architecture %+v", ErrInvalidArtifact, a.Architecture)
	}

	if len(a.Labels) != a.Architecture.Classes {
		return fmt.Errorf("%w: expected %d labels, got %d", ErrInvalidArtifact, a.Architecture.Classes, len(a.Labels))
	}
	seen := make(map[models.Diagnosis]bool, len(a.Labels))
	for _, l := range a.Labels {
		if !l.Valid() {
			return fmt.Errorf("%w: unknown label %q", ErrInvalidArtifact, l)
		}
		if seen[l] {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidArtifact, l)
		}
		seen[l] = true
	}

	for name, shape := range expectedShapes(a.Architecture) {
		t, ok := a.Tensors[name]
		if !ok {
			return fmt.Errorf("%w: missing tensor %s", ErrInvalidArtifact, name)
		}
		if !slices.Equal(t.Shape, shape) {
			return fmt.Errorf("%w: tensor %s has shape %v, want %v", ErrInvalidArtifact, name, t.Shape, shape)
		}
		if len(t.Data) != t.size() {
			return fmt.Errorf("%w: tensor %s holds %d values, shape needs %d", ErrInvalidArtifact, name, len(t.Data), t.size())
		}
		for i, v := range t.Data {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: tensor %s has non-finite value at %d", ErrInvalidArtifact, name, i)
			}
		}
	}
	return nil
}

// Encode returns the canonical JSON form; its sha256 is the artifact digest.
func (a *Artifact) Encode() ([]byte, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteArtifact encodes a as JSON.
func WriteArtifact(w io.Writer, a *Artifact) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// SaveArtifact writes a to path, replacing any existing file.
func SaveArtifact(path string, a *Artifact) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating model artifact: %w", err)
	}
	if err := WriteArtifact(f, a); err != nil {
		f.Close()
		return fmt.Errorf("writing model artifact: %w", err)
	}
	return f.Close()
}
