package waveform

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVFullScale is the amplitude, in millivolts, that maps to PCM full scale.
const WAVFullScale = 5.0

// Recording is a decoded ECG trace, possibly longer than one window.
type Recording struct {
	Samples    []float64
	SampleRate int
	Source     string
}

// Duration returns the recording length in seconds.
func (r *Recording) Duration() float64 {
	if r.SampleRate <= 0 {
		return 0
	}
	return float64(len(r.Samples)) / float64(r.SampleRate)
}

// ReadFile decodes a recording based on the file extension:
// .json ({"ecg_signal": [...]} or a bare array), .csv/.txt (every numeric
// field, row by row) and .wav (first channel, PCM full scale = WAVFullScale).
func ReadFile(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var rec *Recording
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		rec, err = ReadJSON(f)
	case ".csv", ".txt":
		rec, err = ReadCSV(f)
	case ".wav":
		rec, err = ReadWAV(f)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	rec.Source = path
	return rec, nil
}

type jsonDocument struct {
	ECGSignal *Samples `json:"ecg_signal"`
}

// ReadJSON accepts either the request body shape or a bare array.
func ReadJSON(r io.Reader) (*Recording, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var s Samples
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return &Recording{Samples: s, SampleRate: SampleRate}, nil
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.ECGSignal == nil {
		return nil, errors.New("missing required field: ecg_signal")
	}
	return &Recording{Samples: *doc.ECGSignal, SampleRate: SampleRate}, nil
}

// ReadCSV reads every field as a sample. A first row that does not parse
// as numbers is treated as a header and skipped.
func ReadCSV(r io.Reader) (*Recording, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var samples []float64
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row++

		values := make([]float64, 0, len(record))
		for _, field := range record {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, perr := strconv.ParseFloat(field, 64)
			if perr != nil {
				if row == 1 {
					values = nil
					break
				}
				return nil, fmt.Errorf("row %d: %q is not a number", row, field)
			}
			values = append(values, v)
		}
		samples = append(samples, values...)
	}

	if len(samples) == 0 {
		return nil, errors.New("no samples found")
	}
	return &Recording{Samples: samples, SampleRate: SampleRate}, nil
}

// ReadWAV decodes PCM WAV data and keeps the first channel, in millivolts.
func ReadWAV(r io.ReadSeeker) (*Recording, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}

	channels := int(d.NumChans)
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(d.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	fullScale := float64(int64(1)<<uint(bitDepth-1)) / WAVFullScale

	samples := make([]float64, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, float64(buf.Data[i])/fullScale)
	}

	return &Recording{Samples: samples, SampleRate: int(d.SampleRate)}, nil
}

// WriteWAV encodes millivolt samples as 16-bit mono PCM. Values beyond
// ±WAVFullScale are clipped.
func WriteWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	const bitDepth = 16
	fullScale := float64(int64(1)<<(bitDepth-1)) - 1

	data := make([]int, len(samples))
	for i, v := range samples {
		v /= WAVFullScale
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		data[i] = int(v * fullScale)
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("writing PCM data: %w", err)
	}
	return enc.Close()
}

// Windows splits samples into consecutive, non-overlapping windows of
// Length samples. A trailing partial window is dropped.
func Windows(samples []float64) [][]float64 {
	n := len(samples) / Length
	out := make([][]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, samples[i*Length:(i+1)*Length])
	}
	return out
}
