package waveform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Samples decodes a JSON array of numbers. Besides plain numbers it accepts
// null and the strings "NaN", "Infinity" and "-Infinity" so that non-finite
// input reaches the validator instead of failing as malformed JSON.
type Samples []float64

func (s *Samples) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("ecg_signal must be an array: %w", err)
	}

	out := make([]float64, len(raw))
	for i, elem := range raw {
		v, err := parseElement(elem)
		if err != nil {
			return fmt.Errorf("ecg_signal[%d]: %w", i, err)
		}
		out[i] = v
	}
	*s = out
	return nil
}

func parseElement(elem json.RawMessage) (float64, error) {
	elem = bytes.TrimSpace(elem)
	if len(elem) == 0 {
		return 0, errors.New("empty element")
	}

	switch elem[0] {
	case 'n':
		if string(elem) == "null" {
			return math.NaN(), nil
		}
	case '"':
		var str string
		if err := json.Unmarshal(elem, &str); err != nil {
			return 0, err
		}
		return parseFloat(str)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return parseFloat(string(elem))
	}
	return 0, fmt.Errorf("not a number: %s", elem)
}

// parseFloat keeps overflowing literals as ±Inf so they are reported as
// non-finite rather than as a syntax problem.
func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}
