package features

import "gonum.org/v1/gonum/floats"

// Peak is a detected R wave.
type Peak struct {
	Index     int
	Time      float64 // seconds from window start
	Height    float64 // baseline-removed
	Amplitude float64 // raw sample value
}

// DetectPeaks finds R waves in a baseline-removed signal. A sample is a
// candidate when it is >= its right neighbour, > its left neighbour and above
// thresholdRatio times the signal maximum. Inside the refractory window a
// taller candidate replaces the previously accepted one.
func DetectPeaks(x []float64, sampleRate int, thresholdRatio float64, refractory int) []Peak {
	n := len(x)
	if n == 0 {
		return nil
	}

	maxVal := floats.Max(x)
	if maxVal <= 0 {
		return nil
	}
	threshold := thresholdRatio * maxVal

	peaks := make([]Peak, 0, 4)
	for i := 0; i < n; i++ {
		v := x[i]
		if v < threshold {
			continue
		}
		if i > 0 && !(v > x[i-1]) {
			continue
		}
		if i < n-1 && v < x[i+1] {
			continue
		}

		p := Peak{
			Index:  i,
			Time:   float64(i) / float64(sampleRate),
			Height: v,
		}

		if last := len(peaks) - 1; last >= 0 && i-peaks[last].Index < refractory {
			if v > peaks[last].Height {
				peaks[last] = p
			}
			continue
		}
		peaks = append(peaks, p)
	}

	return peaks
}

// dominant returns the tallest peak; ties go to the earliest.
func dominant(peaks []Peak) Peak {
	best := peaks[0]
	for _, p := range peaks[1:] {
		if p.Height > best.Height {
			best = p
		}
	}
	return best
}

// peakWidth counts the contiguous samples around idx whose value stays at
// or above level. The peak sample itself always counts.
func peakWidth(x []float64, idx int, level float64) int {
	width := 1
	for i := idx - 1; i >= 0 && x[i] >= level; i-- {
		width++
	}
	for i := idx + 1; i < len(x) && x[i] >= level; i++ {
		width++
	}
	return width
}

// rrIntervals returns successive peak distances in seconds.
func rrIntervals(peaks []Peak) []float64 {
	if len(peaks) < 2 {
		return nil
	}
	rr := make([]float64, len(peaks)-1)
	for i := 1; i < len(peaks); i++ {
		rr[i-1] = peaks[i].Time - peaks[i-1].Time
	}
	return rr
}
