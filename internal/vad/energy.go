package vad

import "math"

// defaultReferenceRMS maps RMS energy onto the probability scale so that the
// usual 0.5 cutoff lands at ~300 RMS, the level that reliably separates
// close-mic speech from room noise on 16-bit input.
const defaultReferenceRMS = 600.0

// EnergyDetector is a model-free fallback that scores frames by RMS energy.
// It is stateless per call and never fails.
type EnergyDetector struct {
	referenceRMS float64
}

func NewEnergyDetector() *EnergyDetector {
	return &EnergyDetector{referenceRMS: defaultReferenceRMS}
}

func (d *EnergyDetector) Classify(frame []int16) (float64, error) {
	if len(frame) == 0 {
		return 0, nil
	}
	var sumSquares float64
	for _, s := range frame {
		f := float64(s)
		sumSquares += f * f
	}
	rms := math.Sqrt(sumSquares / float64(len(frame)))
	p := rms / d.referenceRMS
	if p > 1 {
		p = 1
	}
	return p, nil
}
