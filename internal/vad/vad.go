// Package vad classifies fixed-size PCM frames as speech or non-speech.
package vad

// Detector scores one frame of 16-bit mono PCM with a speech probability in
// [0,1]. Callers threshold the score; a failed inference must read as silence
// so a broken model can never cause a false barge-in.
type Detector interface {
	Classify(frame []int16) (float64, error)
}
