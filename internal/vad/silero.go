package vad

import (
	"fmt"
	"sync"

	"github.com/streamer45/silero-vad-go/speech"
)

// SileroDetector runs the Silero ONNX model in streaming mode. The underlying
// detector reports speech-start and speech-end events; Classify folds those
// into a per-frame score: 1 inside a speech segment, 0 outside. The detector
// is stateful across frames, so calls are serialized with a mutex (the
// watchdog and the recognizer classify concurrently).
type SileroDetector struct {
	mu       sync.Mutex
	det      *speech.Detector
	inSpeech bool
}

// NewSileroDetector loads the ONNX model at modelPath. Frames must be
// frameSize samples at sampleRate (512 at 16 kHz for the stock model).
func NewSileroDetector(modelPath string, sampleRate int, threshold float64) (*SileroDetector, error) {
	det, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:  modelPath,
		SampleRate: sampleRate,
		Threshold:  float32(threshold),
	})
	if err != nil {
		return nil, fmt.Errorf("silero: create detector: %w", err)
	}
	return &SileroDetector{det: det}, nil
}

func (d *SileroDetector) Classify(frame []int16) (float64, error) {
	samples := make([]float32, len(frame))
	for i, s := range frame {
		samples[i] = float32(s) / 32768.0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	event, err := d.det.DetectStreamFrame(samples)
	if err != nil {
		// the streaming detector can momentarily lose sync; reset and report
		// the frame as silence rather than risk a false interruption
		_ = d.det.Reset()
		d.inSpeech = false
		return 0, fmt.Errorf("silero: stream frame: %w", err)
	}
	if event != nil {
		if event.IsStart {
			d.inSpeech = true
		}
		if event.IsEnd {
			d.inSpeech = false
		}
	}
	if d.inSpeech {
		return 1, nil
	}
	return 0, nil
}

// Close releases the ONNX session.
func (d *SileroDetector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.det.Destroy()
}
