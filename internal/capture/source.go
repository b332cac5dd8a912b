// Package capture bridges the audio input device into cooperative frame
// streams. The device callback enqueues and returns immediately; consumers
// dequeue through bounded per-subscription channels.
package capture

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Source owns the microphone stream and fans frames out to subscribers.
// Callers must portaudio.Initialize() before constructing one.
type Source struct {
	*Hub

	sampleRate int
	frameSize  int

	mu      sync.Mutex
	stream  *portaudio.Stream
	started bool
}

// NewSource opens the default input device at the given rate and frame size.
func NewSource(sampleRate, frameSize int) (*Source, error) {
	s := &Source{
		Hub:        NewHub(),
		sampleRate: sampleRate,
		frameSize:  frameSize,
	}
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frameSize, s.onDeviceFrame)
	if err != nil {
		return nil, fmt.Errorf("capture: open input stream: %w", err)
	}
	s.stream = stream
	return s, nil
}

// onDeviceFrame runs on the audio device thread. portaudio reuses the input
// buffer, so a copy is taken before publishing.
func (s *Source) onDeviceFrame(in []int16) {
	frame := make(Frame, len(in))
	copy(frame, in)
	s.Publish(frame)
}

// Start begins capture. Frames flow to current and future subscriptions.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("capture: start input stream: %w", err)
	}
	s.started = true
	return nil
}

// Close tears down the device stream and closes every subscription channel.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Hub.Close()
	if s.stream == nil {
		return nil
	}
	if s.started {
		_ = s.stream.Stop()
		s.started = false
	}
	err := s.stream.Close()
	s.stream = nil
	if err != nil {
		return fmt.Errorf("capture: close input stream: %w", err)
	}
	return nil
}

// SampleRate returns the configured capture rate.
func (s *Source) SampleRate() int { return s.sampleRate }

// FrameSize returns the samples per frame.
func (s *Source) FrameSize() int { return s.frameSize }
