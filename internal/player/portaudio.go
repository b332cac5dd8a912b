package player

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioOpener opens the default output device for blocking chunk writes.
// Callers must portaudio.Initialize() first.
func PortAudioOpener(sampleRate, chunkSamples int) (Device, error) {
	buf := make([]int16, chunkSamples)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), chunkSamples, &buf)
	if err != nil {
		return nil, fmt.Errorf("open default output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start output stream: %w", err)
	}
	return &portaudioDevice{stream: stream, buf: buf}, nil
}

type portaudioDevice struct {
	stream *portaudio.Stream
	buf    []int16
}

func (d *portaudioDevice) Write(chunk []int16) error {
	copy(d.buf, chunk)
	return d.stream.Write()
}

func (d *portaudioDevice) Close() error {
	_ = d.stream.Stop()
	return d.stream.Close()
}
