// Package player writes synthesized PCM to the output device, one utterance
// at a time, with immediate abort on barge-in.
package player

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Device is one open playback stream. It is owned by a single Play call and
// released exactly once, on every exit path.
type Device interface {
	Write(chunk []int16) error
	Close() error
}

// DeviceOpener acquires a playback device for one utterance.
type DeviceOpener func(sampleRate, chunkSamples int) (Device, error)

// InterruptChecker is the read side of the turn state the player needs.
type InterruptChecker interface {
	IsInterrupted() bool
}

// Player plays one PCM stream at a time. Stop may be called concurrently
// (the barge-in watchdog does) and is idempotent, including when nothing is
// playing or when Play is winding down on its own.
type Player struct {
	open         DeviceOpener
	sampleRate   int
	chunkSamples int

	mu     sync.Mutex
	active *session
}

type session struct {
	stop chan struct{}
	once sync.Once
}

func (s *session) requestStop() { s.once.Do(func() { close(s.stop) }) }

func New(sampleRate, chunkSamples int, open DeviceOpener) *Player {
	return &Player{open: open, sampleRate: sampleRate, chunkSamples: chunkSamples}
}

// Stop forces the current Play loop to exit before its next device write.
// The device itself is always released by Play, never here, so a Stop racing
// a natural wind-down cannot double-release.
func (p *Player) Stop() {
	p.mu.Lock()
	s := p.active
	p.mu.Unlock()
	if s != nil {
		s.requestStop()
	}
}

// Play opens the output device, writes the stream in fixed-size chunks, and
// releases the device unconditionally. Interruption is checked before every
// write. Returns a device error if one occurs; interruption is not an error.
func (p *Player) Play(stream <-chan []byte, interrupt InterruptChecker) error {
	// a lingering session from a previous utterance is stopped first
	p.Stop()

	dev, err := p.open(p.sampleRate, p.chunkSamples)
	if err != nil {
		return fmt.Errorf("player: open output device: %w", err)
	}

	s := &session{stop: make(chan struct{})}
	p.mu.Lock()
	p.active = s
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.active == s {
			p.active = nil
		}
		p.mu.Unlock()
		_ = dev.Close()
	}()

	interrupted := func() bool {
		if interrupt != nil && interrupt.IsInterrupted() {
			return true
		}
		select {
		case <-s.stop:
			return true
		default:
			return false
		}
	}

	var pending []int16
	chunk := make([]int16, p.chunkSamples)
	for {
		for len(pending) >= p.chunkSamples {
			if interrupted() {
				return nil
			}
			copy(chunk, pending[:p.chunkSamples])
			pending = pending[p.chunkSamples:]
			if err := dev.Write(chunk); err != nil {
				return fmt.Errorf("player: device write: %w", err)
			}
		}
		select {
		case <-s.stop:
			return nil
		case data, ok := <-stream:
			if !ok {
				return p.flushTail(dev, pending, interrupted)
			}
			pending = append(pending, toSamples(data)...)
		}
	}
}

// flushTail zero-pads the final partial chunk so no trailing audio is lost.
func (p *Player) flushTail(dev Device, pending []int16, interrupted func() bool) error {
	if len(pending) == 0 || interrupted() {
		return nil
	}
	chunk := make([]int16, p.chunkSamples)
	copy(chunk, pending)
	if err := dev.Write(chunk); err != nil {
		return fmt.Errorf("player: device write: %w", err)
	}
	return nil
}

func toSamples(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return out
}
