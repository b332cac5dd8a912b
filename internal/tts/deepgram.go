// Package tts synthesizes one sentence at a time into raw PCM through the
// Deepgram speak websocket API.
package tts

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
)

const (
	defaultVoice = "aura-2-thalia-en"

	// idleWindow: once audio has arrived, this much quiet means the
	// synthesis is drained and the session can be torn down.
	idleWindow = 400 * time.Millisecond

	// synthesisDeadline caps one sentence end to end; a sentence that takes
	// longer than this is a stuck backend, not a long sentence.
	synthesisDeadline = 12 * time.Second
)

// Synthesizer converts sentences to 16 kHz mono s16le PCM streams.
type Synthesizer struct {
	apiKey     string
	voice      string
	sampleRate int
}

func NewSynthesizer(apiKey, voice string, sampleRate int) *Synthesizer {
	if voice == "" {
		voice = defaultVoice
	}
	return &Synthesizer{apiKey: apiKey, voice: voice, sampleRate: sampleRate}
}

// Synthesize streams the spoken audio for one sentence. The PCM channel is
// closed when synthesis finishes or fails; at most one error is delivered.
// A synthesis failure is per-sentence and never fatal to the caller.
func (s *Synthesizer) Synthesize(ctx context.Context, sentence string) (<-chan []byte, <-chan error) {
	pcmCh := make(chan []byte, 1024)
	errCh := make(chan error, 1)

	go func() {
		defer close(pcmCh)
		defer close(errCh)

		if s.apiKey == "" {
			errCh <- fmt.Errorf("deepgram: api key missing")
			return
		}
		if sentence == "" {
			return
		}

		options := &clientinterfaces.WSSpeakOptions{
			Model:      s.voice,
			Encoding:   "linear16",
			SampleRate: s.sampleRate,
		}

		var lastAudioUnix atomic.Int64
		var seenAudio atomic.Bool

		cb := &speakCallback{onBinary: func(data []byte) error {
			if len(data) == 0 {
				return nil
			}
			lastAudioUnix.Store(time.Now().UnixNano())
			seenAudio.Store(true)
			chunk := make([]byte, len(data))
			copy(chunk, data)
			select {
			case pcmCh <- chunk:
			default:
				// consumer stalled or gone; dropping keeps the callback alive
			}
			return nil
		}}

		client, err := speak.NewWSUsingCallback(ctx, s.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
		if err != nil {
			errCh <- fmt.Errorf("deepgram: create client: %w", err)
			return
		}

		var stopped atomic.Bool
		stopClient := func() {
			if stopped.CompareAndSwap(false, true) {
				client.Stop()
			}
		}
		defer stopClient()

		if ok := client.Connect(); !ok {
			errCh <- fmt.Errorf("deepgram: connect failed")
			return
		}
		if err := client.SpeakWithText(sentence); err != nil {
			errCh <- fmt.Errorf("deepgram: speak: %w", err)
			return
		}
		if err := client.Flush(); err != nil {
			log.Printf("tts: flush: %v", err)
		}

		// wait until the audio stream drains, the deadline passes, or the
		// caller cancels (barge-in cancels synthesis through ctx)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		deadline := time.Now().Add(synthesisDeadline)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if seenAudio.Load() {
					last := time.Unix(0, lastAudioUnix.Load())
					if time.Since(last) > idleWindow {
						return
					}
				}
				if time.Now().After(deadline) {
					if !seenAudio.Load() {
						errCh <- fmt.Errorf("deepgram: no audio before deadline")
					}
					return
				}
			}
		}
	}()

	return pcmCh, errCh
}

// speakCallback adapts the SDK's event surface; only binary audio matters.
type speakCallback struct{ onBinary func([]byte) error }

func (c *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (c *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (c *speakCallback) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (c *speakCallback) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (c *speakCallback) Close(*msginterfaces.CloseResponse) error       { return nil }
func (c *speakCallback) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (c *speakCallback) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (c *speakCallback) UnhandledEvent([]byte) error                    { return nil }
func (c *speakCallback) Binary(data []byte) error {
	if c.onBinary != nil {
		return c.onBinary(data)
	}
	return nil
}
