package tts

import (
	"context"
	"testing"
	"time"
)

// Smoke test: without an API key Synthesize must fail fast, not hang.
func TestSynthesize_NoKey(t *testing.T) {
	s := NewSynthesizer("", "", 16000)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	pcmCh, errCh := s.Synthesize(ctx, "hello")
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected error when api key missing")
		}
	case <-pcmCh:
	case <-time.After(300 * time.Millisecond):
		t.Fatalf("timeout waiting for error")
	}
}

func TestSynthesize_EmptySentenceProducesNothing(t *testing.T) {
	s := NewSynthesizer("key", "", 16000)
	pcmCh, errCh := s.Synthesize(context.Background(), "")
	select {
	case _, ok := <-pcmCh:
		if ok {
			t.Fatalf("expected no audio for empty sentence")
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for channel close")
	}
	if err, ok := <-errCh; ok && err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSynthesize_DefaultVoice(t *testing.T) {
	s := NewSynthesizer("key", "", 16000)
	if s.voice != defaultVoice {
		t.Fatalf("voice = %q, want default", s.voice)
	}
}
