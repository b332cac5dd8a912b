package turnstate

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRequestInterrupt_NoOpWhenIdle(t *testing.T) {
	s := New()
	s.RequestInterrupt()
	if s.IsInterrupted() {
		t.Fatalf("interrupt must not latch while bot is not speaking")
	}
	s.StartBotSpeech()
	s.RequestInterrupt()
	if !s.IsInterrupted() {
		t.Fatalf("interrupt should latch while bot is speaking")
	}
	s.StopBotSpeech()
	if s.IsInterrupted() {
		t.Fatalf("StopBotSpeech must clear the interrupt")
	}
}

func TestStartBotSpeech_ClearsStaleInterrupt(t *testing.T) {
	s := New()
	s.StartBotSpeech()
	s.RequestInterrupt()
	s.StartBotSpeech()
	if s.IsInterrupted() {
		t.Fatalf("StartBotSpeech must clear a stale interrupt")
	}
	s.StopBotSpeech()
}

// Hammer the state from several goroutines and verify no observer can ever see
// interrupted==true together with botSpeaking==false.
func TestInvariant_InterruptImpliesSpeaking(t *testing.T) {
	s := New()
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			s.StartBotSpeech()
			s.StopBotSpeech()
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			s.RequestInterrupt()
		}
	}()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		speaking, interrupted := s.snapshot()
		if interrupted && !speaking {
			close(done)
			wg.Wait()
			t.Fatalf("observed interrupted while bot not speaking")
		}
	}
	close(done)
	wg.Wait()
}

func TestUserSpeechSignal_SetWaitClear(t *testing.T) {
	s := New()
	if s.UserSpeechStarted() {
		t.Fatalf("signal should start unset")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.WaitForUserSpeechStart(ctx); err == nil {
		t.Fatalf("expected timeout waiting on unset signal")
	}

	s.SignalUserSpeechStart()
	s.SignalUserSpeechStart() // idempotent until cleared
	if !s.UserSpeechStarted() {
		t.Fatalf("signal should be set")
	}
	if err := s.WaitForUserSpeechStart(context.Background()); err != nil {
		t.Fatalf("wait on set signal: %v", err)
	}

	s.ClearUserSpeechStart()
	if s.UserSpeechStarted() {
		t.Fatalf("signal should be clear after ClearUserSpeechStart")
	}

	// signal can fire again after a clear
	go func() {
		time.Sleep(10 * time.Millisecond)
		s.SignalUserSpeechStart()
	}()
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := s.WaitForUserSpeechStart(ctx2); err != nil {
		t.Fatalf("wait after rearm: %v", err)
	}
}
