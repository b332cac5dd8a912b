package turnstate

import (
	"context"
	"sync"
)

// State is the single shared "who is talking" object for the whole session.
// All fields are guarded by one mutex so readers never observe a partial
// update; interruptRequested can only become true while botSpeaking is true.
type State struct {
	mu          sync.Mutex
	botSpeaking bool
	interrupted bool

	// single-slot user-speech-start signal: closed when set, replaced on clear
	speechStart chan struct{}
	signaled    bool
}

func New() *State {
	return &State{speechStart: make(chan struct{})}
}

// StartBotSpeech marks the beginning of a bot utterance and clears any stale
// interrupt so only speech detected from now on can cancel it.
func (s *State) StartBotSpeech() {
	s.mu.Lock()
	s.botSpeaking = true
	s.interrupted = false
	s.mu.Unlock()
}

// StopBotSpeech marks the end of a bot utterance. Must be called exactly once
// per StartBotSpeech, on every exit path.
func (s *State) StopBotSpeech() {
	s.mu.Lock()
	s.botSpeaking = false
	s.interrupted = false
	s.mu.Unlock()
}

// RequestInterrupt flags the current bot utterance for cancellation. It is a
// no-op unless the bot is speaking, and idempotent while it is.
func (s *State) RequestInterrupt() {
	s.mu.Lock()
	if s.botSpeaking {
		s.interrupted = true
	}
	s.mu.Unlock()
}

func (s *State) IsBotSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.botSpeaking
}

func (s *State) IsInterrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupted
}

// SignalUserSpeechStart wakes a pending WaitForUserSpeechStart. Repeated calls
// before the signal is cleared are no-ops, so the main loop wakes exactly once
// per detected utterance start.
func (s *State) SignalUserSpeechStart() {
	s.mu.Lock()
	if !s.signaled {
		s.signaled = true
		close(s.speechStart)
	}
	s.mu.Unlock()
}

// UserSpeechStarted reports whether the signal is currently set.
func (s *State) UserSpeechStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signaled
}

// ClearUserSpeechStart rearms the signal for the next utterance.
func (s *State) ClearUserSpeechStart() {
	s.mu.Lock()
	if s.signaled {
		s.signaled = false
		s.speechStart = make(chan struct{})
	}
	s.mu.Unlock()
}

// WaitForUserSpeechStart blocks until the signal is set or ctx is canceled.
func (s *State) WaitForUserSpeechStart(ctx context.Context) error {
	s.mu.Lock()
	ch := s.speechStart
	s.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// snapshot returns both flags under one lock acquisition; used by tests to
// check the interrupted-implies-speaking invariant without a race window.
func (s *State) snapshot() (botSpeaking, interrupted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.botSpeaking, s.interrupted
}
