// Package orchestrator drives the turn-taking loop: wait for the user to
// speak, transcribe, stream a reply sentence-by-sentence into synthesis and
// playback, and watch for barge-in the whole time.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Aakashjammula/audio-agent/internal/capture"
	"github.com/Aakashjammula/audio-agent/internal/llm"
	"github.com/Aakashjammula/audio-agent/internal/player"
	"github.com/Aakashjammula/audio-agent/internal/segment"
	"github.com/Aakashjammula/audio-agent/internal/turnstate"
	"github.com/Aakashjammula/audio-agent/internal/vad"
)

const (
	defaultSystemPrompt = "You are a friendly and helpful voice assistant. Keep your responses concise and conversational."
	defaultWelcomeText  = "Hello. I am V Assist. How can I help you today?"
	defaultApologyText  = "I'm sorry, I encountered an error. Please try again."
	defaultThreshold    = 0.5
)

// Recognizer captures one user utterance from a frame stream.
type Recognizer interface {
	CaptureUntilSilence(ctx context.Context, frames <-chan capture.Frame) (string, error)
}

// Generator streams incremental reply deltas for the given history.
type Generator interface {
	Stream(ctx context.Context, system string, history []llm.Turn) (<-chan string, <-chan error)
}

// Synthesizer converts one sentence into a playable PCM stream.
type Synthesizer interface {
	Synthesize(ctx context.Context, sentence string) (<-chan []byte, <-chan error)
}

// Player plays a PCM stream and supports concurrent stop.
type Player interface {
	Play(stream <-chan []byte, interrupt player.InterruptChecker) error
	Stop()
}

// FrameSource hands out independent views of the microphone stream.
type FrameSource interface {
	Subscribe() *capture.Subscription
}

type Config struct {
	SpeechThreshold float64
	SystemPrompt    string
	WelcomeText     string
	ApologyText     string
}

// Orchestrator owns the conversation history and the turn state machine.
// The history has a single writer (the turn loop) but is read concurrently
// by the diagnostics console; the turn state is the only value shared with
// the watchdog goroutine.
type Orchestrator struct {
	cfg    Config
	state  *turnstate.State
	det    vad.Detector
	source FrameSource
	rec    Recognizer
	gen    Generator
	tts    Synthesizer
	player Player

	histMu  sync.Mutex // History() is read from the console while the turn loop appends
	history []llm.Turn
	turns   atomic.Int64

	// OnTranscript and OnTurn feed the diagnostics console; both optional.
	OnTranscript func(text string)
	OnTurn       func(user, assistantSpoken string)
}

func New(cfg Config, state *turnstate.State, det vad.Detector, source FrameSource, rec Recognizer, gen Generator, tts Synthesizer, pl Player) *Orchestrator {
	if cfg.SpeechThreshold == 0 {
		cfg.SpeechThreshold = defaultThreshold
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.WelcomeText == "" {
		cfg.WelcomeText = defaultWelcomeText
	}
	if cfg.ApologyText == "" {
		cfg.ApologyText = defaultApologyText
	}
	return &Orchestrator{
		cfg:    cfg,
		state:  state,
		det:    det,
		source: source,
		rec:    rec,
		gen:    gen,
		tts:    tts,
		player: pl,
	}
}

// Run executes the turn loop until ctx is canceled. The barge-in watchdog
// runs for the whole call and is torn down before Run returns.
func (o *Orchestrator) Run(ctx context.Context) error {
	watchdogDone := make(chan struct{})
	go func() {
		defer close(watchdogDone)
		o.watchdog(ctx)
	}()
	defer func() { <-watchdogDone }()

	o.speakStandalone(ctx, o.cfg.WelcomeText)

	for {
		log.Printf("orchestrator: waiting for user to speak")
		if err := o.state.WaitForUserSpeechStart(ctx); err != nil {
			return nil
		}
		o.state.ClearUserSpeechStart()

		transcript := o.captureTurn(ctx)
		if transcript == "" {
			continue
		}
		// a stray signal can fire while the bot is mid-utterance; never
		// start a second overlapping reply
		if o.state.IsBotSpeaking() {
			continue
		}

		// one concurrent unit per turn, started and awaited here so no
		// turn work ever outlives the loop
		turnDone := make(chan struct{})
		go func() {
			defer close(turnDone)
			o.respond(ctx, transcript)
		}()
		<-turnDone
		log.Printf("orchestrator: turn complete")
	}
}

// watchdog consumes its own view of the frame stream for the process
// lifetime. While the bot speaks, detected speech is a barge-in; while idle,
// it wakes the turn loop. Frames during active transcription fall through
// both branches so the recognizer's own silence tracking governs that window.
func (o *Orchestrator) watchdog(ctx context.Context) {
	sub := o.source.Subscribe()
	defer sub.Close()
	log.Printf("orchestrator: barge-in watchdog started")
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-sub.Frames():
			if !ok {
				return
			}
			if o.state.IsBotSpeaking() {
				if o.frameIsSpeech(frame) {
					log.Printf("orchestrator: barge-in detected, interrupting bot")
					o.state.RequestInterrupt()
					o.player.Stop()
				}
			} else if !o.state.UserSpeechStarted() {
				if o.frameIsSpeech(frame) {
					o.state.SignalUserSpeechStart()
				}
			}
		}
	}
}

func (o *Orchestrator) frameIsSpeech(frame capture.Frame) bool {
	p, err := o.det.Classify(frame)
	if err != nil {
		// fail open toward silence: a broken VAD must never interrupt
		log.Printf("orchestrator: vad error (treated as silence): %v", err)
		return false
	}
	return p > o.cfg.SpeechThreshold
}

// captureTurn transcribes one utterance; any failure reads as "no input".
func (o *Orchestrator) captureTurn(ctx context.Context) string {
	log.Printf("orchestrator: speech detected, starting transcription")
	sub := o.source.Subscribe()
	defer sub.Close()
	transcript, err := o.rec.CaptureUntilSilence(ctx, sub.Frames())
	if err != nil {
		log.Printf("orchestrator: transcription failed: %v", err)
		return ""
	}
	transcript = strings.TrimSpace(transcript)
	if transcript != "" {
		log.Printf("orchestrator: user said: %s", transcript)
		if o.OnTranscript != nil {
			o.OnTranscript(transcript)
		}
	}
	return transcript
}

// respond generates and speaks one assistant reply. Bot-speech state brackets
// the whole span, released on every path.
func (o *Orchestrator) respond(ctx context.Context, userText string) {
	o.state.StartBotSpeech()
	defer o.state.StopBotSpeech()

	// canceling the turn context abandons the delta stream and any
	// in-flight synthesis once this turn is over
	turnCtx, cancelTurn := context.WithCancel(ctx)
	defer cancelTurn()

	o.appendTurn(llm.Turn{Role: llm.RoleUser, Text: userText})

	deltas, errCh := o.gen.Stream(turnCtx, o.cfg.SystemPrompt, o.History())
	seg := segment.New()
	var spoken []string
	aborted := false

	for !aborted {
		if o.state.IsInterrupted() {
			break
		}
		delta, ok := <-deltas
		if !ok {
			break
		}
		for _, sentence := range seg.Push(delta) {
			spokeOK, playErr := o.speakSentence(turnCtx, sentence)
			if spokeOK {
				spoken = append(spoken, strings.TrimSpace(sentence))
			}
			if playErr != nil {
				// a dead output device ends this utterance, not the process
				log.Printf("orchestrator: playback failed, abandoning utterance: %v", playErr)
				aborted = true
				break
			}
		}
	}

	interrupted := o.state.IsInterrupted()
	if interrupted || aborted {
		// unblock the generator before draining its error channel
		cancelTurn()
	}
	var genErr error
	if err, ok := <-errCh; ok && err != nil && !errors.Is(err, context.Canceled) {
		genErr = err
	}

	switch {
	case interrupted || aborted:
		// a barge-in mid-thought discards the unfinished trailing text:
		// speaking half a sentence after the user already cut in is worse
		// than dropping it
		seg.Discard()
	case genErr != nil && ctx.Err() == nil:
		log.Printf("orchestrator: generation failed: %v", genErr)
		seg.Discard()
		// exactly one spoken apology, and no assistant text enters history
		if _, err := o.speakSentence(turnCtx, o.cfg.ApologyText); err != nil {
			log.Printf("orchestrator: apology playback failed: %v", err)
		}
	default:
		if tail, ok := seg.Flush(); ok {
			if spokeOK, err := o.speakSentence(turnCtx, tail); spokeOK {
				spoken = append(spoken, strings.TrimSpace(tail))
			} else if err != nil {
				log.Printf("orchestrator: playback failed on final sentence: %v", err)
			}
		}
	}

	if genErr == nil && len(spoken) > 0 {
		o.appendTurn(llm.Turn{Role: llm.RoleAssistant, Text: strings.Join(spoken, " ")})
	}
	o.turns.Add(1)
	if o.OnTurn != nil {
		o.OnTurn(userText, strings.Join(spoken, " "))
	}
}

// speakSentence synthesizes and plays one sentence. Returns whether the
// sentence was spoken to completion, and any playback device error. A
// synthesis failure is logged and skipped so later sentences still speak.
func (o *Orchestrator) speakSentence(ctx context.Context, sentence string) (bool, error) {
	if strings.TrimSpace(sentence) == "" || o.state.IsInterrupted() {
		return false, nil
	}
	log.Printf("orchestrator: speaking: %s", strings.TrimSpace(sentence))

	pcm, errCh := o.tts.Synthesize(ctx, sentence)
	playErr := o.player.Play(pcm, o.state)
	if err, ok := <-errCh; ok && err != nil {
		log.Printf("orchestrator: synthesis failed: %v", err)
		return false, playErr
	}
	if playErr != nil {
		return false, playErr
	}
	return !o.state.IsInterrupted(), nil
}

// speakStandalone wraps a fixed utterance (the welcome line) in a full
// bot-speech span so it is interruptible like any reply.
func (o *Orchestrator) speakStandalone(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	o.state.StartBotSpeech()
	defer o.state.StopBotSpeech()
	if _, err := o.speakSentence(ctx, text); err != nil {
		log.Printf("orchestrator: welcome playback failed: %v", err)
	}
}

func (o *Orchestrator) appendTurn(turn llm.Turn) {
	o.histMu.Lock()
	o.history = append(o.history, turn)
	o.histMu.Unlock()
}

// History returns a copy of the conversation so far.
func (o *Orchestrator) History() []llm.Turn {
	o.histMu.Lock()
	defer o.histMu.Unlock()
	out := make([]llm.Turn, len(o.history))
	copy(out, o.history)
	return out
}

// Turns reports how many assistant turns have completed (including
// interrupted and failed ones).
func (o *Orchestrator) Turns() int64 { return o.turns.Load() }
