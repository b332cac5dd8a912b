package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/Aakashjammula/audio-agent/internal/capture"
	"github.com/Aakashjammula/audio-agent/internal/config"
	"github.com/Aakashjammula/audio-agent/internal/console"
	"github.com/Aakashjammula/audio-agent/internal/llm"
	"github.com/Aakashjammula/audio-agent/internal/orchestrator"
	"github.com/Aakashjammula/audio-agent/internal/player"
	"github.com/Aakashjammula/audio-agent/internal/transcript"
	"github.com/Aakashjammula/audio-agent/internal/tts"
	"github.com/Aakashjammula/audio-agent/internal/turnstate"
	"github.com/Aakashjammula/audio-agent/internal/vad"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	fmt.Println("V Assist - voice assistant")
	fmt.Printf("audio: %d Hz mono, %d-sample frames | vad threshold: %g | silence window: %gs\n",
		cfg.SampleRate, cfg.FrameSize, cfg.VADThreshold, cfg.SilenceSeconds)
	fmt.Println("speak to begin; speak over the assistant to interrupt it; Ctrl+C to quit")

	if err := portaudio.Initialize(); err != nil {
		log.Fatalf("portaudio init failed: %v", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	var det vad.Detector
	if cfg.SileroModelPath != "" {
		silero, err := vad.NewSileroDetector(cfg.SileroModelPath, cfg.SampleRate, cfg.VADThreshold)
		if err != nil {
			log.Fatalf("silero model load failed (%s): %v", cfg.SileroModelPath, err)
		}
		defer silero.Close()
		det = silero
		log.Printf("vad: silero model %s", cfg.SileroModelPath)
	} else {
		det = vad.NewEnergyDetector()
		log.Printf("vad: energy detector (set SILERO_MODEL_PATH for model-based detection)")
	}

	source, err := capture.NewSource(cfg.SampleRate, cfg.FrameSize)
	if err != nil {
		log.Fatalf("microphone open failed: %v", err)
	}
	defer func() { _ = source.Close() }()
	if err := source.Start(); err != nil {
		log.Fatalf("microphone start failed: %v", err)
	}

	state := turnstate.New()
	pl := player.New(cfg.SampleRate, cfg.FrameSize, player.PortAudioOpener)
	rec := transcript.NewRecognizer(transcript.Config{
		APIKey:          cfg.AssemblyAIKey,
		SampleRate:      cfg.SampleRate,
		FrameSize:       cfg.FrameSize,
		SilenceDuration: time.Duration(cfg.SilenceSeconds * float64(time.Second)),
		SpeechThreshold: cfg.VADThreshold,
	}, det)
	gen := llm.NewCerebrasClient(cfg.CerebrasKey, cfg.CerebrasModelID)
	synth := tts.NewSynthesizer(cfg.DeepgramKey, cfg.DeepgramVoice, cfg.SampleRate)

	orch := orchestrator.New(orchestrator.Config{SpeechThreshold: cfg.VADThreshold},
		state, det, source, rec, gen, synth, pl)

	var con *console.Server
	if cfg.ConsoleAddress != "" {
		con = console.New(func() console.Snapshot {
			return console.Snapshot{
				BotSpeaking: state.IsBotSpeaking(),
				Turns:       orch.Turns(),
				History:     orch.History(),
			}
		})
		orch.OnTranscript = func(text string) {
			con.Broadcast(console.Event{Kind: "transcript", User: text})
		}
		orch.OnTurn = func(user, bot string) {
			con.Broadcast(console.Event{Kind: "turn", User: user, Bot: bot})
		}
		go func() {
			log.Printf("console listening on %s", cfg.ConsoleAddress)
			if err := con.Start(cfg.ConsoleAddress); err != nil {
				log.Printf("console server error: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orch.Run(ctx); err != nil {
		log.Printf("assistant stopped with error: %v", err)
	}
	log.Printf("shutting down")

	if con != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := con.Shutdown(shutdownCtx); err != nil {
			log.Printf("console shutdown failed: %v", err)
		}
	}
}
