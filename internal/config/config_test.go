package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	os.Setenv("SAMPLE_RATE", "")
	os.Setenv("FRAME_SIZE", "")
	os.Setenv("VAD_THRESHOLD", "")
	os.Setenv("SILENCE_SEC", "")
	os.Setenv("CEREBRAS_MODEL_ID", "")
	os.Setenv("DEEPGRAM_VOICE", "")
	os.Unsetenv("CONSOLE_ADDRESS")
	cfg := Load()
	if cfg.SampleRate != 16000 {
		t.Fatalf("expected default sample rate, got %d", cfg.SampleRate)
	}
	if cfg.FrameSize != 512 {
		t.Fatalf("expected default frame size, got %d", cfg.FrameSize)
	}
	if cfg.VADThreshold != 0.5 {
		t.Fatalf("expected default threshold, got %g", cfg.VADThreshold)
	}
	if cfg.SilenceSeconds != 1.5 {
		t.Fatalf("expected default silence window, got %g", cfg.SilenceSeconds)
	}
	if cfg.CerebrasModelID == "" {
		t.Fatalf("expected default cerebras model id")
	}
	if cfg.DeepgramVoice == "" {
		t.Fatalf("expected default deepgram voice")
	}
	if cfg.ConsoleAddress == "" {
		t.Fatalf("expected default console address")
	}
}

func TestLoad_EmptyConsoleAddressDisables(t *testing.T) {
	os.Setenv("CONSOLE_ADDRESS", "")
	defer os.Unsetenv("CONSOLE_ADDRESS")
	cfg := Load()
	if cfg.ConsoleAddress != "" {
		t.Fatalf("expected console disabled, got %q", cfg.ConsoleAddress)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	os.Setenv("SAMPLE_RATE", "not-a-number")
	os.Setenv("VAD_THRESHOLD", "-3")
	defer os.Unsetenv("SAMPLE_RATE")
	defer os.Unsetenv("VAD_THRESHOLD")
	cfg := Load()
	if cfg.SampleRate != 16000 {
		t.Fatalf("expected fallback sample rate, got %d", cfg.SampleRate)
	}
	if cfg.VADThreshold != 0.5 {
		t.Fatalf("expected fallback threshold, got %g", cfg.VADThreshold)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("SAMPLE_RATE", "8000")
	os.Setenv("FRAME_SIZE", "256")
	os.Setenv("SILENCE_SEC", "2.0")
	defer os.Unsetenv("SAMPLE_RATE")
	defer os.Unsetenv("FRAME_SIZE")
	defer os.Unsetenv("SILENCE_SEC")
	cfg := Load()
	if cfg.SampleRate != 8000 || cfg.FrameSize != 256 || cfg.SilenceSeconds != 2.0 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}
