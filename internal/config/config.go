package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AssemblyAIKey   string
	CerebrasKey     string
	CerebrasModelID string
	DeepgramKey     string
	DeepgramVoice   string

	SampleRate     int
	FrameSize      int
	VADThreshold   float64
	SilenceSeconds float64

	SileroModelPath string
	ConsoleAddress  string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	assemblyAIKey := os.Getenv("ASSEMBLYAI_API_KEY")
	if assemblyAIKey == "" {
		log.Println("Warning: ASSEMBLYAI_API_KEY not set - transcription will not work")
	}

	cerebrasKey := os.Getenv("CEREBRAS_API_KEY")
	if cerebrasKey == "" {
		log.Println("Warning: CEREBRAS_API_KEY not set - LLM will not work")
	}
	cerebrasModel := getEnv("CEREBRAS_MODEL_ID", "gpt-oss-120b")

	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if deepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set - TTS will not work")
	}
	deepgramVoice := getEnv("DEEPGRAM_VOICE", "aura-2-thalia-en")

	sileroPath := os.Getenv("SILERO_MODEL_PATH")
	if sileroPath == "" {
		log.Println("SILERO_MODEL_PATH not set - falling back to energy-based speech detection")
	}

	// setting CONSOLE_ADDRESS to an empty string disables the console
	consoleAddr := ":8080"
	if v, ok := os.LookupEnv("CONSOLE_ADDRESS"); ok {
		consoleAddr = v
	}
	if consoleAddr == "" {
		log.Println("config: CONSOLE_ADDRESS empty - diagnostics console disabled")
	} else {
		log.Printf("config: CONSOLE_ADDRESS=%s", consoleAddr)
	}

	return Config{
		AssemblyAIKey:   assemblyAIKey,
		CerebrasKey:     cerebrasKey,
		CerebrasModelID: cerebrasModel,
		DeepgramKey:     deepgramKey,
		DeepgramVoice:   deepgramVoice,
		SampleRate:      getEnvInt("SAMPLE_RATE", 16000),
		FrameSize:       getEnvInt("FRAME_SIZE", 512),
		VADThreshold:    getEnvFloat("VAD_THRESHOLD", 0.5),
		SilenceSeconds:  getEnvFloat("SILENCE_SEC", 1.5),
		SileroModelPath: sileroPath,
		ConsoleAddress:  consoleAddr,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("config: invalid %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		log.Printf("config: invalid %s=%q, using %g", key, raw, defaultValue)
		return defaultValue
	}
	return v
}
