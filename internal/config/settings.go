package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings are process-level knobs read from the environment.
type Settings struct {
	ConfigPath   string `env:"MISSIONFLOW_CONFIG"`
	LogFile      string `env:"MISSIONFLOW_LOG_FILE" envDefault:"missionflow.log"`
	LogLevel     string `env:"MISSIONFLOW_LOG_LEVEL" envDefault:"info"`
	Strict       bool   `env:"MISSIONFLOW_STRICT" envDefault:"true"`
	LLMBackend   string `env:"MISSIONFLOW_LLM_BACKEND" envDefault:"ollama"`
	LLMModel     string `env:"MISSIONFLOW_LLM_MODEL"`
	OllamaHost   string `env:"OLLAMA_HOST"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
}

// LoadSettings loads any of the given dotenv files that exist, without
// overriding variables already set, then parses the environment.
func LoadSettings(dotenvFiles ...string) (Settings, error) {
	var present []string
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return Settings{}, fmt.Errorf("load dotenv: %w", err)
		}
	}

	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse environment: %w", err)
	}
	return s, nil
}
