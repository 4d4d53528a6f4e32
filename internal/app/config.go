package app

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/utils"
)

type Config struct {
	Port string

	// Chat budgets, measured in characters.
	HistoryMaxMessages int
	HistoryMaxChars    int
	ContextMaxChars    int

	// Provider call tuning.
	RequestTimeout time.Duration
	MaxRetries     int
	Temperature    float64
	MaxTokens      int

	// Chunker tuning, in approximate tokens.
	ChunkTokens   int
	OverlapTokens int

	// CardsDir holds the bundled official character cards.
	CardsDir string
}

// configFile is the optional YAML overlay (CONFIG_FILE env var). Env vars
// fill anything the file leaves at zero.
type configFile struct {
	Port               string  `yaml:"port"`
	HistoryMaxMessages int     `yaml:"history_max_messages"`
	HistoryMaxChars    int     `yaml:"history_max_chars"`
	ContextMaxChars    int     `yaml:"context_max_chars"`
	RequestTimeoutSecs int     `yaml:"request_timeout_seconds"`
	MaxRetries         int     `yaml:"max_retries"`
	Temperature        float64 `yaml:"temperature"`
	MaxTokens          int     `yaml:"max_tokens"`
	ChunkTokens        int     `yaml:"chunk_tokens"`
	OverlapTokens      int     `yaml:"overlap_tokens"`
	CardsDir           string  `yaml:"cards_dir"`
}

func LoadConfig(log *logger.Logger) Config {
	var file configFile
	if path := utils.GetEnv("CONFIG_FILE", "", log); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Config file unreadable, falling back to env", "path", path, "error", err.Error())
		} else if err := yaml.Unmarshal(raw, &file); err != nil {
			log.Warn("Config file malformed, falling back to env", "path", path, "error", err.Error())
			file = configFile{}
		}
	}

	pick := func(fromFile int, env string, def int) int {
		if fromFile > 0 {
			return fromFile
		}
		return utils.GetEnvAsInt(env, def, log)
	}

	port := file.Port
	if port == "" {
		port = utils.GetEnv("PORT", "8000", log)
	}
	temperature := file.Temperature
	if temperature <= 0 {
		temperature = utils.GetEnvAsFloat("CHAT_TEMPERATURE", 0.8, log)
	}
	cardsDir := file.CardsDir
	if cardsDir == "" {
		cardsDir = utils.GetEnv("CHARACTER_CARDS_DIR", "character_cards", log)
	}

	return Config{
		Port:               port,
		HistoryMaxMessages: pick(file.HistoryMaxMessages, "CHAT_HISTORY_MAX_MESSAGES", 20),
		HistoryMaxChars:    pick(file.HistoryMaxChars, "CHAT_HISTORY_MAX_CHARS", 8000),
		ContextMaxChars:    pick(file.ContextMaxChars, "CHAT_CONTEXT_MAX_CHARS", 16000),
		RequestTimeout:     time.Duration(pick(file.RequestTimeoutSecs, "PROVIDER_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxRetries:         pick(file.MaxRetries, "PROVIDER_MAX_RETRIES", 2),
		Temperature:        temperature,
		MaxTokens:          pick(file.MaxTokens, "CHAT_MAX_TOKENS", 0),
		ChunkTokens:        pick(file.ChunkTokens, "CHUNK_TOKENS", 500),
		OverlapTokens:      pick(file.OverlapTokens, "CHUNK_OVERLAP_TOKENS", 100),
		CardsDir:           cardsDir,
	}
}
