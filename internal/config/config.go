package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Editor   EditorConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	EventLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	// BusyGuard selects the in-flight request guard: "memory" or "redis".
	BusyGuard string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	OpenAI       string
	JwtSecret    string
}

type AIConfig struct {
	LLMProvider    string // "ollama", "openai" or "gemini"
	LLMModel       string
	OllamaBaseURL  string
	OpenAIBaseURL  string
	Temperature    float64
	MaxTokens      int
	RequestTimeout time.Duration
}

type EditorConfig struct {
	DriftStripRule     string
	DriftMinBaseLength int
	SessionTTL         time.Duration
	BusyTTL            time.Duration
	MaxDocumentBytes   int
	AllowedExtensions  []string
	RevisionTopic      string
	PreviewWidth       int
	DiffContextLines   int
	DiffMaxLines       int
	// NormalizeNFC rewrites loaded and saved text to Unicode NFC.
	NormalizeNFC bool
}

// TracingConfig drives the OTLP exporter. Tracing is off unless Enabled.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			EventLogFilePath:   getEnv("EVENT_LOG_FILE_PATH", "logs/editor-events.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			BusyGuard:          getEnv("BUSY_GUARD", "memory"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			JwtSecret:    getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:       getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.2),
			MaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 4096),
			RequestTimeout: getEnvAsDuration("LLM_REQUEST_TIMEOUT", 90*time.Second),
		},
		Editor: EditorConfig{
			DriftStripRule:     getEnv("EDITOR_DRIFT_STRIP_RULE", "ascii"),
			DriftMinBaseLength: getEnvAsInt("EDITOR_DRIFT_MIN_LENGTH", 4),
			SessionTTL:         getEnvAsDuration("EDITOR_SESSION_TTL", time.Hour),
			BusyTTL:            getEnvAsDuration("EDITOR_BUSY_TTL", 2*time.Minute),
			MaxDocumentBytes:   getEnvAsInt("EDITOR_MAX_DOCUMENT_BYTES", 2<<20),
			AllowedExtensions:  getEnvAsList("EDITOR_ALLOWED_EXTENSIONS", []string{".txt", ".md", ".json", ".py", ".js", ".ts", ".html", ".css"}),
			RevisionTopic:      getEnv("EDITOR_REVISION_TOPIC", "DOCUMENT_REVISIONS"),
			PreviewWidth:       getEnvAsInt("EDITOR_PREVIEW_WIDTH", 50),
			DiffContextLines:   getEnvAsInt("EDITOR_DIFF_CONTEXT_LINES", 3),
			DiffMaxLines:       getEnvAsInt("EDITOR_DIFF_MAX_LINES", 5000),
			NormalizeNFC:       getEnvAsBool("EDITOR_NORMALIZE_NFC", false),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ai-text-editor-backend"),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
