package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/your-org/fluxpost/internal/logging"
	"github.com/your-org/fluxpost/internal/trace"
	"github.com/your-org/fluxpost/pkg/adapters"
)

// Config is the process-wide configuration. It is read once at startup and
// passed explicitly to every client.
type Config struct {
	Gemini      adapters.Settings
	Cohere      adapters.Settings
	HuggingFace adapters.Settings
	// EndpointBase switches the chain to remote /api/ai/{provider}/generate endpoints.
	EndpointBase string
	// EndpointToken is sent as a bearer token to guarded remote endpoints.
	EndpointToken string

	Threads      ThreadsConfig
	Facebook     FacebookConfig
	Outreach     OutreachConfig
	Server       ServerConfig
	Log          logging.Options
	Metrics      MetricsConfig
	Trace        trace.Options
	AuditLogPath string
	// SessionFile keeps the outreach bearer token between CLI runs.
	SessionFile  string
	Coordination CoordinationConfig
}

type ThreadsConfig struct {
	UserID  string
	BaseURL string
}

type FacebookConfig struct {
	AppID     string
	AppSecret string
	GraphURL  string
}

type OutreachConfig struct {
	APIBase        string
	AutomationBase string
}

type ServerConfig struct {
	Addr      string
	JWTSecret string
	TLS       TLSConfig
}

type TLSConfig struct {
	Enabled           bool
	CertFile          string
	KeyFile           string
	CAFile            string
	RequireClientCert bool
}

type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// CoordinationConfig selects the publish lease backend: memory, file or redis.
type CoordinationConfig struct {
	Mode        string
	Dir         string
	RedisURL    string
	RedisPrefix string
	TTL         time.Duration
}

// Load reads .env (if present), the environment, and the optional YAML
// provider overrides named by FLUXPOST_CONFIG.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := FromEnv()
	if path := strings.TrimSpace(os.Getenv("FLUXPOST_CONFIG")); path != "" {
		ov, err := LoadOverrides(path)
		if err != nil {
			return Config{}, err
		}
		ov.Apply(&cfg)
	}
	return cfg, nil
}

// FromEnv loads configuration from the environment with safe defaults.
func FromEnv() Config {
	return Config{
		Gemini:        adapters.Settings{APIKey: os.Getenv("GEMINI_API_KEY")},
		Cohere:        adapters.Settings{APIKey: os.Getenv("COHERE_API_KEY")},
		HuggingFace:   adapters.Settings{APIKey: os.Getenv("HUGGINGFACE_API_KEY")},
		EndpointBase:  strings.TrimRight(strings.TrimSpace(os.Getenv("AI_ENDPOINT_BASE")), "/"),
		EndpointToken: strings.TrimSpace(os.Getenv("AI_ENDPOINT_TOKEN")),
		Threads: ThreadsConfig{
			UserID:  os.Getenv("THREADS_USER_ID"),
			BaseURL: os.Getenv("THREADS_GRAPH_URL"),
		},
		Facebook: FacebookConfig{
			AppID:     os.Getenv("FACEBOOK_APP_ID"),
			AppSecret: os.Getenv("FACEBOOK_APP_SECRET"),
			GraphURL:  os.Getenv("FACEBOOK_GRAPH_URL"),
		},
		Outreach: OutreachConfig{
			APIBase:        getEnv("API_BASE_URL", "http://localhost:8090"),
			AutomationBase: getEnv("EMAIL_AUTOMATION_API", "http://localhost:8000"),
		},
		Server: ServerConfig{
			Addr:      getEnv("SERVER_ADDR", ":8080"),
			JWTSecret: os.Getenv("JWT_SECRET"),
			TLS: TLSConfig{
				Enabled:           envBool("SERVER_TLS_ENABLED"),
				CertFile:          os.Getenv("SERVER_TLS_CERT_FILE"),
				KeyFile:           os.Getenv("SERVER_TLS_KEY_FILE"),
				CAFile:            os.Getenv("SERVER_TLS_CA_FILE"),
				RequireClientCert: envBool("SERVER_TLS_REQUIRE_CLIENT_CERT"),
			},
		},
		Log: logging.Options{
			Level:   getEnv("LOG_LEVEL", "info"),
			Format:  getEnv("LOG_FORMAT", "json"),
			File:    os.Getenv("LOG_FILE"),
			Console: envBool("LOG_CONSOLE"),
		},
		Metrics: MetricsConfig{
			Enabled: envBool("METRICS_ENABLED"),
			Addr:    getEnv("METRICS_ADDR", ":2112"),
		},
		Trace: trace.Options{
			Enabled:  envBool("TRACE_ENABLED"),
			Endpoint: strings.TrimSpace(os.Getenv("TRACE_ENDPOINT")),
			Insecure: envBoolDefault("TRACE_INSECURE", true),
		},
		AuditLogPath: strings.TrimSpace(os.Getenv("AUDIT_LOG_PATH")),
		SessionFile:  getEnv("FLUXPOST_SESSION_FILE", defaultSessionFile()),
		Coordination: CoordinationConfig{
			Mode:        strings.ToLower(getEnv("COORDINATION_MODE", "memory")),
			Dir:         os.Getenv("COORDINATION_DIR"),
			RedisURL:    strings.TrimSpace(os.Getenv("COORDINATION_REDIS_URL")),
			RedisPrefix: strings.TrimSpace(os.Getenv("COORDINATION_REDIS_PREFIX")),
			TTL:         getEnvDuration("COORDINATION_TTL", 2*time.Minute),
		},
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fluxpost", "session")
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err == nil {
		return v
	}
	s := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return s == "yes" || s == "on"
}

func envBoolDefault(key string, def bool) bool {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return def
	}
	return envBool(key)
}
