package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/leanmind/plugin/ai/timeout"
)

// Profile is the configuration to start the relay server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// Driver is the session storage driver (sqlite, postgres, redis or memory)
	Driver string
	// DSN points to where the session transcripts are stored
	DSN string
	// Version is the current version of server
	Version string

	// MaxHistory is the number of messages kept per session.
	MaxHistory int
	// CompletionTimeout bounds a single completion call.
	CompletionTimeout time.Duration
	// PersistTimeout bounds each transcript write after a reply was obtained.
	PersistTimeout time.Duration
	// MaxConcurrentCompletions limits in-flight completion calls.
	MaxConcurrentCompletions int
	// RateLimit is the per-client request rate in requests per second. Zero disables it.
	RateLimit float64
	// RateBurst is the burst allowed by the per-client rate limiter.
	RateBurst int
	// SessionAPIEnabled mounts the internal session sub-interface.
	SessionAPIEnabled bool
	// SessionStoreURL points at a remote session sub-interface. Overrides Driver.
	SessionStoreURL string
	// SystemPrompt is the fixed instruction prepended to every completion request.
	SystemPrompt string

	// AI Configuration
	AIProvider            string // LEANMIND_AI_PROVIDER (default: cloudflare)
	AIModel               string // LEANMIND_AI_MODEL (default depends on provider)
	AIAPIKey              string // LEANMIND_AI_API_KEY
	AIBaseURL             string // LEANMIND_AI_BASE_URL (default depends on provider)
	AICloudflareAccountID string // LEANMIND_AI_CLOUDFLARE_ACCOUNT_ID
	AIMaxTokens           int    // LEANMIND_AI_MAX_TOKENS (default: 500)
}

const (
	// DefaultMaxHistory is the per-session transcript cap.
	DefaultMaxHistory = 20
	// DefaultAIMaxTokens caps the length of a single reply.
	DefaultAIMaxTokens = 500
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsRemoteStore reports whether transcripts live behind a remote session sub-interface.
func (p *Profile) IsRemoteStore() bool {
	return p.SessionStoreURL != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads the AI configuration from environment variables.
// Provider specific defaults are filled in for the model and base URL.
func (p *Profile) FromEnv() {
	p.AIProvider = strings.ToLower(getEnvOrDefault("LEANMIND_AI_PROVIDER", "cloudflare"))
	p.AIAPIKey = os.Getenv("LEANMIND_AI_API_KEY")
	p.AICloudflareAccountID = os.Getenv("LEANMIND_AI_CLOUDFLARE_ACCOUNT_ID")
	p.AIModel = getEnvOrDefault("LEANMIND_AI_MODEL", defaultModel(p.AIProvider))
	p.AIBaseURL = getEnvOrDefault("LEANMIND_AI_BASE_URL", defaultBaseURL(p.AIProvider, p.AICloudflareAccountID))

	p.AIMaxTokens = DefaultAIMaxTokens
	if raw := os.Getenv("LEANMIND_AI_MAX_TOKENS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.AIMaxTokens = n
		} else {
			slog.Warn("ignoring invalid LEANMIND_AI_MAX_TOKENS", slog.String("value", raw))
		}
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "cloudflare":
		return "@cf/meta/llama-3.1-8b-instruct"
	case "openai":
		return "gpt-4o-mini"
	case "deepseek":
		return "deepseek-chat"
	case "ollama":
		return "llama3.1"
	default:
		return ""
	}
}

func defaultBaseURL(provider, accountID string) string {
	switch provider {
	case "cloudflare":
		if accountID == "" {
			return ""
		}
		return fmt.Sprintf("https://api.cloudflare.com/client/v4/accounts/%s/ai/v1", accountID)
	case "openai":
		return "https://api.openai.com/v1"
	case "deepseek":
		return "https://api.deepseek.com"
	case "ollama":
		return "http://localhost:11434/v1"
	default:
		return ""
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if err := os.MkdirAll(dataDir, 0770); err != nil {
		return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
	}
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.MaxHistory <= 0 {
		p.MaxHistory = DefaultMaxHistory
	}
	if p.AIMaxTokens <= 0 {
		p.AIMaxTokens = DefaultAIMaxTokens
	}
	if p.MaxConcurrentCompletions <= 0 {
		p.MaxConcurrentCompletions = 16
	}
	if p.CompletionTimeout <= 0 {
		p.CompletionTimeout = timeout.CompletionTimeout
	}
	if p.PersistTimeout <= 0 {
		p.PersistTimeout = timeout.PersistTimeout
	}

	if p.IsRemoteStore() {
		return nil
	}

	switch p.Driver {
	case "memory":
		return nil
	case "postgres", "redis":
		if p.DSN == "" {
			return errors.Errorf("dsn is required for the %s driver", p.Driver)
		}
		return nil
	case "sqlite":
	default:
		return errors.Errorf("unknown driver %q: expected sqlite, postgres, redis or memory", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "leanmind")
		} else {
			p.Data = "/var/opt/leanmind"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.DSN == "" {
		dbFile := fmt.Sprintf("leanmind_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
