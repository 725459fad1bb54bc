package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURLSuffix = ".us-west-2.aws.chatbees.ai"
	localBaseURL         = "localhost"
	localServiceURL      = "http://localhost:8080"

	ProviderRemote = "remote"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config carries every setting the service reads from its environment.
type Config struct {
	// Remote document service.
	ServiceBaseURL        string
	AccountID             string
	APIKey                string
	LocalDevRoutingHeader bool
	Collection            string
	Language              string
	HTTPTimeout           time.Duration

	// Upload directory and the URL prefix it is served under.
	UploadDir        string
	PublicPrefix     string
	MaxUploadBytes   int64
	CleanupOnFailure bool

	FFprobePath string
	FFmpegPath  string

	TranscribeProvider string
	OpenAIKey          string
	OpenAIBaseURL      string
	OpenAIModel        string

	QueryCacheSize int
	QueryCacheTTL  time.Duration

	Port string
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can supply a map.
func FromEnv(getenv func(string) string) (Config, error) {
	env := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		AccountID:          env("CHATBEES_ACCOUNT_ID", ""),
		APIKey:             env("CHATBEES_API_KEY", ""),
		Collection:         env("CHATBEES_COLLECTION", ""),
		Language:           env("TRANSCRIBE_LANG", "en"),
		UploadDir:          env("UPLOAD_DIR", "./public/uploads"),
		PublicPrefix:       strings.TrimRight(env("PUBLIC_PREFIX", "/uploads"), "/"),
		FFprobePath:        env("FFPROBE_PATH", "ffprobe"),
		FFmpegPath:         env("FFMPEG_PATH", "ffmpeg"),
		TranscribeProvider: strings.ToLower(env("TRANSCRIBE_PROVIDER", ProviderRemote)),
		OpenAIKey:          env("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      env("OPENAI_BASE_URL", ""),
		OpenAIModel:        env("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
		Port:               env("PORT", "8080"),
	}
	if env("USE_MOCK_TRANSCRIBE", "") == "true" {
		cfg.TranscribeProvider = ProviderMock
	}

	var err error
	if cfg.MaxUploadBytes, err = parseInt(env("MAX_UPLOAD_MB", "512")); err != nil {
		return Config{}, fmt.Errorf("MAX_UPLOAD_MB: %w", err)
	}
	cfg.MaxUploadBytes <<= 20
	if cfg.CleanupOnFailure, err = strconv.ParseBool(env("CLEANUP_ON_FAILURE", "false")); err != nil {
		return Config{}, fmt.Errorf("CLEANUP_ON_FAILURE: %w", err)
	}
	if cfg.HTTPTimeout, err = time.ParseDuration(env("CHATBEES_TIMEOUT", "5m")); err != nil {
		return Config{}, fmt.Errorf("CHATBEES_TIMEOUT: %w", err)
	}
	size, err := parseInt(env("QUERY_CACHE_SIZE", "256"))
	if err != nil {
		return Config{}, fmt.Errorf("QUERY_CACHE_SIZE: %w", err)
	}
	cfg.QueryCacheSize = int(size)
	if cfg.QueryCacheTTL, err = time.ParseDuration(env("QUERY_CACHE_TTL", "10m")); err != nil {
		return Config{}, fmt.Errorf("QUERY_CACHE_TTL: %w", err)
	}

	suffix := env("CHATBEES_BASEURL", DefaultBaseURLSuffix)
	cfg.ServiceBaseURL = env("CHATBEES_SERVICE_URL", "")
	if cfg.ServiceBaseURL == "" {
		cfg.ServiceBaseURL = ServiceURL(cfg.AccountID, suffix)
	}
	cfg.ServiceBaseURL = strings.TrimRight(cfg.ServiceBaseURL, "/")
	routing := env("CHATBEES_ROUTING_HEADER", "")
	if routing != "" {
		if cfg.LocalDevRoutingHeader, err = strconv.ParseBool(routing); err != nil {
			return Config{}, fmt.Errorf("CHATBEES_ROUTING_HEADER: %w", err)
		}
	} else {
		cfg.LocalDevRoutingHeader = suffix == localBaseURL
	}

	return cfg, cfg.Validate()
}

// ServiceURL derives the account scoped service URL. The "localhost" suffix
// points at a locally running service instead.
func ServiceURL(accountID, suffix string) string {
	if suffix == localBaseURL {
		return localServiceURL
	}
	return "https://" + accountID + suffix
}

func (c Config) Validate() error {
	var errs []error
	if c.TranscribeProvider != ProviderRemote && c.TranscribeProvider != ProviderOpenAI && c.TranscribeProvider != ProviderMock {
		errs = append(errs, fmt.Errorf("unknown TRANSCRIBE_PROVIDER %q", c.TranscribeProvider))
	}
	if c.AccountID == "" {
		errs = append(errs, errors.New("CHATBEES_ACCOUNT_ID not set"))
	}
	if c.APIKey == "" {
		errs = append(errs, errors.New("CHATBEES_API_KEY not set"))
	}
	if c.Collection == "" {
		errs = append(errs, errors.New("CHATBEES_COLLECTION not set"))
	}
	if c.TranscribeProvider == ProviderOpenAI && c.OpenAIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY required for openai transcription"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	return errors.Join(errs...)
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
