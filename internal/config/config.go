package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/studybuddy/studybuddy/internal/study"
)

// Provider names accepted in configuration.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderScripted = "scripted"
)

const (
	defaultOpenAIBase  = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultServeAddr   = ":8080"
)

var (
	// ErrCredentialMissing is returned when the selected provider has no key.
	ErrCredentialMissing = errors.New("api credential missing")
	// ErrConfigInvalid is returned when a field holds an unusable value.
	ErrConfigInvalid = errors.New("config invalid")
)

// Config is the merged result of config files, .env, environment and flags.
type Config struct {
	// Provider selects the backend: gemini, openai or scripted.
	Provider string `toml:"provider"`
	// Model is the provider model identifier or an alias. Empty selects the
	// provider default.
	Model string `toml:"model"`
	// ModelAliases maps friendly names to provider model ids.
	ModelAliases map[string]string `toml:"model_aliases"`
	// APIKey authenticates against the provider.
	APIKey string `toml:"api_key"`
	// APIBaseURL is the OpenAI-compatible gateway root.
	APIBaseURL string `toml:"api_base_url"`
	// TimeoutMS bounds the wait for response headers in milliseconds. Zero
	// disables it. Streamed bodies are never cut off.
	TimeoutMS int `toml:"timeout_ms"`
	// DefaultMode is the mode selected at start.
	DefaultMode string `toml:"default_mode"`
	// LogFile receives JSON logs when set.
	LogFile string `toml:"log_file"`
	// Vertex switches Gemini to Vertex AI when Project is set.
	Vertex VertexConfig `toml:"vertex"`
	// Serve configures the HTTP API.
	Serve ServeConfig `toml:"serve"`
}

// VertexConfig selects a Google Cloud project for Gemini.
type VertexConfig struct {
	// Project is the Google Cloud project id.
	Project string `toml:"project"`
	// Location is the Vertex AI region.
	Location string `toml:"location"`
}

// ServeConfig configures the HTTP API.
type ServeConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider:     ProviderGemini,
		ModelAliases: map[string]string{},
		DefaultMode:  string(study.DefaultMode),
		Serve:        ServeConfig{Addr: defaultServeAddr},
	}
}

// UserConfigPath returns ~/.studybuddy/config.toml.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".studybuddy", "config.toml"), nil
}

// Paths returns the config files read in order; later files win.
func Paths(cwd string) ([]string, error) {
	userPath, err := UserConfigPath()
	if err != nil {
		return nil, err
	}
	return []string{userPath, filepath.Join(cwd, ".studybuddy.toml")}, nil
}

// LoadOptions control Load.
type LoadOptions struct {
	// Dir is the working directory holding .env and .studybuddy.toml.
	Dir string
	// File is an explicit config file; it must exist when set.
	File string
	// Provider overrides the configured provider before credentials resolve.
	Provider string
	// Getenv reads the environment; nil uses os.Getenv.
	Getenv func(string) string
}

// Load merges defaults, config files, .env and the environment. It does not
// validate; call Validate after applying flags.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	paths := []string{opts.File}
	if opts.File == "" {
		var err error
		paths, err = Paths(opts.Dir)
		if err != nil {
			return nil, err
		}
	}
	for _, path := range paths {
		if err := LoadTOML(cfg, path); err != nil {
			if errors.Is(err, os.ErrNotExist) && opts.File == "" {
				continue
			}
			return nil, err
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(filepath.Join(opts.Dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	if opts.Provider != "" {
		cfg.Provider = opts.Provider
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.ResolveCredential(getenv)
	return cfg, nil
}

// LoadTOML decodes path over cfg; keys absent from the file keep their value.
func LoadTOML(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays STUDYBUDDY_* and Google Cloud variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if value := getenv("STUDYBUDDY_PROVIDER"); value != "" {
		c.Provider = value
	}
	if value := getenv("STUDYBUDDY_MODEL"); value != "" {
		c.Model = value
	}
	if value := getenv("STUDYBUDDY_MODE"); value != "" {
		c.DefaultMode = value
	}
	if value := getenv("STUDYBUDDY_API_BASE_URL"); value != "" {
		c.APIBaseURL = value
	}
	if value := getenv("STUDYBUDDY_LOG_FILE"); value != "" {
		c.LogFile = value
	}
	if value := getenv("STUDYBUDDY_ADDR"); value != "" {
		c.Serve.Addr = value
	}
	if value := getenv("STUDYBUDDY_TIMEOUT_MS"); value != "" {
		timeout, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: STUDYBUDDY_TIMEOUT_MS: %v", ErrConfigInvalid, err)
		}
		c.TimeoutMS = timeout
	}
	if value := getenv("GOOGLE_CLOUD_PROJECT"); value != "" {
		c.Vertex.Project = value
	}
	if value := getenv("GOOGLE_CLOUD_LOCATION"); value != "" {
		c.Vertex.Location = value
	}
	return nil
}

// ResolveCredential takes the first non-empty key variable of the provider.
func (c *Config) ResolveCredential(getenv func(string) string) {
	for _, name := range credentialVariables(c.Provider) {
		if value := getenv(name); value != "" {
			c.APIKey = value
			return
		}
	}
}

// credentialVariables lists key variables for provider in priority order.
func credentialVariables(provider string) []string {
	switch provider {
	case ProviderOpenAI:
		return []string{"OPENAI_API_KEY", "API_KEY"}
	case ProviderGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"}
	}
	return nil
}

// Validate normalizes fields and checks the credential.
func (c *Config) Validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderGemini:
		if c.APIKey == "" && c.Vertex.Project == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY or vertex.project", ErrCredentialMissing)
		}
		if c.Vertex.Project != "" && c.Vertex.Location == "" {
			c.Vertex.Location = "us-central1"
		}
	case ProviderOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY", ErrCredentialMissing)
		}
		if c.APIBaseURL == "" {
			c.APIBaseURL = defaultOpenAIBase
		}
	case ProviderScripted:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrConfigInvalid, c.Provider)
	}

	mode, err := study.ParseMode(c.DefaultMode)
	if err != nil {
		return fmt.Errorf("%w: default_mode: %v", ErrConfigInvalid, err)
	}
	c.DefaultMode = string(mode)

	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("%w: timeout_ms must not be negative", ErrConfigInvalid)
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = defaultServeAddr
	}
	return nil
}

// DefaultModel returns the model used when none is configured for provider.
func DefaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return defaultOpenAIModel
	}
	return study.DefaultModel
}

// Mode returns the configured starting mode, or the default when invalid.
func (c *Config) Mode() study.Mode {
	mode, err := study.ParseMode(c.DefaultMode)
	if err != nil {
		return study.DefaultMode
	}
	return mode
}

// Timeout returns TimeoutMS as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ResolveModel returns the model to use; the CLI value wins over the config.
func (c *Config) ResolveModel(cliModel string) string {
	name := c.Model
	if cliModel != "" {
		name = cliModel
	}
	if aliased, ok := c.ModelAliases[name]; ok {
		return aliased
	}
	return name
}
