// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/richinex/redline/llm"
)

// Configuration errors.
var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrInvalidValue    = errors.New("invalid configuration value")
	ErrNoAPIKey        = errors.New("api key not set")
)

// Settings holds all application configuration.
type Settings struct {
	LLM       LLMConfig
	Agent     AgentConfig
	Workspace WorkspaceConfig
	Storage   StorageConfig
	Log       LogConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64
}

// AgentConfig holds agent session configuration.
type AgentConfig struct {
	MaxIterations int
	// HistoryTokens is the prompt budget the history is trimmed to.
	HistoryTokens int
	// CommandTimeout bounds execute_command and search_files.
	CommandTimeout  time.Duration
	AutoApprove     bool
	AllowedCommands []string
}

// WorkspaceConfig holds file editing configuration.
type WorkspaceConfig struct {
	Root        string
	SettleDelay time.Duration
	MaxFileSize int
	// LintCommand runs after each save; "{file}" is replaced by the path.
	LintCommand string
	Editor      string
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	// Path of the SQLite database. Empty disables persistence.
	Path   string
	Driver string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
	// File receives logs when set, otherwise stderr.
	File string
}

// DefaultProvider is used when neither the caller nor LLM_PROVIDER names one.
const DefaultProvider = "anthropic"

// New creates settings for the specified provider, loading values from
// environment variables. An empty provider falls back to LLM_PROVIDER.
// Returns an error if the provider is unknown or environment variables
// contain invalid values.
func New(provider string) (Settings, error) {
	if provider == "" {
		provider = getEnv("LLM_PROVIDER", DefaultProvider)
	}
	provider = normalizeProvider(provider)

	pt, err := providerType(provider)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	p := parser{}

	s.LLM = LLMConfig{
		Provider:    provider,
		Model:       getEnv(pt.ModelEnvVar(), pt.DefaultModel()),
		MaxTokens:   p.uint32("LLM_MAX_TOKENS", llm.DefaultMaxTokens),
		Temperature: p.float64("LLM_TEMPERATURE", float64(llm.DefaultTemperature)),
	}

	s.Agent = AgentConfig{
		MaxIterations:   p.int("AGENT_MAX_ITERATIONS", 25),
		HistoryTokens:   p.int("AGENT_HISTORY_TOKENS", 100_000),
		CommandTimeout:  p.duration("AGENT_COMMAND_TIMEOUT", 30*time.Second),
		AutoApprove:     p.bool("REDLINE_AUTO_APPROVE", false),
		AllowedCommands: getEnvList("REDLINE_ALLOWED_COMMANDS"),
	}

	root := os.Getenv("REDLINE_ROOT")
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return Settings{}, fmt.Errorf("config: working directory: %w", err)
		}
	}
	s.Workspace = WorkspaceConfig{
		Root:        root,
		SettleDelay: p.duration("REDLINE_SETTLE_DELAY", 300*time.Millisecond),
		MaxFileSize: p.int("REDLINE_MAX_FILE_SIZE", 1024*1024),
		LintCommand: os.Getenv("REDLINE_LINT_COMMAND"),
		Editor:      getEnv("REDLINE_EDITOR", os.Getenv("EDITOR")),
	}

	s.Storage = StorageConfig{
		Path:   getEnv("REDLINE_DB", defaultDBPath()),
		Driver: getEnv("REDLINE_DB_DRIVER", "sqlite"),
	}

	s.Log = LogConfig{
		Level:  getEnv("REDLINE_LOG_LEVEL", "info"),
		Format: getEnv("REDLINE_LOG_FORMAT", "text"),
		File:   os.Getenv("REDLINE_LOG_FILE"),
	}

	if p.err != nil {
		return Settings{}, p.err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Validate checks value ranges and enumerations.
func (s Settings) Validate() error {
	if s.Agent.MaxIterations < 1 {
		return fmt.Errorf("%w: AGENT_MAX_ITERATIONS must be at least 1", ErrInvalidValue)
	}
	if s.Agent.HistoryTokens < 0 {
		return fmt.Errorf("%w: AGENT_HISTORY_TOKENS must not be negative", ErrInvalidValue)
	}
	if s.Workspace.SettleDelay < 0 {
		return fmt.Errorf("%w: REDLINE_SETTLE_DELAY must not be negative", ErrInvalidValue)
	}
	switch s.Storage.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("%w: REDLINE_DB_DRIVER must be \"sqlite\" or \"sqlite3\"", ErrInvalidValue)
	}
	switch strings.ToLower(s.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: REDLINE_LOG_FORMAT must be \"text\" or \"json\"", ErrInvalidValue)
	}
	return nil
}

// NewProvider builds the configured LLM provider, reading its API key from
// the environment.
func (s Settings) NewProvider() (llm.Provider, error) {
	pt, err := providerType(s.LLM.Provider)
	if err != nil {
		return nil, err
	}
	key, err := APIKeyFor(s.LLM.Provider)
	if err != nil {
		return nil, err
	}
	return llm.NewProviderBuilder(pt).
		Model(s.LLM.Model).
		MaxTokens(s.LLM.MaxTokens).
		Temperature(float32(s.LLM.Temperature)).
		APIKey(key)
}

// normalizeProvider converts provider aliases to canonical names. Unknown
// names are returned lowercased.
func normalizeProvider(provider string) string {
	if pt, err := llm.ParseProviderType(provider); err == nil {
		return pt.String()
	}
	return strings.ToLower(strings.TrimSpace(provider))
}

func providerType(provider string) (llm.ProviderType, error) {
	pt, err := llm.ParseProviderType(provider)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return pt, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	pt, err := providerType(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(pt.EnvVar())
	if key == "" {
		return "", fmt.Errorf("%w: %s environment variable not set", ErrNoAPIKey, pt.EnvVar())
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	pt, err := providerType(provider)
	if err != nil {
		return "", err
	}
	return getEnv(pt.ModelEnvVar(), pt.DefaultModel()), nil
}

// SupportedProviders returns the supported provider names in lexical order.
func SupportedProviders() []string {
	result := make([]string, 0, len(llm.ProviderTypes))
	for _, pt := range llm.ProviderTypes {
		result = append(result, pt.String())
	}
	sort.Strings(result)
	return result
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".redline", "redline.db")
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser keeps the first parse error so New can read every variable in
// sequence.
type parser struct {
	err error
}

func (p *parser) fail(key, val string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, val, err)
	}
}

func (p *parser) int(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val, err)
		return defaultVal
	}
	return i
}

func (p *parser) uint32(key string, defaultVal uint32) uint32 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		p.fail(key, val, err)
		return defaultVal
	}
	return uint32(i)
}

func (p *parser) float64(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.fail(key, val, err)
		return defaultVal
	}
	return f
}

func (p *parser) bool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		p.fail(key, val, err)
		return defaultVal
	}
	return b
}

// duration accepts Go durations ("300ms") or plain milliseconds ("300").
func (p *parser) duration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		p.fail(key, val, err)
		return defaultVal
	}
	return d
}
