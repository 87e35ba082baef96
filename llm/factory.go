// Provider construction for sessions.
//
// Every backend here is used as a plain text stream: commands travel inside
// the reply, so providers take no tool schemas or response formats. The
// table below is the single list of backends; config reads key and model
// variables from it.
//
//	p, err := llm.ProviderAnthropic.FromEnv()
//	p, err := llm.ProviderOpenAI.Model(llm.ModelOpenAIGPT4o).MaxTokens(16384).APIKey(key)

package llm

import (
	"fmt"
	"os"
	"strings"
)

// Defaults for edit sessions. A write_to_file reply carries a whole file,
// and search blocks must reproduce the file verbatim.
const (
	DefaultMaxTokens   uint32  = 8192
	DefaultTemperature float32 = 0
)

// Model identifiers.
const (
	ModelOpenAIGPT4o  = "gpt-4o"
	ModelOpenAIGPT41  = "gpt-4.1"
	ModelOpenAIO3Mini = "o3-mini"

	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelAnthropicClaudeOpus45  = "claude-opus-4-5-20251101"

	ModelDeepSeekChat = "deepseek-chat"

	ModelGeminiFlash3 = "gemini-3-flash"
	ModelGeminiPro3   = "gemini-3-pro"
)

// ProviderType is the canonical name of a backend.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderDeepSeek  ProviderType = "deepseek"
	ProviderGemini    ProviderType = "gemini"
)

// ProviderTypes lists the backends, the default first.
var ProviderTypes = []ProviderType{ProviderAnthropic, ProviderOpenAI, ProviderDeepSeek, ProviderGemini}

type backend struct {
	keyEnv   string
	modelEnv string
	model    string
	open     func(key, model string, maxTokens uint32, temperature float32) Provider
}

var backends = map[ProviderType]backend{
	ProviderAnthropic: {"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", ModelAnthropicClaudeSonnet4,
		func(k, m string, n uint32, t float32) Provider { return NewAnthropicProvider(k, m, n, t) }},
	ProviderOpenAI: {"OPENAI_API_KEY", "OPENAI_MODEL", ModelOpenAIGPT4o,
		func(k, m string, n uint32, t float32) Provider { return NewOpenAIProvider(k, m, n, t) }},
	ProviderDeepSeek: {"DEEPSEEK_API_KEY", "DEEPSEEK_MODEL", ModelDeepSeekChat,
		func(k, m string, n uint32, t float32) Provider { return NewDeepSeekProvider(k, m, n, t) }},
	ProviderGemini: {"GEMINI_API_KEY", "GEMINI_MODEL", ModelGeminiFlash3,
		func(k, m string, n uint32, t float32) Provider { return NewGeminiProvider(k, m, n, t) }},
}

var aliases = map[string]ProviderType{
	"claude": ProviderAnthropic,
	"gpt":    ProviderOpenAI,
	"google": ProviderGemini,
}

// ParseProviderType resolves a name or alias, ignoring case and spaces.
func ParseProviderType(s string) (ProviderType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if p, ok := aliases[name]; ok {
		return p, nil
	}
	if _, ok := backends[ProviderType(name)]; ok {
		return ProviderType(name), nil
	}
	return "", fmt.Errorf("unknown provider: %s", s)
}

func (p ProviderType) String() string {
	return string(p)
}

// EnvVar names the variable holding the API key.
func (p ProviderType) EnvVar() string {
	return backends[p].keyEnv
}

// ModelEnvVar names the variable that overrides the default model.
func (p ProviderType) ModelEnvVar() string {
	return backends[p].modelEnv
}

// DefaultModel returns the model used when none is configured.
func (p ProviderType) DefaultModel() string {
	return backends[p].model
}

// FromEnv builds the provider with defaults and the key from the environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewProviderBuilder(p).FromEnv()
}

// Model starts a builder for p with the given model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// APIKey builds the provider with defaults and an explicit key.
func (p ProviderType) APIKey(key string) (Provider, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// ProviderBuilder configures one provider. Zero values take the defaults.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	maxTokens    uint32
	temperature  *float32
}

// NewProviderBuilder starts a builder for p.
func NewProviderBuilder(p ProviderType) *ProviderBuilder {
	return &ProviderBuilder{providerType: p}
}

func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// MaxTokens caps the length of one reply.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// FromEnv builds the provider with the key from the environment.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	env := b.providerType.EnvVar()
	if env == "" {
		return nil, fmt.Errorf("unknown provider: %s", b.providerType)
	}
	key := os.Getenv(env)
	if key == "" {
		return nil, fmt.Errorf("%s: %s environment variable not set", b.providerType, env)
	}
	return b.build(key)
}

// APIKey builds the provider with an explicit key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	return b.build(key)
}

func (b *ProviderBuilder) build(key string) (Provider, error) {
	be, ok := backends[b.providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", b.providerType)
	}
	model := b.model
	if model == "" {
		model = be.model
	}
	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := DefaultTemperature
	if b.temperature != nil {
		temperature = *b.temperature
	}
	return be.open(key, model, maxTokens, temperature), nil
}
