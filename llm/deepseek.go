// DeepSeek Provider using the OpenAI-compatible endpoint.
//
// Information Hiding:
// - Base URL and token limit field hidden

package llm

const deepseekBaseURL = "https://api.deepseek.com/v1"

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	p := NewOpenAICompatibleProvider("deepseek", deepseekBaseURL, apiKey, model, maxTokens, temperature)
	p.completionTokens = true
	return p
}
