package ai

// Model metadata and simple pricing helpers used by the run-cost preflight.
// Prices are illustrative and should be verified against OpenRouter docs.

type ModelInfo struct {
	Name          string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

// Default models per provider when the config names none.
const (
	DefaultOpenRouterModel = "openai/gpt-4o"
	DefaultOllamaModel     = "llama3:latest"
)

var models = map[string]ModelInfo{
	"deepseek/deepseek-r1:free": {
		Name:          "deepseek/deepseek-r1:free",
		ContextTokens: 128000,
		InputPerK:     0.0,
		OutputPerK:    0.0,
	},
	"openai/gpt-4o-mini": {
		Name:          "openai/gpt-4o-mini",
		ContextTokens: 128000,
		InputPerK:     0.0006,
		OutputPerK:    0.0024,
	},
	"openai/gpt-4o": {
		Name:          "openai/gpt-4o",
		ContextTokens: 128000,
		InputPerK:     0.005,
		OutputPerK:    0.015,
	},
	"anthropic/claude-3.5-sonnet": {
		Name:          "anthropic/claude-3.5-sonnet",
		ContextTokens: 200000,
		InputPerK:     0.003,
		OutputPerK:    0.015,
	},
	"google/gemini-1.5-flash": {
		Name:          "google/gemini-1.5-flash",
		ContextTokens: 1000000,
		InputPerK:     0.0002,
		OutputPerK:    0.0008,
	},
	// Common local (Ollama) tags
	"llama3:latest": {
		Name:          "llama3:latest",
		ContextTokens: 8192,
		InputPerK:     0.0,
		OutputPerK:    0.0,
	},
	"mistral:7b-instruct": {
		Name:          "mistral:7b-instruct",
		ContextTokens: 8192,
		InputPerK:     0.0,
		OutputPerK:    0.0,
	},
	"phi3:mini-128k-instruct": {
		Name:          "phi3:mini-128k-instruct",
		ContextTokens: 128000,
		InputPerK:     0.0,
		OutputPerK:    0.0,
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}
