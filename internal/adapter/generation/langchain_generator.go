package generation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"knowval/internal/domain"
	"knowval/internal/logger"

	"github.com/tmc/langchaingo/llms"
	ollamaLLM "github.com/tmc/langchaingo/llms/ollama"
	openaiLLM "github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const (
	completionTemperature = 0.7
	completionTimeout     = 60 * time.Second
)

// LangchainGenerator implements the domain.TextGenerator port over any
// LangchainGo model. Raw completions are cleaned of code-fence markers so
// callers can feed the payload straight into a JSON parser.
type LangchainGenerator struct {
	model llms.Model
}

// NewOpenAIGenerator creates a text generator backed by an OpenAI chat model.
func NewOpenAIGenerator(apiKey, modelName string) (*LangchainGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key cannot be empty")
	}
	if modelName == "" {
		modelName = "gpt-4o"
	}

	llm, err := openaiLLM.New(
		openaiLLM.WithToken(apiKey),
		openaiLLM.WithModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LangchainGo OpenAI client: %w", err)
	}
	return &LangchainGenerator{model: llm}, nil
}

// NewOllamaGenerator creates a text generator backed by a local Ollama model.
func NewOllamaGenerator(serverURL, modelName string) (*LangchainGenerator, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("ollama server URL cannot be empty")
	}
	if modelName == "" {
		return nil, fmt.Errorf("ollama model name cannot be empty")
	}

	httpClient := &http.Client{Timeout: completionTimeout}
	llm, err := ollamaLLM.New(
		ollamaLLM.WithServerURL(serverURL),
		ollamaLLM.WithModel(modelName),
		ollamaLLM.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LangchainGo Ollama client: %w", err)
	}
	return &LangchainGenerator{model: llm}, nil
}

// Complete implements domain.TextGenerator.
func (g *LangchainGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	completion, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, llms.WithTemperature(completionTemperature))
	if err != nil {
		logger.Get().Error("LLM completion failed", zap.Error(err))
		return "", fmt.Errorf("LLM call failed: %w", err)
	}

	return StripCodeFence(completion), nil
}

// StripCodeFence removes a surrounding Markdown code fence (``` or ```json)
// from a model response. Responses without a fence are returned trimmed.
func StripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

var _ domain.TextGenerator = (*LangchainGenerator)(nil)
