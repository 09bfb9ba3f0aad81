package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Provider kinds understood by NewWithConfig.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// ErrEmptyResponse is returned when a model answers with no content.
var ErrEmptyResponse = errors.New("empty response from model")

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of an ordered chat prompt.
type Message struct {
	Role    Role
	Content string
}

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Name        string // provider name shown in logs and errors
	Provider    string // "openai" for any OpenAI compatible endpoint, or "ollama"
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64 // 0 leaves the provider default
	MaxTokens   int     // 0 leaves the provider default
}

// ChatEngine is an engine that uses an LLM to generate chat responses.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if err := normalize(&config); err != nil {
		return nil, err
	}

	var (
		model llms.Model
		err   error
	)
	switch config.Provider {
	case ProviderOpenAI:
		if config.APIKey == "" {
			return nil, fmt.Errorf("provider %s: missing API key", config.Name)
		}
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithModel(config.Model),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	case ProviderOllama:
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		model, err = ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	default:
		return nil, fmt.Errorf("provider %s: unknown kind %q", config.Name, config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM %s: %w", config.Name, err)
	}

	return &ChatEngine{config: config, llm: model}, nil
}

// NewWithModel wraps an already constructed model.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	if model == nil {
		return nil, errors.New("model is nil")
	}
	if err := normalize(&config); err != nil {
		return nil, err
	}
	return &ChatEngine{config: config, llm: model}, nil
}

func normalize(config *ChatConfig) error {
	if config.Provider == "" {
		config.Provider = ProviderOpenAI
	}
	if config.Name == "" {
		config.Name = config.Provider
	}
	if config.Model == "" {
		return fmt.Errorf("provider %s: model is required", config.Name)
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("provider %s: temperature must be between 0 and 2", config.Name)
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("provider %s: max tokens cannot be negative", config.Name)
	}
	return nil
}

// Name returns the configured provider name.
func (ce *ChatEngine) Name() string {
	return ce.config.Name
}

// Model returns the configured model name.
func (ce *ChatEngine) Model() string {
	return ce.config.Model
}

// Complete sends the messages in order and returns the trimmed text of the
// first choice.
func (ce *ChatEngine) Complete(ctx context.Context, messages []Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	var opts []llms.CallOption
	if ce.config.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(ce.config.Temperature))
	}
	if ce.config.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(ce.config.MaxTokens))
	}

	response, err := ce.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(response.Choices[0].Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Ask is Complete with one system message and one user message.
func (ce *ChatEngine) Ask(ctx context.Context, system, prompt string) (string, error) {
	return ce.Complete(ctx, []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: prompt},
	})
}

func messageType(role Role) schema.ChatMessageType {
	switch role {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}
