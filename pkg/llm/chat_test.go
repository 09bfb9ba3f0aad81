package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/xhad/wellai/pkg/llm"
)

// fakeModel records prompts and replies with a canned response.
type fakeModel struct {
	reply    string
	err      error
	calls    int
	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.messages = messages
	f.options = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.options)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(t *testing.T, m llms.MessageContent) string {
	t.Helper()
	require.Len(t, m.Parts, 1)
	part, ok := m.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestNewWithConfig(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{
		Name:     "groq",
		Provider: llm.ProviderOpenAI,
		Model:    "llama3-70b-8192",
		BaseURL:  "https://api.groq.com/openai/v1",
		APIKey:   "test-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "groq", engine.Name())
	assert.Equal(t, "llama3-70b-8192", engine.Model())

	engine, err = llm.NewWithConfig(llm.ChatConfig{
		Provider: llm.ProviderOllama,
		Model:    "mistral",
		BaseURL:  "http://localhost:1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "ollama", engine.Name())
}

func TestNewWithConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		config llm.ChatConfig
	}{
		{"missing key", llm.ChatConfig{Name: "groq", Model: "llama3-70b-8192"}},
		{"missing model", llm.ChatConfig{Name: "groq", APIKey: "k"}},
		{"unknown provider", llm.ChatConfig{Provider: "bard", Model: "m"}},
		{"bad temperature", llm.ChatConfig{Model: "m", APIKey: "k", Temperature: 3}},
		{"negative max tokens", llm.ChatConfig{Model: "m", APIKey: "k", MaxTokens: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := llm.NewWithConfig(tt.config)
			assert.Error(t, err)
		})
	}
}

func TestCompleteSendsMessagesInOrder(t *testing.T) {
	model := &fakeModel{reply: "  Anemia means a low red cell count.\n"}
	engine, err := llm.NewWithModel(llm.ChatConfig{Name: "groq", Model: "m", Temperature: 0.2, MaxTokens: 512}, model)
	require.NoError(t, err)

	text, err := engine.Complete(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "q1"},
		{Role: llm.RoleAssistant, Content: "a1"},
		{Role: llm.RoleUser, Content: "q2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Anemia means a low red cell count.", text)

	require.Len(t, model.messages, 4)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, schema.ChatMessageTypeAI, model.messages[2].Role)
	assert.Equal(t, "q2", textOf(t, model.messages[3]))
	assert.Equal(t, 0.2, model.options.Temperature)
	assert.Equal(t, 512, model.options.MaxTokens)
}

func TestAsk(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	engine, err := llm.NewWithModel(llm.ChatConfig{Model: "m"}, model)
	require.NoError(t, err)

	_, err = engine.Ask(context.Background(), "You are a medical assistant.", "Summarize")
	require.NoError(t, err)
	require.Len(t, model.messages, 2)
	assert.Equal(t, "You are a medical assistant.", textOf(t, model.messages[0]))
	assert.Equal(t, "Summarize", textOf(t, model.messages[1]))
}

func TestCompleteErrors(t *testing.T) {
	engine, err := llm.NewWithModel(llm.ChatConfig{Model: "m"}, &fakeModel{reply: "   "})
	require.NoError(t, err)
	_, err = engine.Ask(context.Background(), "s", "p")
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)

	cause := errors.New("429 rate limited")
	engine, err = llm.NewWithModel(llm.ChatConfig{Model: "m"}, &fakeModel{err: cause})
	require.NoError(t, err)
	_, err = engine.Ask(context.Background(), "s", "p")
	assert.ErrorIs(t, err, cause)
}
