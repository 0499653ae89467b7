package ai

import (
	"context"
	"testing"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"eduagent-knowledge/internal/config"
)

type scriptedModel struct {
	reply   string
	prompts []string
}

func (m *scriptedModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLangChainCompleterSendsSinglePrompt(t *testing.T) {
	model := &scriptedModel{reply: `{"questions":[]}`}
	completer := NewLangChainCompleter(model, 0.2)

	out, err := completer.Complete(context.Background(), "explain entropy")
	require.NoError(t, err)
	assert.Equal(t, `{"questions":[]}`, out)
	assert.Equal(t, []string{"explain entropy"}, model.prompts)
}

func TestNewCompleterRequiresCredentials(t *testing.T) {
	_, _, err := NewCompleter(context.Background(), &config.Config{LLMProvider: "openai"})
	assert.Error(t, err)

	_, _, err = NewCompleter(context.Background(), &config.Config{LLMProvider: "google"})
	assert.Error(t, err)

	_, _, err = NewCompleter(context.Background(), &config.Config{LLMProvider: "mystery"})
	assert.Error(t, err)
}

func TestResponseTextUsesFirstCandidate(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"questions":`), genai.Text(`[]}`)}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}
	assert.Equal(t, `{"questions":[]}`, responseText(resp))
	assert.Equal(t, "", responseText(nil))
}

func TestGetRateLimits(t *testing.T) {
	assert.Equal(t, 10, getRateLimits("free").RPM)
	assert.Equal(t, 1000, getRateLimits("tier1").RPM)
	assert.Equal(t, 10, getRateLimits("unknown").RPM)
}
