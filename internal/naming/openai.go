package naming

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultChatModel is the chat model used for folder naming when none is configured.
const DefaultChatModel = "gpt-4o-mini"

const maxNameLength = 30

const namingSystemPrompt = "You name folders of related documents. " +
	"Given document excerpts, reply with a concise 2-3 word category name. " +
	"Reply with the name only, no punctuation or explanation."

// OpenAINamer generates folder names with a chat completion. Each call is
// bounded by a timeout; callers fall back to FallbackNamer on error.
type OpenAINamer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAINamer creates an LLM-backed namer.
func NewOpenAINamer(apiKey, model string, timeout time.Duration) (*OpenAINamer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if model == "" {
		model = DefaultChatModel
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenAINamer{client: openai.NewClient(apiKey), model: model, timeout: timeout}, nil
}

// Name asks the model for a short category name for the sample texts.
func (n *OpenAINamer) Name(ctx context.Context, sampleTexts []string) (string, error) {
	if len(sampleTexts) == 0 {
		return "Uncategorized", nil
	}
	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := n.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: namingSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: strings.Join(sampleTexts, "\n\n")},
		},
		MaxTokens:   20,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("naming completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("naming completion returned no choices")
	}
	name := CleanName(resp.Choices[0].Message.Content)
	if name == "" {
		return "", fmt.Errorf("naming completion returned empty name")
	}
	return name, nil
}

// CleanName normalizes a raw generated name: collapses whitespace, strips
// quotes and trailing punctuation, capitalizes words, and caps the length
// at three words / 30 characters.
func CleanName(raw string) string {
	name := strings.Trim(strings.TrimSpace(raw), `"'`)
	name = strings.TrimRight(name, ".,!")
	words := strings.Fields(name)
	if len(words) > 3 {
		words = words[:3]
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	name = strings.Join(words, " ")
	if len(name) > maxNameLength {
		name = strings.TrimSpace(name[:maxNameLength])
	}
	return name
}
