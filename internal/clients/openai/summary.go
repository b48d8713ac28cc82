package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"q-pipecat/internal/observability"
	"q-pipecat/internal/voice/model"

	"github.com/openai/openai-go"
	openaiOption "github.com/openai/openai-go/option"
)

const summaryPrompt = "You summarize phone calls handled by a voice assistant. " +
	"Reply with two or three sentences covering what the caller wanted and how the call ended. " +
	"Mention any order details, names or follow-ups."

var ErrEmptyTranscript = errors.New("transcript is empty")

// Summarizer turns a call transcript into a short summary with a chat completion.
type Summarizer struct {
	options []openaiOption.RequestOption
	model   openai.ChatModel
	logger  *observability.Logger
}

func NewSummarizer(apiKey string, logger *observability.Logger, opts ...openaiOption.RequestOption) (*Summarizer, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	options := append([]openaiOption.RequestOption{openaiOption.WithAPIKey(apiKey)}, opts...)
	return &Summarizer{
		options: options,
		model:   openai.ChatModelGPT4oMini,
		logger:  logger,
	}, nil
}

func (s *Summarizer) Summarize(ctx context.Context, transcript []model.TranscriptLine) (string, error) {
	if len(transcript) == 0 {
		return "", ErrEmptyTranscript
	}

	client := openai.NewClient(s.options...)
	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summaryPrompt),
			openai.UserMessage(FormatTranscript(transcript)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to summarize call: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("summary response has no choices")
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// FormatTranscript renders one "role: text" line per turn.
func FormatTranscript(transcript []model.TranscriptLine) string {
	var b strings.Builder
	for _, line := range transcript {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", line.Role, text)
	}
	return b.String()
}
