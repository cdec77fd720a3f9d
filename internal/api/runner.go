package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/codename-co/devs-sub002/pkg/models"
)

// ErrEmptyResponse indicates the model returned no text content.
var ErrEmptyResponse = errors.New("empty response from model")

// Runner provides text-in/text-out Claude API calls.
// Responses are streamed and accumulated into a single string.
type Runner struct {
	client *Client
}

// NewRunner creates a new API runner.
func NewRunner(client *Client) *Runner {
	return &Runner{client: client}
}

// Generate sends a system prompt, a user prompt and optional attachments,
// and returns the full text of the streamed response.
func (r *Runner) Generate(ctx context.Context, systemPrompt, userPrompt string, attachments []models.Attachment) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     r.client.Model(),
		MaxTokens: r.client.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(buildUserContent(userPrompt, attachments)...),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	stream := r.client.sdk().Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		if err := message.Accumulate(stream.Current()); err != nil {
			return "", fmt.Errorf("accumulate stream: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	r.client.Tracker().Add(message.Usage.InputTokens, message.Usage.OutputTokens)

	text := messageText(message)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// buildUserContent turns a prompt and its attachments into content blocks.
// Text attachments are inlined, images are sent base64 encoded, anything
// else is only named so the model knows it exists.
func buildUserContent(prompt string, attachments []models.Attachment) []anthropic.ContentBlockParamUnion {
	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(prompt)}
	for _, a := range attachments {
		switch {
		case a.IsImage():
			blocks = append(blocks, anthropic.NewImageBlockBase64(a.MediaType, base64.StdEncoding.EncodeToString(a.Data)))
		case a.IsText():
			blocks = append(blocks, anthropic.NewTextBlock(fmt.Sprintf("Attachment %s (%s):\n%s", a.Name, a.MediaType, string(a.Data))))
		default:
			blocks = append(blocks, anthropic.NewTextBlock(fmt.Sprintf("Attachment %s (%s, %d bytes) is not readable inline.", a.Name, a.MediaType, len(a.Data))))
		}
	}
	return blocks
}

func messageText(message anthropic.Message) string {
	var result strings.Builder
	for _, block := range message.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}
	return result.String()
}
