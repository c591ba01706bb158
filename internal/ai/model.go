// Package ai wraps the Gemini model for transaction categorization, the
// advisor chat, insights and statement parsing.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Turn is one prior message of a conversation.
type Turn struct {
	FromModel bool
	Text      string
}

// Prompt is a single model request.
type Prompt struct {
	System   string
	History  []Turn
	Text     string
	Data     []byte
	MIMEType string
	// JSON asks the model for an application/json response.
	JSON bool
}

// Model generates text for a prompt.
type Model interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Gemini is the Model backed by google.golang.org/genai.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini API client. An empty apiKey lets the SDK read
// GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, p Prompt) (string, error) {
	contents := make([]*genai.Content, 0, len(p.History)+1)
	for _, t := range p.History {
		role := "user"
		if t.FromModel {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: t.Text}}})
	}

	parts := []*genai.Part{{Text: p.Text}}
	if len(p.Data) > 0 {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: p.MIMEType, Data: p.Data}})
	}
	contents = append(contents, &genai.Content{Role: "user", Parts: parts})

	cfg := &genai.GenerateContentConfig{}
	if p.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: p.System}}}
	}
	if p.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// cleanModelJSON strips Markdown fences and any prose around the first JSON
// object or array in raw.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	open := strings.IndexAny(s, "[{")
	if open == -1 {
		return s
	}
	closer := "]"
	if s[open] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(s, closer); end > open {
		s = s[open : end+1]
	}
	return strings.TrimSpace(s)
}
