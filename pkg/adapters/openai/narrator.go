// Package openai implements the turn narrator on top of an OpenAI-compatible
// chat completion API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/infinite-echoes/echoes/internal/game"
	"github.com/infinite-echoes/echoes/pkg/domain"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = openai.GPT4oMini

const systemPrompt = `You are the narrator of a dark fantasy tabletop RPG.
Describe the outcome of the player's action in two or three vivid sentences.
Never invent dice results: only use the mechanics results you are given.`

// Config configures the client.
type Config struct {
	APIKey     string
	BaseURL    string // empty means the public OpenAI endpoint
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
}

// Narrator writes turn prose through chat completions.
type Narrator struct {
	client    *openai.Client
	model     string
	maxTokens int
}

var _ game.Narrator = (*Narrator)(nil)

// New creates a narrator.
func New(cfg Config) *Narrator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Narrator{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}
}

// Narrate implements game.Narrator.
func (n *Narrator) Narrate(ctx context.Context, req game.NarrationRequest) (string, error) {
	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     n.model,
		Messages:  buildMessages(req),
		MaxTokens: n.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMessages(req game.NarrationRequest) []openai.ChatCompletionMessage {
	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: systemPrompt}}
	if req.ZoneID != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Current zone: " + req.ZoneID,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	if len(req.MechanicsResults) > 0 {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Mechanics results:\n" + strings.Join(req.MechanicsResults, "\n"),
		})
	}
	return msgs
}
