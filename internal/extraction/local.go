package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LocalProvider implements Provider against a self-hosted Ollama server's
// OpenAI-compatible tool-calling API, the local-LLM extraction variant
// spec.md §4.B and §9's `--extraction=local` flag call for.
type LocalProvider struct {
	client  *http.Client
	baseURL string
	model   string
}

// LocalProviderConfig configures a LocalProvider.
type LocalProviderConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultLocalProviderConfig returns sensible defaults for a local Ollama
// instance.
func DefaultLocalProviderConfig() LocalProviderConfig {
	return LocalProviderConfig{
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
		Timeout: 120 * time.Second,
	}
}

// NewLocalProvider creates a LocalProvider against cfg.
func NewLocalProvider(cfg LocalProviderConfig) (*LocalProvider, error) {
	d := DefaultLocalProviderConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = d.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = d.Timeout
	}
	return &LocalProvider{client: &http.Client{Timeout: cfg.Timeout}, baseURL: cfg.BaseURL, model: cfg.Model}, nil
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content,omitempty"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function ollamaToolCallFunction `json:"function"`
}

type ollamaToolCallFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Chat implements Provider.
func (p *LocalProvider) Chat(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error) {
	ollamaMessages := make([]ollamaMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		ollamaMessages = append(ollamaMessages, ollamaMessage{Role: "system", Content: systemPrompt})
	}
	for _, msg := range messages {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "assistant"
		}
		ollamaMessages = append(ollamaMessages, ollamaMessage{Role: role, Content: msg.Content})
	}

	ollamaTools := make([]ollamaTool, 0, len(tools))
	for _, t := range tools {
		ollamaTools = append(ollamaTools, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	reqBody, err := json.Marshal(ollamaChatRequest{
		Model:    p.model,
		Messages: ollamaMessages,
		Tools:    ollamaTools,
		Stream:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build ollama chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama chat returned status %d", resp.StatusCode)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode ollama chat response: %w", err)
	}

	out := &Response{Content: chatResp.Message.Content}
	for _, tc := range chatResp.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{Name: tc.Function.Name, Input: tc.Function.Arguments})
	}
	if len(out.ToolCalls) > 0 {
		out.StopReason = StopReasonToolUse
	} else {
		out.StopReason = StopReasonEndTurn
	}
	return out, nil
}

// Name implements Provider.
func (p *LocalProvider) Name() string { return "ollama" }

// Model implements Provider.
func (p *LocalProvider) Model() string { return p.model }
