package extraction

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider using the Anthropic Claude API,
// the remote Extraction Client referenced in spec.md §4.B.
type AnthropicProvider struct {
	client anthropic.Client
	config Config
}

// NewAnthropicProvider creates a provider that reads its API key from the
// ANTHROPIC_API_KEY environment variable.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	cfg = withDefaults(cfg)
	return &AnthropicProvider{client: anthropic.NewClient(), config: cfg}, nil
}

// NewAnthropicProviderWithKey creates a provider with an explicit API key,
// for deployments that inject secrets outside the process environment.
func NewAnthropicProviderWithKey(apiKey string, cfg Config) (*AnthropicProvider, error) {
	cfg = withDefaults(cfg)
	return &AnthropicProvider{client: anthropic.NewClient(option.WithAPIKey(apiKey)), config: cfg}, nil
}

func withDefaults(cfg Config) Config {
	d := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = d.Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = d.MaxTokens
	}
	return cfg
}

// Chat implements Provider.
func (p *AnthropicProvider) Chat(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error) {
	anthropicMessages := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == RoleAssistant {
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(block))
		} else {
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.config.Model),
		MaxTokens:   int64(p.config.MaxTokens),
		Messages:    anthropicMessages,
		Temperature: anthropic.Float(p.config.Temperature),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		anthropicTools := make([]anthropic.ToolUnionParam, 0, len(tools))
		for _, t := range tools {
			properties := t.InputSchema["properties"]
			required, _ := t.InputSchema["required"].([]string)
			anthropicTools = append(anthropicTools, anthropic.ToolUnionParam{
				OfTool: &anthropic.ToolParam{
					Name:        t.Name,
					Description: anthropic.String(t.Description),
					InputSchema: anthropic.ToolInputSchemaParam{
						Properties: properties,
						Required:   required,
					},
				},
			})
		}
		params.Tools = anthropicTools
		// Force the single extraction tool: there is exactly one tool on
		// every extraction request, so there is never a choice to make.
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: tools[0].Name},
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic extraction call failed: %w", err)
	}

	return convertResponse(resp), nil
}

func convertResponse(resp *anthropic.Message) *Response {
	out := &Response{}
	for i := range resp.Content {
		block := &resp.Content[i]
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolCall{Name: block.Name, Input: block.Input})
		}
	}
	switch resp.StopReason {
	case anthropic.StopReasonToolUse:
		out.StopReason = StopReasonToolUse
	case anthropic.StopReasonMaxTokens:
		out.StopReason = StopReasonMaxTokens
	default:
		out.StopReason = StopReasonEndTurn
	}
	return out
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Model implements Provider.
func (p *AnthropicProvider) Model() string { return p.config.Model }
