// Package extraction turns raw ingested records into structured
// Extraction values via an LLM, forced through a single tool call so the
// model's output is always well-typed JSON (spec.md §4.B).
package extraction

import (
	"context"
	"encoding/json"
)

// Message represents one turn of a conversation with the model.
type Message struct {
	Role    Role
	Content string
}

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolDefinition describes a callable tool exposed to the model. The
// extraction client always forces the model to call exactly one tool
// (report_extraction) so its reply is guaranteed structured output rather
// than free text that would need a second parsing pass.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	Name  string
	Input json.RawMessage
}

// Response is the model's reply to a Chat call.
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason StopReason
}

// StopReason indicates why the model stopped generating.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonToolUse   StopReason = "tool_use"
	StopReasonMaxTokens StopReason = "max_tokens"
)

// Provider is the interface every extraction backend (remote LLM or
// local model) must satisfy.
type Provider interface {
	Chat(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error)
	Name() string
	Model() string
}

// Config holds common provider tunables.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the extraction client's default tunables:
// deterministic decoding, since extraction output must be reproducible
// for retry and reconciliation.
func DefaultConfig() Config {
	return Config{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   2048,
		Temperature: 0.0,
	}
}
