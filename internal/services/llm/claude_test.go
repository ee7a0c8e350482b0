package llm

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
)

const claudeToolUse = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-haiku-4-5",
  "content": [
    {"type": "text", "text": "Let me check the RNE."},
    {"type": "tool_use", "id": "toolu_01", "name": "searchKnowledge", "input": {"queries": ["zapata"]}}
  ],
  "stop_reason": "tool_use",
  "stop_sequence": null,
  "usage": {"input_tokens": 20, "output_tokens": 10}
}`

const claudeText = `{
  "id": "msg_02",
  "type": "message",
  "role": "assistant",
  "model": "claude-haiku-4-5",
  "content": [{"type": "text", "text": "La zapata debe tener al menos 60 cm (página 4)."}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 40, "output_tokens": 12}
}`

func TestClaudeToolLoop(t *testing.T) {
	script := &scriptedServer{responses: []string{claudeToolUse, claudeText}}
	server := httptest.NewServer(script)
	defer server.Close()

	factory := newTestFactory(common.LLMProviderClaude, WithClaudeBaseURL(server.URL))

	var calls [][]string
	result, err := factory.Generate(context.Background(), &interfaces.GenerationRequest{
		SystemInstruction: "You are MaestroGPT",
		Messages:          []interfaces.OracleMessage{{Role: models.RoleUser, Text: "¿qué tan profunda la zapata?"}},
		Tools:             []interfaces.Tool{searchTool(&calls)},
		MaxSteps:          10,
	})
	require.NoError(t, err)

	assert.Equal(t, "La zapata debe tener al menos 60 cm (página 4).", result.Text)
	assert.Equal(t, 2, result.Steps)
	assert.Equal(t, "claude", result.Provider)
	assert.Equal(t, [][]string{{"zapata"}}, calls)

	require.Len(t, script.requests, 2)
	assert.Equal(t, "/v1/messages", script.paths[0])
	assert.Contains(t, script.requests[1], "tool_result")
	assert.Contains(t, script.requests[1], "toolu_01")
}

func TestClaudeStepLimit(t *testing.T) {
	toolOnly := `{"id":"msg_03","type":"message","role":"assistant","model":"claude-haiku-4-5",` +
		`"content":[{"type":"tool_use","id":"toolu_02","name":"searchKnowledge","input":{"queries":["x"]}}],` +
		`"stop_reason":"tool_use","stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":1}}`
	script := &scriptedServer{responses: []string{toolOnly, toolOnly}}
	server := httptest.NewServer(script)
	defer server.Close()

	factory := newTestFactory(common.LLMProviderClaude, WithClaudeBaseURL(server.URL))

	var calls [][]string
	_, err := factory.Generate(context.Background(), &interfaces.GenerationRequest{
		Messages: []interfaces.OracleMessage{{Role: models.RoleUser, Text: "x"}},
		Tools:    []interfaces.Tool{searchTool(&calls)},
		MaxSteps: 2,
	})
	assert.ErrorIs(t, err, ErrStepLimit)
	assert.Len(t, script.requests, 2)
}

func TestClaudeClassify(t *testing.T) {
	response := `{"id":"msg_04","type":"message","role":"assistant","model":"claude-haiku-4-5",` +
		`"content":[{"type":"tool_use","id":"toolu_03","name":"record_label","input":{"label":"respond_now"}}],` +
		`"stop_reason":"tool_use","stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":1}}`
	script := &scriptedServer{responses: []string{response}}
	server := httptest.NewServer(script)
	defer server.Close()

	factory := newTestFactory(common.LLMProviderClaude, WithClaudeBaseURL(server.URL))

	label, err := factory.Classify(context.Background(), "Hello", []string{"respond_now", "wait_for_more"})
	require.NoError(t, err)
	assert.Equal(t, "respond_now", label)
	assert.Contains(t, script.requests[0], `"record_label"`)
	assert.Contains(t, script.requests[0], "wait_for_more")
}
