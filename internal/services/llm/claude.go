package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
)

// classifyToolName is the forced tool Claude answers classifications through
const classifyToolName = "record_label"

// convertMessagesToClaude maps oracle messages to Claude message params.
// Claude requires alternating roles starting with the user, so consecutive
// messages of one role are merged and leading assistant messages are dropped.
func convertMessagesToClaude(messages []interfaces.OracleMessage) ([]anthropic.MessageParam, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	type turn struct {
		role   models.Role
		blocks []anthropic.ContentBlockParamUnion
	}

	var turns []turn
	for _, msg := range messages {
		role := models.RoleUser
		if msg.Role == models.RoleAssistant {
			role = models.RoleAssistant
		}
		if len(turns) == 0 && role == models.RoleAssistant {
			continue
		}

		blocks := make([]anthropic.ContentBlockParamUnion, 0, 2)
		if msg.Image != nil && len(msg.Image.Data) > 0 && role == models.RoleUser {
			encoded := base64.StdEncoding.EncodeToString(msg.Image.Data)
			blocks = append(blocks, anthropic.NewImageBlockBase64(msg.Image.MIMEType, encoded))
		}
		if strings.TrimSpace(msg.Text) != "" {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Text))
		}
		if len(blocks) == 0 {
			continue
		}

		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].blocks = append(turns[n-1].blocks, blocks...)
			continue
		}
		turns = append(turns, turn{role: role, blocks: blocks})
	}

	if len(turns) == 0 {
		return nil, fmt.Errorf("at least one message must have role 'user'")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		if t.role == models.RoleAssistant {
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(t.blocks...))
		} else {
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(t.blocks...))
		}
	}
	return claudeMessages, nil
}

// claudeTools declares the request tools for the Messages API
func claudeTools(tools []interfaces.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	params := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		params = append(params, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: tool.Parameters["properties"],
				Required:   requiredFields(tool.Parameters),
			},
		}})
	}
	return params
}

// newClaudeParams builds the request parameters shared by generation and classification
func (f *ProviderFactory) newClaudeParams(model, system string, messages []anthropic.MessageParam) anthropic.MessageNewParams {
	maxTokens := f.claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if f.claudeConfig.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(f.claudeConfig.Temperature))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

// callClaude sends one Messages request with rate limiting and retry
func (f *ProviderFactory) callClaude(ctx context.Context, client *anthropic.Client, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return Retry(ctx, f.logger, ProviderClaude, f.retry, func() (*anthropic.Message, error) {
		if err := f.claudeLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		return client.Messages.New(ctx, params)
	})
}

// generateWithClaude runs the tool-use loop until Claude answers without tool calls
func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *interfaces.GenerationRequest, model string, maxSteps int) (*interfaces.GenerationResult, error) {
	client, err := f.GetClaudeClient(ctx)
	if err != nil {
		return nil, err
	}

	messages, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := f.newClaudeParams(model, request.SystemInstruction, messages)
	params.Tools = claudeTools(request.Tools)
	router := newToolRouter(request.Tools, f.logger)

	for step := 1; step <= maxSteps; step++ {
		resp, err := f.callClaude(ctx, client, params)
		if err != nil {
			return nil, fmt.Errorf("Claude API call failed on step %d: %w", step, err)
		}

		var (
			text     strings.Builder
			toolUses []anthropic.ContentBlockUnion
		)
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				text.WriteString(block.Text)
			case "tool_use":
				toolUses = append(toolUses, block)
			}
		}

		if len(toolUses) == 0 || step == maxSteps {
			if text.Len() == 0 {
				if len(toolUses) > 0 {
					return nil, ErrStepLimit
				}
				return nil, fmt.Errorf("empty response from Claude API")
			}
			return &interfaces.GenerationResult{
				Text:      text.String(),
				Steps:     step,
				ToolCalls: router.calls,
				Provider:  string(ProviderClaude),
				Model:     model,
			}, nil
		}

		f.logger.Debug().Int("step", step).Int("tool_uses", len(toolUses)).Msg("Claude requested tools")

		params.Messages = append(params.Messages, resp.ToParam())
		results := make([]anthropic.ContentBlockParamUnion, 0, len(toolUses))
		for _, use := range toolUses {
			var args map[string]interface{}
			if err := json.Unmarshal(use.Input, &args); err != nil {
				f.logger.Warn().Err(err).Str("tool", use.Name).Msg("Tool input is not a JSON object")
			}
			output, isError := router.execute(ctx, use.Name, args)
			results = append(results, anthropic.NewToolResultBlock(use.ID, output, isError))
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(results...))
	}

	return nil, ErrStepLimit
}

// classifyWithClaude forces a single tool call whose input carries the label
func (f *ProviderFactory) classifyWithClaude(ctx context.Context, prompt string, labels []string, model string) (string, error) {
	client, err := f.GetClaudeClient(ctx)
	if err != nil {
		return "", err
	}

	params := f.newClaudeParams(model, "", []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	})
	params.Temperature = anthropic.Float(0)
	params.Tools = []anthropic.ToolUnionParam{{OfTool: &anthropic.ToolParam{
		Name:        classifyToolName,
		Description: anthropic.String("Record the chosen label"),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{
				"label": map[string]interface{}{"type": "string", "enum": labels},
			},
			Required: []string{"label"},
		},
	}}}
	params.ToolChoice = anthropic.ToolChoiceParamOfTool(classifyToolName)

	resp, err := f.callClaude(ctx, client, params)
	if err != nil {
		return "", fmt.Errorf("Claude classification failed: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type != "tool_use" || block.Name != classifyToolName {
			continue
		}
		var input struct {
			Label string `json:"label"`
		}
		if err := json.Unmarshal(block.Input, &input); err != nil {
			return "", fmt.Errorf("invalid classification input: %w", err)
		}
		return input.Label, nil
	}
	return "", fmt.Errorf("Claude returned no classification")
}
