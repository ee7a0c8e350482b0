package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
	"google.golang.org/genai"
)

// convertMessagesToGemini maps oracle messages to Gemini contents.
// Assistant messages use the "model" role; images travel as inline data.
func convertMessagesToGemini(messages []interfaces.OracleMessage) ([]*genai.Content, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		parts := make([]*genai.Part, 0, 2)
		if msg.Text != "" {
			parts = append(parts, genai.NewPartFromText(msg.Text))
		}
		if msg.Image != nil && len(msg.Image.Data) > 0 {
			parts = append(parts, genai.NewPartFromBytes(msg.Image.Data, msg.Image.MIMEType))
		}
		if len(parts) == 0 {
			continue
		}

		var role genai.Role = genai.RoleUser
		if msg.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}

	if len(contents) == 0 {
		return nil, fmt.Errorf("messages contain no content")
	}
	return contents, nil
}

// geminiTools declares the request tools as Gemini function declarations
func geminiTools(tools []interfaces.Tool) ([]*genai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		params, err := convertToGenaiSchema(tool.Parameters)
		if err != nil {
			return nil, fmt.Errorf("invalid parameters for tool %s: %w", tool.Name, err)
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}, nil
}

// generateWithGemini runs the function-calling loop: each step either returns
// final text or function calls whose results are appended for the next step.
// The last step disables function calling so the model has to answer.
func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *interfaces.GenerationRequest, model string, maxSteps int) (*interfaces.GenerationResult, error) {
	client, err := f.GetGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	contents, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	tools, err := geminiTools(request.Tools)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(f.geminiConfig.Temperature),
		Tools:       tools,
	}
	if request.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemInstruction, genai.RoleUser)
	}

	router := newToolRouter(request.Tools, f.logger)

	for step := 1; step <= maxSteps; step++ {
		if len(tools) > 0 {
			mode := genai.FunctionCallingConfigModeAuto
			if step == maxSteps {
				mode = genai.FunctionCallingConfigModeNone
			}
			config.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
			}
		}

		resp, err := Retry(ctx, f.logger, ProviderGemini, f.retry, func() (*genai.GenerateContentResponse, error) {
			if err := f.geminiLimiter.Wait(ctx); err != nil {
				return nil, err
			}
			return client.Models.GenerateContent(ctx, model, contents, config)
		})
		if err != nil {
			return nil, fmt.Errorf("Gemini API call failed on step %d: %w", step, err)
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, fmt.Errorf("empty response from Gemini API")
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			text := resp.Text()
			if text == "" {
				return nil, fmt.Errorf("empty text in Gemini response")
			}
			return &interfaces.GenerationResult{
				Text:      text,
				Steps:     step,
				ToolCalls: router.calls,
				Provider:  string(ProviderGemini),
				Model:     model,
			}, nil
		}

		f.logger.Debug().Int("step", step).Int("function_calls", len(calls)).Msg("Gemini requested tools")

		contents = append(contents, resp.Candidates[0].Content)
		responses := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			output, isError := router.execute(ctx, call.Name, call.Args)
			key := "output"
			if isError {
				key = "error"
			}
			responses = append(responses, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       call.ID,
				Name:     call.Name,
				Response: map[string]any{key: output},
			}})
		}
		contents = append(contents, genai.NewContentFromParts(responses, genai.RoleUser))
	}

	return nil, ErrStepLimit
}

// classifyWithGemini constrains the response to the label enumeration
func (f *ProviderFactory) classifyWithGemini(ctx context.Context, prompt string, labels []string, model string) (string, error) {
	client, err := f.GetGeminiClient(ctx)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "text/x.enum",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeString,
			Enum: labels,
		},
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := Retry(ctx, f.logger, ProviderGemini, f.retry, func() (*genai.GenerateContentResponse, error) {
		if err := f.geminiLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		return client.Models.GenerateContent(ctx, model, contents, config)
	})
	if err != nil {
		return "", fmt.Errorf("Gemini classification failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}
	return resp.Text(), nil
}
