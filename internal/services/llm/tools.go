package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/interfaces"
)

// toolRouter dispatches model tool calls to their handlers by name
type toolRouter struct {
	tools  map[string]interfaces.Tool
	logger arbor.ILogger
	calls  int
}

func newToolRouter(tools []interfaces.Tool, logger arbor.ILogger) *toolRouter {
	router := &toolRouter{
		tools:  make(map[string]interfaces.Tool, len(tools)),
		logger: logger,
	}
	for _, tool := range tools {
		router.tools[tool.Name] = tool
	}
	return router
}

// execute runs one tool call and returns the text handed back to the model.
// Failures become tool output so the model can carry on.
func (r *toolRouter) execute(ctx context.Context, name string, args map[string]interface{}) (string, bool) {
	r.calls++

	tool, ok := r.tools[name]
	if !ok || tool.Handler == nil {
		r.logger.Warn().Str("tool", name).Msg("Model requested unknown tool")
		return fmt.Sprintf("Unknown tool: %s", name), true
	}

	output, err := tool.Handler(ctx, args)
	if err != nil {
		r.logger.Warn().Err(err).Str("tool", name).Msg("Tool execution failed")
		return fmt.Sprintf("Tool error: %v", err), true
	}

	r.logger.Debug().Str("tool", name).Int("output_length", len(output)).Msg("Tool executed")
	return output, false
}

// requiredFields reads the "required" list of a JSON schema map
func requiredFields(schema map[string]interface{}) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []interface{}:
		fields := make([]string, 0, len(required))
		for _, v := range required {
			if s, ok := v.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	default:
		return nil
	}
}
