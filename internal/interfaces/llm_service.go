package interfaces

import (
	"context"

	"github.com/ternarybob/maestro/internal/models"
)

// OracleMessage is one message of the context sent to a generation oracle
type OracleMessage struct {
	// Role identifies the message sender: "user" or "assistant"
	Role models.Role

	// Text contains the text content of the message
	Text string

	// Image is optional inline image content sent with the text
	Image *models.Media
}

// ToolHandler executes a tool call and returns the tool response text
type ToolHandler func(ctx context.Context, args map[string]interface{}) (string, error)

// Tool is a function the generation oracle may call during its loop
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON schema object describing the arguments
	Parameters map[string]interface{}
	Handler    ToolHandler
}

// GenerationRequest is a provider-agnostic tool-loop generation request
type GenerationRequest struct {
	SystemInstruction string
	Messages          []OracleMessage
	Tools             []Tool
	MaxSteps          int    // Upper bound on model calls in the tool loop
	Model             string // Optional model override, may carry a provider prefix
}

// GenerationResult is the final text of a tool loop with its accounting
type GenerationResult struct {
	Text      string
	Steps     int
	ToolCalls int
	Provider  string
	Model     string
}

// GenerationOracle produces reply text, calling tools as it sees fit
type GenerationOracle interface {
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResult, error)
}

// ClassificationOracle picks exactly one label for a prompt
type ClassificationOracle interface {
	Classify(ctx context.Context, prompt string, labels []string) (string, error)
}
