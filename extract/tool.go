package extract

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/fieldagent/structured"
)

const extractionSystemPrompt = `You extract structured field values from a user's chat message.
Only report fields listed as still needed. Only report a value the user actually provided in this message.
Report a confidence between 0 and 1 for each value. Do not guess or fabricate values.`

type extractedField struct {
	Name       string  `json:"name" jsonschema:"description=the field name exactly as listed"`
	Value      string  `json:"value" jsonschema:"description=the value the user provided"`
	Confidence float64 `json:"confidence" jsonschema:"description=confidence between 0 and 1"`
}

type extractionResult struct {
	Fields []extractedField `json:"fields" jsonschema:"description=all field values found in the message"`
}

// ModelExtractor resolves field values with a forced tool call. Field names
// the model invents are discarded, so a hallucinated field can never reach
// the conversation state.
type ModelExtractor struct {
	chain *structured.Chain[Request, extractionResult]
}

func NewModelExtractor(chatModel model.ToolCallingChatModel, timeout time.Duration) (*ModelExtractor, error) {
	chain, err := structured.NewChain[Request, extractionResult](
		chatModel,
		buildExtractionPrompt,
		"report_field_values",
		"Report every field value found in the user's message.",
	)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		chain = chain.WithTimeout(timeout)
	}
	return &ModelExtractor{chain: chain}, nil
}

func buildExtractionPrompt(_ context.Context, req Request) ([]*schema.Message, error) {
	return []*schema.Message{
		schema.SystemMessage(extractionSystemPrompt),
		schema.UserMessage(formatExtractionRequest(req)),
	}, nil
}

func (e *ModelExtractor) Extract(ctx context.Context, req Request) ([]Candidate, error) {
	result, err := e.chain.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(req.Missing))
	for _, f := range req.Missing {
		known[f.Name] = true
	}
	candidates := make([]Candidate, 0, len(result.Fields))
	for _, f := range result.Fields {
		if !known[f.Name] || f.Value == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Field:      f.Name,
			Value:      f.Value,
			Confidence: f.Confidence,
			Source:     SourceModel,
		})
	}
	return candidates, nil
}
