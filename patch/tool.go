package patch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/fieldagent/structured"
)

const generatorSystemPrompt = `You translate a user's change request into JSON patch operations over their collected form answers.
Use "replace" to change a field, "add" for a field with no value yet, "remove" only when the user explicitly wants a value cleared.
Paths are "/<field>" using the exact field names provided. Only touch fields the user asked to change.`

// GenerateRequest is the input for the model patch generator.
type GenerateRequest struct {
	Message string
	// Collected is the current document the patch applies to.
	Collected map[string]string
	// FieldNames are the only legal patch targets.
	FieldNames []string
}

type generatedPatch struct {
	Ops []Operation `json:"ops" jsonschema:"description=the patch operations implementing the requested change"`
}

// Generator asks the model for patch operations and validates them against
// the field set before returning.
type Generator struct {
	chain *structured.Chain[GenerateRequest, generatedPatch]
}

func NewGenerator(chatModel model.ToolCallingChatModel, timeout time.Duration) (*Generator, error) {
	chain, err := structured.NewChain[GenerateRequest, generatedPatch](
		chatModel,
		buildGeneratorPrompt,
		"update_answers",
		"Apply the user's requested changes to their form answers.",
	)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		chain = chain.WithTimeout(timeout)
	}
	return &Generator{chain: chain}, nil
}

func buildGeneratorPrompt(_ context.Context, req GenerateRequest) ([]*schema.Message, error) {
	collectedJSON, err := sonic.MarshalString(req.Collected)
	if err != nil {
		return nil, err
	}
	sections := []string{
		fmt.Sprintf("# Field names:\n%s", strings.Join(req.FieldNames, ", ")),
		fmt.Sprintf("# Current answers:\n```json\n%s\n```", collectedJSON),
		fmt.Sprintf("# Change request:\n%s", req.Message),
	}
	return []*schema.Message{
		schema.SystemMessage(generatorSystemPrompt),
		schema.UserMessage(strings.Join(sections, "\n\n")),
	}, nil
}

// Generate returns validated operations for the change request.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) ([]Operation, error) {
	result, err := g.chain.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := ValidateOperations(result.Ops, req.FieldNames); err != nil {
		return nil, err
	}
	return result.Ops, nil
}
