package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/fieldagent/structured"
)

const rephraseSystemPrompt = `You are a friendly assistant collecting information through conversation.
Rewrite the draft message so it sounds natural and warm, keeping every factual detail unchanged.
Never invent new questions, never drop the question being asked, never add markdown formatting.
Keep it short, one or two sentences.`

type rephrasedMessage struct {
	Message string `json:"message" jsonschema:"description=the rewritten message"`
}

// ToolBasedGenerator rephrases the template output with the model. Put it
// before LocalGenerator in a failback chain to get natural phrasing with a
// deterministic safety net.
type ToolBasedGenerator struct {
	local LocalGenerator
	chain *structured.Chain[string, rephrasedMessage]
}

func NewToolBasedGenerator(chatModel model.ToolCallingChatModel, timeout time.Duration) (*ToolBasedGenerator, error) {
	builder := func(_ context.Context, draft string) ([]*schema.Message, error) {
		return []*schema.Message{
			schema.SystemMessage(rephraseSystemPrompt),
			schema.UserMessage(fmt.Sprintf("Draft message:\n%s", draft)),
		}, nil
	}
	chain, err := structured.NewChain[string, rephrasedMessage](chatModel, builder, "send_message", "Send the rewritten message to the user.")
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		chain = chain.WithTimeout(timeout)
	}
	return &ToolBasedGenerator{chain: chain}, nil
}

func (g *ToolBasedGenerator) Generate(ctx context.Context, req Request) (string, error) {
	draft, err := g.local.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	result, err := g.chain.Invoke(ctx, draft)
	if err != nil {
		return "", err
	}
	message := strings.TrimSpace(result.Message)
	if message == "" {
		return "", fmt.Errorf("model returned an empty message")
	}
	return message, nil
}
